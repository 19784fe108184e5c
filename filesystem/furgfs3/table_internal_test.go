package furgfs3

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func entriesFromMap(m map[uint32]uint32, totalBlocks uint64) *table {
	t := newTable(totalBlocks)
	for k, v := range m {
		t.entries[k] = v
	}
	return t
}

func getValidTable() *table {
	/*
	   map:
	     2
	     3-4-5-6
	     7-10
	     8-9-11
	     15
	*/
	return entriesFromMap(map[uint32]uint32{
		2:  blockEndOfChain,
		3:  4,
		4:  5,
		5:  6,
		6:  blockEndOfChain,
		7:  10,
		10: blockEndOfChain,
		8:  9,
		9:  11,
		11: blockEndOfChain,
		15: blockEndOfChain,
	}, 32)
}

func TestTableFromBytes(t *testing.T) {
	valid := getValidTable()
	result := tableFromBytes(valid.bytes())
	if !result.equal(valid) {
		diff := cmp.Diff(result, valid, cmp.AllowUnexported(table{}))
		t.Log(diff)
		t.Fatal("mismatched chain table after decode")
	}
}

func TestTableToBytes(t *testing.T) {
	tab := entriesFromMap(map[uint32]uint32{1: 2, 2: blockEndOfChain}, 4)
	b := tab.bytes()
	expected := []byte{
		0x01, 0x00, 0x00, 0x00, // block 0 reserved
		0x02, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(b, expected) {
		t.Errorf("table.bytes() mismatched, actual then expected\n%v\n%v", b, expected)
	}
}

func TestTableFindFree(t *testing.T) {
	tab := getValidTable()
	if free := tab.findFree(); free != 1 {
		t.Errorf("findFree: actual %d instead of expected %d", free, 1)
	}

	full := newTable(3)
	full.entries[1] = blockEndOfChain
	full.entries[2] = blockEndOfChain
	if free := full.findFree(); free != -1 {
		t.Errorf("findFree on full table: actual %d instead of expected -1", free)
	}
}

func TestTableChain(t *testing.T) {
	tab := getValidTable()

	tests := []struct {
		head   uint32
		blocks []uint32
		err    bool
	}{
		{2, []uint32{2}, false},
		{3, []uint32{3, 4, 5, 6}, false},
		{7, []uint32{7, 10}, false},
		{8, []uint32{8, 9, 11}, false},
		{15, []uint32{15}, false},
		// free and out-of-range heads are invalid, as is reserved block 0;
		// block 1 is a valid index but happens to be free in this table
		{14, nil, true},
		{0, nil, true},
		{1, nil, true},
		{100, nil, true},
	}

	for i, tt := range tests {
		blocks, err := tab.chain(tt.head)
		switch {
		case (err != nil) != tt.err:
			t.Errorf("%d: mismatched error, actual %v", i, err)
		case !cmp.Equal(blocks, tt.blocks):
			t.Errorf("%d: mismatched chain, actual %v expected %v", i, blocks, tt.blocks)
		}
	}
}

// block index 1 is the first block the allocator ever hands out and must
// not be mistaken for the end-of-chain value when it heads a chain
func TestTableHeadBlockOne(t *testing.T) {
	single := entriesFromMap(map[uint32]uint32{1: blockEndOfChain}, 8)
	blocks, err := single.chain(1)
	if err != nil || !cmp.Equal(blocks, []uint32{1}) {
		t.Errorf("single-block chain at head 1: %v, %v", blocks, err)
	}
	single.freeChain(1)
	if single.entries[1] != blockFree {
		t.Error("freeChain(1) did not release block 1")
	}

	multi := entriesFromMap(map[uint32]uint32{1: 2, 2: 3, 3: blockEndOfChain}, 8)
	blocks, err = multi.chain(1)
	if err != nil || !cmp.Equal(blocks, []uint32{1, 2, 3}) {
		t.Errorf("multi-block chain at head 1: %v, %v", blocks, err)
	}
	multi.freeChain(1)
	for _, block := range []uint32{1, 2, 3} {
		if multi.entries[block] != blockFree {
			t.Errorf("freeChain(1) left block %d allocated", block)
		}
	}
}

func TestTableChainCycle(t *testing.T) {
	tab := entriesFromMap(map[uint32]uint32{2: 3, 3: 2}, 8)
	if _, err := tab.chain(2); err == nil {
		t.Error("expected error for cyclic chain")
	}
}

func TestTableAllocateChain(t *testing.T) {
	tab := newTable(8)

	blocks := tab.allocateChain(3)
	if !cmp.Equal(blocks, []uint32{1, 2, 3}) {
		t.Fatalf("allocateChain(3): actual %v instead of expected [1 2 3]", blocks)
	}
	if tab.entries[1] != 2 || tab.entries[2] != 3 || tab.entries[3] != blockEndOfChain {
		t.Errorf("chain links wrong: %v", tab.entries)
	}

	// next allocation starts after the first chain
	blocks = tab.allocateChain(1)
	if !cmp.Equal(blocks, []uint32{4}) {
		t.Errorf("allocateChain(1): actual %v instead of expected [4]", blocks)
	}
	if tab.entries[4] != blockEndOfChain {
		t.Errorf("single-block chain should terminate, got %d", tab.entries[4])
	}
}

func TestTableAllocateChainRollback(t *testing.T) {
	tab := newTable(4)
	before := tab.bytes()

	// 3 free blocks available, ask for 5
	if blocks := tab.allocateChain(5); blocks != nil {
		t.Fatalf("expected nil on shortfall, got %v", blocks)
	}
	if !bytes.Equal(tab.bytes(), before) {
		t.Error("failed allocation left the table modified")
	}
}

func TestTableFreeChain(t *testing.T) {
	tab := getValidTable()
	tab.freeChain(3)
	for _, block := range []uint32{3, 4, 5, 6} {
		if tab.entries[block] != blockFree {
			t.Errorf("block %d not freed", block)
		}
	}
	// other chains untouched
	if tab.entries[2] != blockEndOfChain || tab.entries[8] != 9 {
		t.Error("freeChain touched unrelated chains")
	}
	// freeing an already-free head is a no-op
	tab.freeChain(3)
}

func TestTableCountFree(t *testing.T) {
	tab := newTable(8)
	if free := tab.countFree(); free != 7 {
		t.Errorf("countFree on fresh table: actual %d instead of expected 7", free)
	}
	tab.allocateChain(2)
	if free := tab.countFree(); free != 5 {
		t.Errorf("countFree after allocation: actual %d instead of expected 5", free)
	}
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	furgfs "github.com/furgfs/go-furgfs"
	"github.com/furgfs/go-furgfs/filesystem/furgfs3"
)

var shellCmd = &cobra.Command{
	Use:   "shell VOLUME",
	Short: "Open an interactive shell on a mounted volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := furgfs.Open(args[0])
		if err != nil {
			return err
		}
		defer fs.Close()
		runShell(fs)
		return nil
	},
}

const shellHelp = `commands:
  ls                 list the current directory
  cd NAME | cd ..    change directory
  pwd                print the current path
  mkdir NAME         create a directory
  rmdir NAME         remove an empty directory
  put HOSTFILE [NAME]  import a host file
  get NAME HOSTDEST  export a file to the host
  rm NAME            remove a file
  mv OLD NEW         rename a file
  mvdir OLD NEW      rename a directory
  protect NAME       toggle deletion protection
  md5 NAME           digest and size of a file
  df                 free and total space
  help               this text
  exit               leave the shell`

func runShell(fs *furgfs3.FileSystem) {
	prompt := color.New(color.FgCyan, color.Bold)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		prompt.Printf("furgfs %s> ", fs.CurrentPath())
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch cmd, rest := fields[0], fields[1:]; cmd {
		case "exit", "quit":
			return
		case "help":
			fmt.Println(shellHelp)
		case "ls":
			var entries []*furgfs3.Entry
			if entries, err = fs.List(true); err == nil {
				printEntries(entries)
			}
		case "pwd":
			fmt.Println(fs.CurrentPath())
		case "df":
			free, total := fs.SpaceInfo()
			fmt.Printf("total %s, used %s, free %s\n",
				bytefmt.ByteSize(uint64(total)),
				bytefmt.ByteSize(uint64(total-free)),
				bytefmt.ByteSize(uint64(free)))
		case "cd":
			err = oneArg(rest, fs.ChangeDirectory)
		case "mkdir":
			err = oneArg(rest, fs.Mkdir)
		case "rmdir":
			err = oneArg(rest, fs.RemoveDirectory)
		case "rm":
			err = oneArg(rest, fs.RemoveFile)
		case "protect":
			err = oneArg(rest, fs.ToggleProtection)
		case "put":
			switch len(rest) {
			case 1:
				err = fs.CopyIn(rest[0], "")
			case 2:
				err = fs.CopyIn(rest[0], rest[1])
			default:
				err = fmt.Errorf("usage: put HOSTFILE [NAME]")
			}
		case "get":
			err = twoArgs(rest, fs.CopyOut)
		case "mv":
			err = twoArgs(rest, fs.RenameFile)
		case "mvdir":
			err = twoArgs(rest, fs.RenameDirectory)
		case "md5":
			err = oneArg(rest, func(name string) error {
				digest, size, verr := fs.VerifyIntegrity(name)
				if verr != nil {
					return verr
				}
				fmt.Printf("%s  %s (%s)\n", digest, name, bytefmt.ByteSize(uint64(size)))
				return nil
			})
		default:
			err = fmt.Errorf("unknown command %q (try help)", cmd)
		}
		if err != nil {
			color.Red("error: %v", err)
		}
	}
}

func oneArg(args []string, fn func(string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one argument")
	}
	return fn(args[0])
}

func twoArgs(args []string, fn func(string, string) error) error {
	if len(args) != 2 {
		return fmt.Errorf("expected exactly two arguments")
	}
	return fn(args[0], args[1])
}

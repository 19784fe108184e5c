package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/sirupsen/logrus"
	"github.com/sisatech/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	furgfs "github.com/furgfs/go-furgfs"
	"github.com/furgfs/go-furgfs/filesystem/furgfs3"
)

var (
	flagVerbose   bool
	flagDebug     bool
	flagSizeMB    int64
	flagBlockSize int64
	flagDir       bool
)

func commandInit() {

	viper.SetEnvPrefix("FURGFS")
	viper.AutomaticEnv()
	viper.SetDefault("size_mb", 10)
	viper.SetDefault("block_size", furgfs3.DefaultBlockSize)

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logrus.SetLevel(logrus.WarnLevel)
		if flagVerbose {
			logrus.SetLevel(logrus.InfoLevel)
		}
		if flagDebug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	}

	formatCmd.Flags().Int64VarP(&flagSizeMB, "size", "s", viper.GetInt64("size_mb"), "volume size in MB (1-10000)")
	formatCmd.Flags().Int64VarP(&flagBlockSize, "block-size", "b", viper.GetInt64("block_size"), "block size in bytes")
	mvCmd.Flags().BoolVar(&flagDir, "dir", false, "rename a directory instead of a file")

	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmdirCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(protectCmd)
	rootCmd.AddCommand(md5sumCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "furgfs",
	Short: "Manage FURGfs3 volume files",
	Long: `furgfs creates and manipulates FURGfs3 volumes: self-contained
filesystems stored inside a single host file.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("furgfs %s %s\n", release, commit)
	},
}

var formatCmd = &cobra.Command{
	Use:   "format VOLUME",
	Short: "Create and format a new volume file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := furgfs.CreateWithBlockSize(args[0], flagSizeMB, flagBlockSize)
		if err != nil {
			return err
		}
		defer fs.Close()
		free, total := fs.SpaceInfo()
		fmt.Printf("created %s: %s data space, %s free\n", args[0],
			bytefmt.ByteSize(uint64(total)), bytefmt.ByteSize(uint64(free)))
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info VOLUME",
	Short: "Show volume geometry and space usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := furgfs.Open(args[0])
		if err != nil {
			return err
		}
		defer fs.Close()
		free, total := fs.SpaceInfo()
		fmt.Printf("Block size:  %d\n", fs.BlockSize())
		fmt.Printf("Blocks:      %d\n", fs.TotalBlocks())
		fmt.Printf("Data space:  %s\n", bytefmt.ByteSize(uint64(total)))
		fmt.Printf("Used:        %s\n", bytefmt.ByteSize(uint64(total-free)))
		fmt.Printf("Free:        %s\n", bytefmt.ByteSize(uint64(free)))
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls VOLUME [PATH]",
	Short: "List a directory of the volume",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := furgfs.Open(args[0])
		if err != nil {
			return err
		}
		defer fs.Close()
		if len(args) == 2 {
			if err := enterDirectory(fs, args[1]); err != nil {
				return err
			}
		}
		entries, err := fs.List(true)
		if err != nil {
			return err
		}
		printEntries(entries)
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir VOLUME PATH",
	Short: "Create a directory inside the volume",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntryParent(args[0], args[1], func(fs *furgfs3.FileSystem, name string) error {
			return fs.Mkdir(name)
		})
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir VOLUME PATH",
	Short: "Remove an empty directory from the volume",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntryParent(args[0], args[1], func(fs *furgfs3.FileSystem, name string) error {
			return fs.RemoveDirectory(name)
		})
	},
}

var putCmd = &cobra.Command{
	Use:   "put VOLUME HOSTFILE [PATH]",
	Short: "Copy a host file into the volume",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := ""
		if len(args) == 3 {
			dest = args[2]
		}
		return withEntryParent(args[0], dest, func(fs *furgfs3.FileSystem, name string) error {
			return fs.CopyIn(args[1], name)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get VOLUME PATH HOSTDEST",
	Short: "Copy a file out of the volume to the host",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntryParent(args[0], args[1], func(fs *furgfs3.FileSystem, name string) error {
			return fs.CopyOut(name, args[2])
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm VOLUME PATH",
	Short: "Remove a file from the volume",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntryParent(args[0], args[1], func(fs *furgfs3.FileSystem, name string) error {
			return fs.RemoveFile(name)
		})
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv VOLUME OLDPATH NEWNAME",
	Short: "Rename a file (or, with --dir, a directory)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntryParent(args[0], args[1], func(fs *furgfs3.FileSystem, name string) error {
			if flagDir {
				return fs.RenameDirectory(name, args[2])
			}
			return fs.RenameFile(name, args[2])
		})
	},
}

var protectCmd = &cobra.Command{
	Use:   "protect VOLUME PATH",
	Short: "Toggle deletion protection of an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntryParent(args[0], args[1], func(fs *furgfs3.FileSystem, name string) error {
			return fs.ToggleProtection(name)
		})
	},
}

var md5sumCmd = &cobra.Command{
	Use:   "md5sum VOLUME PATH",
	Short: "Print the MD5 digest and size of a stored file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEntryParent(args[0], args[1], func(fs *furgfs3.FileSystem, name string) error {
			digest, size, err := fs.VerifyIntegrity(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s (%s)\n", digest, name, bytefmt.ByteSize(uint64(size)))
			return nil
		})
	},
}

// enterDirectory descends from the root through every component of a
// slash-separated path.
func enterDirectory(fs *furgfs3.FileSystem, path string) error {
	for _, component := range strings.Split(strings.Trim(path, "/"), "/") {
		if component == "" {
			continue
		}
		if err := fs.ChangeDirectory(component); err != nil {
			return fmt.Errorf("%s: %w", component, err)
		}
	}
	return nil
}

// withEntryParent opens a volume, descends into the directory part of the
// given path and hands the final name component to fn.
func withEntryParent(volume, path string, fn func(fs *furgfs3.FileSystem, name string) error) error {
	fs, err := furgfs.Open(volume)
	if err != nil {
		return err
	}
	defer fs.Close()

	name := strings.Trim(path, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		if err := enterDirectory(fs, name[:idx]); err != nil {
			return err
		}
		name = name[idx+1:]
	}
	return fn(fs, name)
}

func printEntries(entries []*furgfs3.Entry) {
	if len(entries) == 0 {
		fmt.Println("(empty)")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeader([]string{"Type", "Name", "Size", "P", "Modified"})
	for _, e := range entries {
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		protected := ""
		if e.Protected {
			protected = "P"
		}
		table.Append([]string{
			kind,
			e.Name,
			bytefmt.ByteSize(uint64(e.Size)),
			protected,
			e.ModTime.Format(time.RFC3339),
		})
	}
	table.Render()
}

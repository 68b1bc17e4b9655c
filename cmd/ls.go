package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/index"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/volume"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List the entries of a directory, resolved via its $I30 index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "/"
		if len(args) == 1 {
			target = args[0]
		}

		vol, closeFn, err := openVolume()
		if err != nil {
			return err
		}
		defer closeFn()

		frn, err := vol.ResolvePath(target)
		if err != nil {
			return fmt.Errorf("no such file or directory: %w", err)
		}
		rec, err := vol.ReadRecord(frn)
		if err != nil || !rec.Valid {
			return fmt.Errorf("invalid record at frn %d", frn)
		}
		if !rec.IsDirectory() {
			return fmt.Errorf("%s is not a directory", target)
		}

		tree, ok := vol.IndexTreeFor(rec, volume.I30IndexName)
		if !ok {
			return fmt.Errorf("%s has no $I30 index", target)
		}

		return tree.ForEach(func(p index.Pair) bool {
			fn, ok := attr.ParseFileName(p.Key)
			if !ok {
				return true
			}
			kind := "-"
			if fn.Flags&types.FileNameDirectory != 0 {
				kind = "d"
			}
			fmt.Printf("%s %12d  %-6d %s\n", kind, fn.RealSize, p.FileReference.FRN, fn.Name.Decode())
			return true
		})
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

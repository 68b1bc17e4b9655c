package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/usn"
)

var usnTailN int

var usnjrnlCmd = &cobra.Command{
	Use:   "usnjrnl",
	Short: "Inspect the $Extend\\$UsnJrnl change journal",
}

var usnjrnlTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the last N change-journal records",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, closeFn, err := openVolume()
		if err != nil {
			return err
		}
		defer closeFn()

		frn, err := vol.ResolvePath("/$Extend/$UsnJrnl")
		if err != nil {
			return fmt.Errorf("locating $Extend\\$UsnJrnl: %w", err)
		}
		rec, err := vol.ReadRecord(frn)
		if err != nil || !rec.Valid {
			return fmt.Errorf("$Extend\\$UsnJrnl: invalid record")
		}

		journal, ok := usn.Open(vol, rec, vol.Boot.ClusterSize())
		if !ok {
			return fmt.Errorf("$Extend\\$UsnJrnl: missing :$Max or :$J stream")
		}

		records, err := journal.LastN(usnTailN)
		if err != nil {
			return fmt.Errorf("reading journal tail: %w", err)
		}

		for _, r := range records {
			fmt.Printf("usn=%-10d frn=%-6d parent_frn=%-6d reason=0x%08X %s\n",
				r.USN, r.FileReference.FRN, r.ParentFileReference.FRN, uint32(r.Reason), r.Name)
		}
		return nil
	},
}

func init() {
	usnjrnlTailCmd.Flags().IntVarP(&usnTailN, "n", "n", 20, "number of records to print")
	usnjrnlCmd.AddCommand(usnjrnlTailCmd)
	rootCmd.AddCommand(usnjrnlCmd)
}

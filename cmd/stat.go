package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
)

var statCmd = &cobra.Command{
	Use:   "stat <frn|path>",
	Short: "Dump a decoded FILE record's header and attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, closeFn, err := openVolume()
		if err != nil {
			return err
		}
		defer closeFn()

		frn, err := resolveTarget(vol, args[0])
		if err != nil {
			return fmt.Errorf("resolving %q: %w", args[0], err)
		}
		rec, err := vol.ReadRecord(frn)
		if err != nil {
			return fmt.Errorf("reading frn %d: %w", frn, err)
		}
		if !rec.Valid {
			return fmt.Errorf("frn %d: invalid record", frn)
		}

		fmt.Printf("frn:             %d\n", rec.FRN)
		fmt.Printf("sequence_number: %d\n", rec.SequenceNumber)
		fmt.Printf("in_use:          %v\n", rec.IsInUse())
		fmt.Printf("is_directory:    %v\n", rec.IsDirectory())
		fmt.Printf("hard_link_count: %d\n", rec.HardLinkCount)
		fmt.Printf("real_size:       %d\n", rec.RealSize)
		fmt.Printf("allocated_size:  %d\n", rec.AllocatedSize)
		if rec.IsExtension() {
			fmt.Printf("base_file_ref:   frn %d, seq %d\n", rec.BaseFileRef.FRN, rec.BaseFileRef.SequenceNumber)
		}
		fmt.Printf("filename:        %s\n", rec.FileName())
		fmt.Println()

		fmt.Printf("attributes (%d):\n", len(rec.Attributes))
		for _, a := range rec.Attributes {
			residency := "resident"
			size := uint64(a.ResidentPayload.Len())
			if !a.Resident {
				residency = "non-resident"
				size = a.NR.RealSize
			}
			name := ""
			if len(a.Name) > 0 {
				name = " name=" + a.Name.Decode()
			}
			typeName := a.Type.TypeName()
			if typeName == "" {
				typeName = fmt.Sprintf("0x%X", uint32(a.Type))
			}
			fmt.Printf("  id=%-3d %-24s %s%s size=%d\n", a.AttrID, typeName, residency, name, size)

			if si, ok := a.Payload.(attr.StandardInformation); ok {
				fmt.Printf("      created=%s modified=%s accessed=%s\n",
					si.Created.Time().Format("2006-01-02T15:04:05"),
					si.Modified.Time().Format("2006-01-02T15:04:05"),
					si.Accessed.Time().Format("2006-01-02T15:04:05"))
			}
			if fn, ok := a.Payload.(attr.FileName); ok {
				fmt.Printf("      name=%q parent_frn=%d flags=0x%X\n", fn.Name.Decode(), fn.ParentReference.FRN, uint32(fn.Flags))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}

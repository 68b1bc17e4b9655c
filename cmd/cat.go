package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/winstring"
)

var catStreamName string

var catCmd = &cobra.Command{
	Use:   "cat <frn|path>",
	Short: "Stream a file's $DATA attribute to stdout",
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
		if err != nil || !rec.Valid {
			return fmt.Errorf("frn %d: invalid record", frn)
		}

		var name winstring.String
		if catStreamName != "" {
			u16 := make([]uint16, 0, len(catStreamName))
			for _, r := range catStreamName {
				u16 = append(u16, uint16(r))
			}
			name = winstring.String(u16)
		}
		dataAttr, ok := rec.FindAttr(types.AttrData, name, nil)
		if !ok {
			return fmt.Errorf("%s has no $DATA attribute named %q", args[0], catStreamName)
		}

		var size uint64
		if dataAttr.Resident {
			size = uint64(dataAttr.ResidentPayload.Len())
		} else {
			size = dataAttr.NR.RealSize
		}

		const chunk = 1 << 20
		for off := uint64(0); off < size; off += chunk {
			n := chunk
			if off+uint64(n) > size {
				n = int(size - off)
			}
			buf, err := vol.ReadAttributeData(dataAttr, off, uint64(n))
			if err != nil {
				return fmt.Errorf("reading at offset %d: %w", off, err)
			}
			if _, err := os.Stdout.Write(buf); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	catCmd.Flags().StringVar(&catStreamName, "stream", "", "named alternate data stream (default: the unnamed stream)")
	rootCmd.AddCommand(catCmd)
}

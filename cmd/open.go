package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntfs-tools/ntfsinspector/internal/device"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/volume"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open --image and print the decoded boot-sector geometry",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, closeFn, err := openVolume()
		if err != nil {
			return err
		}
		defer closeFn()

		b := vol.Boot
		fmt.Printf("bytes_per_sector:     %d\n", b.BytesPerSector)
		fmt.Printf("sectors_per_cluster:  %d\n", b.SectorsPerCluster)
		fmt.Printf("cluster_size:         %d\n", b.ClusterSize())
		fmt.Printf("total_sectors:        %d\n", b.TotalSectors)
		fmt.Printf("mft_start_lcn:        %d\n", b.MFTStartLCN)
		fmt.Printf("mft_mirror_lcn:       %d\n", b.MFTMirrorLCN)
		fmt.Printf("volume_serial:        %016X\n", b.VolumeSerial)
		fmt.Printf("volume_serial_uuid:   %s\n", b.SerialUUID())
		fmt.Printf("file_record_size:     %d (from live $MFT record)\n", vol.FileRecordSize())
		fmt.Printf("file_record_count:    %d\n", vol.FileRecordCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}

// openVolume opens --image (with --offset applied) and decodes its volume
// handle. The returned close function releases the underlying device.
func openVolume() (*volume.Volume, func(), error) {
	if imagePath == "" {
		return nil, nil, fmt.Errorf("--image is required")
	}
	dev, err := device.OpenImage(imagePath, imageOffset)
	if err != nil {
		return nil, nil, fmt.Errorf("opening image: %w", err)
	}
	vol, err := volume.Open(dev)
	if err != nil {
		dev.Close()
		return nil, nil, fmt.Errorf("opening volume: %w", err)
	}
	return vol, func() { dev.Close() }, nil
}

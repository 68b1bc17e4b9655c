package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntfs-tools/ntfsinspector/internal/config"
	"github.com/ntfs-tools/ntfsinspector/internal/device"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidate volume images found in the configured search paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadNtfsConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		enum := device.FileEnumerator{SearchPaths: cfg.ImageSearchPaths}
		volumes, err := enum.ListVolumes()
		if err != nil {
			return err
		}
		for _, v := range volumes {
			fmt.Printf("%-8s %12d  %s\n", v.FilesystemTag, v.Size, v.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

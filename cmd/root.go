// Package cmd implements the ntfsinspect CLI command tree with cobra, one
// file per subcommand, package-level flag vars, and RunE returning errors
// up to Execute().
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	imagePath    string
	imageOffset  int64
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ntfsinspect",
	Short: "Read-only forensic inspector for NTFS volumes",
	Long: `ntfsinspect parses NTFS on-disk metadata directly from a raw volume
image or device node, without mounting: boot sector geometry, MFT file
records and their attributes, directory indexes, and the $UsnJrnl change
journal.

Every subcommand opens --image, decodes what it needs, and exits; there
is no interactive shell and nothing here ever writes to the volume other
than the explicit raw sector overwrite guarded by the volume lock.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&imagePath, "image", "", "path to the NTFS volume image or device node (required)")
	rootCmd.PersistentFlags().Int64Var(&imageOffset, "offset", 0, "byte offset of the volume within --image, for images containing a partition table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
}

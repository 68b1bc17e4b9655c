package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ntfs-tools/ntfsinspector/pkg/app"
	"github.com/ntfs-tools/ntfsinspector/pkg/app/discover"
)

var (
	discoverStart          string
	discoverNamePattern    string
	discoverNameRegex      string
	discoverExtensions     []string
	discoverCaseSensitive  bool
	discoverMinSize        string
	discoverMaxSize        string
	discoverModifiedAfter  string
	discoverModifiedBefore string
	discoverMaxResults     int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Recursively walk the directory index tree and filter by name/extension/size/time",
	RunE: func(cmd *cobra.Command, args []string) error {
		if imagePath == "" {
			return fmt.Errorf("--image is required")
		}
		ctx := app.NewContext()
		ctx.Verbose = verbose

		req := &discover.Request{
			ImagePath:      imagePath,
			ImageOffset:    imageOffset,
			StartPath:      discoverStart,
			NamePattern:    discoverNamePattern,
			NameRegex:      discoverNameRegex,
			Extensions:     discoverExtensions,
			CaseSensitive:  discoverCaseSensitive,
			MinSize:        discoverMinSize,
			MaxSize:        discoverMaxSize,
			ModifiedAfter:  discoverModifiedAfter,
			ModifiedBefore: discoverModifiedBefore,
			MaxResults:     discoverMaxResults,
		}

		resp, err := discover.Handle(ctx, req)
		if err != nil {
			return err
		}
		return discover.FormatOutput(resp, outputFormat)
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverStart, "start", "/", "directory to start the walk from")
	discoverCmd.Flags().StringVar(&discoverNamePattern, "name", "", "glob pattern to match against the file name")
	discoverCmd.Flags().StringVar(&discoverNameRegex, "name-regex", "", "regular expression to match against the file name")
	discoverCmd.Flags().StringSliceVar(&discoverExtensions, "ext", nil, "comma-separated list of extensions to match")
	discoverCmd.Flags().BoolVar(&discoverCaseSensitive, "case-sensitive", false, "match --name case-sensitively")
	discoverCmd.Flags().StringVar(&discoverMinSize, "min-size", "", "minimum file size (e.g. 1MB)")
	discoverCmd.Flags().StringVar(&discoverMaxSize, "max-size", "", "maximum file size (e.g. 1GB)")
	discoverCmd.Flags().StringVar(&discoverModifiedAfter, "modified-after", "", "only files modified after this date (YYYY-MM-DD)")
	discoverCmd.Flags().StringVar(&discoverModifiedBefore, "modified-before", "", "only files modified before this date (YYYY-MM-DD)")
	discoverCmd.Flags().IntVar(&discoverMaxResults, "max-results", 1000, "maximum number of results to return")
	rootCmd.AddCommand(discoverCmd)
}

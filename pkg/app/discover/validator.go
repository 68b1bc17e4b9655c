package discover

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ntfs-tools/ntfsinspector/pkg/app"
)

// Validate validates a discovery request
func (r *Request) Validate() error {
	// Image path is required
	if r.ImagePath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "image path is required", nil)
	}
	if r.StartPath == "" {
		r.StartPath = "/"
	}

	// Validate regex pattern if provided
	if r.NameRegex != "" {
		if _, err := regexp.Compile(r.NameRegex); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid regex pattern", err)
		}
	}

	// Validate size formats
	if r.MinSize != "" {
		if err := validateSizeFormat(r.MinSize); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid min-size format", err)
		}
	}
	if r.MaxSize != "" {
		if err := validateSizeFormat(r.MaxSize); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid max-size format", err)
		}
	}

	// Validate date formats
	if r.ModifiedAfter != "" {
		if _, err := time.Parse("2006-01-02", r.ModifiedAfter); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid date format for modified-after, use YYYY-MM-DD", err)
		}
	}
	if r.ModifiedBefore != "" {
		if _, err := time.Parse("2006-01-02", r.ModifiedBefore); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid date format for modified-before, use YYYY-MM-DD", err)
		}
	}

	// Validate max results
	if r.MaxResults < 1 || r.MaxResults > 10000 {
		return app.NewError(app.ErrCodeInvalidInput, "max results must be between 1 and 10000", nil)
	}

	// Check for conflicting search criteria
	if r.NamePattern != "" && r.NameRegex != "" {
		return app.NewError(app.ErrCodeInvalidInput, "cannot specify both name pattern and regex", nil)
	}

	return nil
}

// byteUnits maps a size suffix to its byte multiplier, from terabytes down
// to bytes, binary (1024-based) throughout.
var byteUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"TB", 1024 * 1024 * 1024 * 1024},
	{"GB", 1024 * 1024 * 1024},
	{"MB", 1024 * 1024},
	{"KB", 1024},
	{"B", 1},
}

// sizeFormat matches a decimal quantity followed by one of the byteUnits
// suffixes, with optional whitespace between them, e.g. "10MB", "1.5 GB".
var sizeFormat = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([A-Za-z]+)$`)

// parseByteSize parses a size string like "10MB" or "1GB" into bytes.
func parseByteSize(size string) (int64, error) {
	trimmed := strings.TrimSpace(size)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size")
	}

	m := sizeFormat.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, fmt.Errorf("%q is not a valid size (expected a number followed by B/KB/MB/GB/TB)", size)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %s", m[1])
	}

	unit := strings.ToUpper(m[2])
	for _, u := range byteUnits {
		if u.suffix == unit {
			return int64(value * float64(u.multiplier)), nil
		}
	}

	names := make([]string, len(byteUnits))
	for i, u := range byteUnits {
		names[len(byteUnits)-1-i] = u.suffix
	}
	return 0, fmt.Errorf("invalid size unit: %s (valid: %s)", unit, strings.Join(names, ", "))
}

// validateSizeFormat reports whether size parses as a byte-size string,
// without needing the parsed value.
func validateSizeFormat(size string) error {
	_, err := parseByteSize(size)
	return err
}

// ParseSize converts a size string like "10MB" or "1GB" to bytes.
func ParseSize(size string) (int64, error) {
	return parseByteSize(size)
}

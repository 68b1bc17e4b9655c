package discover

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ntfs-tools/ntfsinspector/internal/device"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/index"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/volume"
	"github.com/ntfs-tools/ntfsinspector/pkg/app"
)

// Handle processes a discovery request: opens the image, resolves
// req.StartPath through the root directory index, then recursively walks
// every $I30 directory index under it, matching entries against the
// request's criteria.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx.Log(fmt.Sprintf("Starting file discovery in: %s", req.ImagePath))
	ctx.Progress("Opening image...", 5)

	logSearchCriteria(ctx, req)

	dev, err := device.OpenImage(req.ImagePath, req.ImageOffset)
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, "opening image", err)
	}
	defer dev.Close()

	vol, err := volume.Open(dev)
	if err != nil {
		return nil, app.NewError(app.ErrCodeVolumeNotFound, "opening volume", err)
	}

	ctx.Progress("Resolving start path...", 15)
	startFRN, startDirPath, err := resolveStartFRN(vol, req.StartPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "resolving start path", err)
	}

	m, err := newMatcher(req)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "compiling search criteria", err)
	}

	ctx.Progress("Scanning filesystem...", 25)

	var results []FileResult
	if err := walkDirectory(vol, startFRN, startDirPath, m, &results); err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	ctx.Progress("Processing results...", 90)

	response := &Response{
		Files:      results,
		TotalFound: len(results),
		VolumeInfo: VolumeInfo{
			SerialHex:      fmt.Sprintf("%016X", vol.Boot.VolumeSerial),
			SerialUUID:     vol.Boot.SerialUUID().String(),
			BytesPerSector: vol.Boot.BytesPerSector,
			ClusterSize:    vol.Boot.ClusterSize(),
		},
		SearchQuery: createSearchQuery(req),
	}
	response.SearchTime = time.Since(startTime)

	if len(response.Files) > req.MaxResults {
		response.Files = response.Files[:req.MaxResults]
		response.Truncated = true
	}

	ctx.Progress("Complete", 100)
	ctx.Log(fmt.Sprintf("Discovery completed: found %d files in %v", response.TotalFound, response.SearchTime))

	return response, nil
}

func logSearchCriteria(ctx *app.Context, req *Request) {
	if !ctx.Verbose {
		return
	}
	ctx.Log("Search criteria:")
	ctx.Log("  Start path: " + req.StartPath)
	if req.NamePattern != "" {
		ctx.Log(fmt.Sprintf("  Name pattern: %s", req.NamePattern))
	}
	if req.NameRegex != "" {
		ctx.Log(fmt.Sprintf("  Name regex: %s", req.NameRegex))
	}
	if len(req.Extensions) > 0 {
		ctx.Log(fmt.Sprintf("  Extensions: %s", strings.Join(req.Extensions, ", ")))
	}
	if req.MinSize != "" || req.MaxSize != "" {
		ctx.Log(fmt.Sprintf("  Size range: %s - %s", req.MinSize, req.MaxSize))
	}
}

func createSearchQuery(req *Request) SearchQuery {
	return SearchQuery{
		NamePattern:    req.NamePattern,
		NameRegex:      req.NameRegex,
		Extensions:     req.Extensions,
		CaseSensitive:  req.CaseSensitive,
		MinSize:        req.MinSize,
		MaxSize:        req.MaxSize,
		ModifiedAfter:  req.ModifiedAfter,
		ModifiedBefore: req.ModifiedBefore,
		MaxResults:     req.MaxResults,
	}
}

// matcher holds the compiled form of a Request's filter criteria.
type matcher struct {
	req       *Request
	nameRegex *regexp.Regexp

	minSize, maxSize             int64
	hasMinSize, hasMaxSize       bool
	modifiedAfter, modifiedBefore time.Time
	hasAfter, hasBefore          bool
}

func newMatcher(req *Request) (*matcher, error) {
	m := &matcher{req: req}
	if req.NameRegex != "" {
		re, err := regexp.Compile(req.NameRegex)
		if err != nil {
			return nil, err
		}
		m.nameRegex = re
	}
	if req.MinSize != "" {
		v, err := ParseSize(req.MinSize)
		if err != nil {
			return nil, err
		}
		m.minSize, m.hasMinSize = v, true
	}
	if req.MaxSize != "" {
		v, err := ParseSize(req.MaxSize)
		if err != nil {
			return nil, err
		}
		m.maxSize, m.hasMaxSize = v, true
	}
	if req.ModifiedAfter != "" {
		t, err := time.Parse("2006-01-02", req.ModifiedAfter)
		if err != nil {
			return nil, err
		}
		m.modifiedAfter, m.hasAfter = t, true
	}
	if req.ModifiedBefore != "" {
		t, err := time.Parse("2006-01-02", req.ModifiedBefore)
		if err != nil {
			return nil, err
		}
		m.modifiedBefore, m.hasBefore = t, true
	}
	return m, nil
}

func (m *matcher) matches(fr FileResult) bool {
	if m.req.NamePattern != "" {
		name := fr.Name
		pattern := m.req.NamePattern
		if !m.req.CaseSensitive {
			name = strings.ToLower(name)
			pattern = strings.ToLower(pattern)
		}
		ok, _ := filepath.Match(pattern, name)
		if !ok {
			return false
		}
	}
	if m.nameRegex != nil && !m.nameRegex.MatchString(fr.Name) {
		return false
	}
	if len(m.req.Extensions) > 0 {
		matched := false
		for _, ext := range m.req.Extensions {
			if strings.EqualFold(ext, fr.Extension) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if m.hasMinSize && fr.Size < m.minSize {
		return false
	}
	if m.hasMaxSize && fr.Size > m.maxSize {
		return false
	}
	if m.hasAfter && fr.Modified.Before(m.modifiedAfter) {
		return false
	}
	if m.hasBefore && fr.Modified.After(m.modifiedBefore) {
		return false
	}
	return true
}

// resolveStartFRN resolves req.StartPath to a FRN via the volume's shared
// path walker, returning it along with its normalized slash-separated path.
func resolveStartFRN(vol *volume.Volume, startPath string) (types.FRN, string, error) {
	clean := path.Clean("/" + startPath)
	frn, err := vol.ResolvePath(startPath)
	if err != nil {
		return 0, "", fmt.Errorf("resolving %q: %w", clean, err)
	}
	return frn, clean, nil
}

// walkDirectory recursively walks dirFRN's $I30 index, appending matches to
// results. Subdirectories are always descended; only leaf entries are
// filtered against the request's criteria.
func walkDirectory(vol *volume.Volume, dirFRN types.FRN, dirPath string, m *matcher, results *[]FileResult) error {
	rec, err := vol.ReadRecord(dirFRN)
	if err != nil || !rec.Valid || !rec.IsDirectory() {
		return nil
	}
	tree, ok := vol.IndexTreeFor(rec, volume.I30IndexName)
	if !ok {
		return nil
	}

	type subdir struct {
		frn  types.FRN
		path string
	}
	var childDirs []subdir

	foreachErr := tree.ForEach(func(p index.Pair) bool {
		fn, ok := attr.ParseFileName(p.Key)
		if !ok {
			return true
		}
		if fn.Flags&types.FileNameDirectory != 0 {
			childDirs = append(childDirs, subdir{p.FileReference.FRN, path.Join(dirPath, fn.Name.Decode())})
			return true
		}

		fr := fileResultFrom(fn, p.FileReference, dirPath)
		if m.matches(fr) {
			*results = append(*results, fr)
		}
		return true
	})
	if foreachErr != nil {
		return foreachErr
	}

	for _, child := range childDirs {
		if err := walkDirectory(vol, child.frn, child.path, m, results); err != nil {
			return err
		}
	}
	return nil
}

func fileResultFrom(fn attr.FileName, ref types.FileReference, dirPath string) FileResult {
	name := fn.Name.Decode()
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return FileResult{
		Path:       path.Join(dirPath, name),
		Name:       name,
		Size:       int64(fn.RealSize),
		Modified:   fn.Modified.Time(),
		Created:    fn.Created.Time(),
		IsDir:      fn.Flags&types.FileNameDirectory != 0,
		FRN:        uint64(ref.FRN),
		Extension:  ext,
		Compressed: fn.Flags&types.FileNameCompressed != 0,
		Encrypted:  fn.Flags&types.FileNameEncrypted != 0,
		Sparse:     fn.Flags&types.FileNameSparse != 0,
	}
}

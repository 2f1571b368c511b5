// Package discover expands path arguments into the list of point-cloud
// files a batch run should process.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InputFile is one discovered candidate on disk.
type InputFile struct {
	Path    string
	Size    int64
	ModTime int64 // unix timestamp for sorting
}

// IsCandidate reports whether a filename looks like an input this tool
// accepts: .las, .laz, or a zstd-wrapped .las.zst. LAZ files are
// discovered so the run can report them as unsupported rather than
// silently skipping them.
func IsCandidate(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".las") ||
		strings.HasSuffix(lower, ".laz") ||
		strings.HasSuffix(lower, ".las.zst")
}

// Expand resolves each argument: files pass through as-is, directories
// are walked recursively for candidates. Results are sorted by path for
// stable batch ordering.
func Expand(args []string) ([]InputFile, error) {
	var results []InputFile

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			results = append(results, InputFile{Path: arg, Size: info.Size(), ModTime: info.ModTime().Unix()})
			continue
		}

		found, err := walk(arg)
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func walk(dir string) ([]InputFile, error) {
	var results []InputFile

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if info.IsDir() || !IsCandidate(info.Name()) {
			return nil
		}
		results = append(results, InputFile{Path: path, Size: info.Size(), ModTime: info.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

package detector

import (
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxFileSize is the largest file read from a local tree
const DefaultMaxFileSize int64 = 1 << 20

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".venv":        true,
	"venv":         true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
}

// ScanOptions controls which files FSReader.ReadFiles returns
type ScanOptions struct {
	// Exclude holds doublestar globs matched against slash-separated paths
	Exclude []string
	// MaxFileSize skips larger files; zero means DefaultMaxFileSize
	MaxFileSize int64
	// Filter, when set, keeps only paths it returns true for
	Filter func(path string) bool
}

// FSReader loads repository files from a filesystem
type FSReader struct {
	fsys fs.FS
}

// NewFSReader creates a new FSReader for the given filesystem
func NewFSReader(fsys fs.FS) *FSReader {
	return &FSReader{fsys: fsys}
}

// ReadFiles walks the filesystem and returns the files worth analyzing.
// Unreadable files are skipped rather than failing the walk.
func (r *FSReader) ReadFiles(opts ScanOptions) ([]RepositoryFile, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []RepositoryFile
	err := fs.WalkDir(r.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == "." {
			return nil
		}

		if d.IsDir() {
			if skippedDirs[d.Name()] || excluded(opts.Exclude, p) || excluded(opts.Exclude, p+"/") {
				return fs.SkipDir
			}
			return nil
		}

		if excluded(opts.Exclude, p) {
			return nil
		}
		if opts.Filter != nil && !opts.Filter(p) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxSize {
			return nil
		}

		content, ok := r.read(p)
		if !ok {
			return nil
		}
		files = append(files, RepositoryFile{
			Name:    d.Name(),
			Path:    p,
			Content: content,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk files: %w", err)
	}
	return files, nil
}

func (r *FSReader) read(p string) (string, bool) {
	f, err := r.fsys.Open(p)
	if err != nil {
		return "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func excluded(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func baseName(p string) string {
	return path.Base(p)
}

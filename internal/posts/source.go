package posts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultExtension is the content file extension.
	DefaultExtension = ".md"
	// DefaultReserved is the template file excluded from every listing.
	DefaultReserved = "_template.md"
)

// File is a content file handle returned by a Source.
type File struct {
	// Path is slash separated and relative to the source root.
	Path    string
	ModTime time.Time
}

// Source lists and reads the content files of one collection.
type Source interface {
	Ensure(ctx context.Context) error
	List(ctx context.Context) ([]File, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// SourceOptions controls discovery.
type SourceOptions struct {
	// Extension selects content files, compared case-insensitively.
	Extension string
	// Reserved names a file that is never listed, compared case-insensitively.
	Reserved string
	// Recursive walks sub-directories.
	Recursive bool
	// AutoCreate creates a missing directory on Ensure.
	AutoCreate bool
}

func (o SourceOptions) withDefaults() SourceOptions {
	if strings.TrimSpace(o.Extension) == "" {
		o.Extension = DefaultExtension
	}
	if !strings.HasPrefix(o.Extension, ".") {
		o.Extension = "." + o.Extension
	}
	if o.Reserved == "" {
		o.Reserved = DefaultReserved
	}
	return o
}

// DirSource reads content from a directory on disk.
type DirSource struct {
	dir  string
	opts SourceOptions
}

// NewDirSource returns a Source rooted at dir.
func NewDirSource(dir string, opts SourceOptions) *DirSource {
	return &DirSource{dir: dir, opts: opts.withDefaults()}
}

// Dir returns the root directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// Ensure checks the directory exists, creating it when AutoCreate is set.
func (s *DirSource) Ensure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("%w: %s is not a directory", ErrContentDirMissing, s.dir)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %v", ErrContentDirMissing, s.dir, err)
	case !s.opts.AutoCreate:
		return fmt.Errorf("%w: %s", ErrContentDirMissing, s.dir)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrContentDirMissing, s.dir, err)
	}
	return nil
}

// List returns the matching files in lexical path order.
func (s *DirSource) List(ctx context.Context) ([]File, error) {
	return listFS(ctx, os.DirFS(s.dir), s.opts)
}

// ReadFile reads a file returned by List.
func (s *DirSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(os.DirFS(s.dir), name)
}

// FSSource reads content from an fs.FS, typically an in-memory fixture.
type FSSource struct {
	fsys fs.FS
	opts SourceOptions
}

// NewFSSource returns a Source over fsys.
func NewFSSource(fsys fs.FS, opts SourceOptions) *FSSource {
	return &FSSource{fsys: fsys, opts: opts.withDefaults()}
}

// Ensure checks the root of the file system is readable.
func (s *FSSource) Ensure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fsys == nil {
		return fmt.Errorf("%w: no file system", ErrContentDirMissing)
	}
	if _, err := fs.Stat(s.fsys, "."); err != nil {
		return fmt.Errorf("%w: %v", ErrContentDirMissing, err)
	}
	return nil
}

// List returns the matching files in lexical path order.
func (s *FSSource) List(ctx context.Context) ([]File, error) {
	return listFS(ctx, s.fsys, s.opts)
}

// ReadFile reads a file returned by List.
func (s *FSSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(s.fsys, name)
}

func listFS(ctx context.Context, fsys fs.FS, opts SourceOptions) ([]File, error) {
	var files []File
	walkErr := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if !shouldRecurse(name, opts.Recursive) {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !matchesContent(d.Name(), opts) {
			return nil
		}
		file := File{Path: name}
		if info, err := d.Info(); err == nil {
			file.ModTime = info.ModTime()
		}
		files = append(files, file)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("posts: list content: %w", walkErr)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func shouldRecurse(dir string, recursive bool) bool {
	if dir == "." {
		return true
	}
	if strings.HasPrefix(path.Base(dir), ".") {
		return false
	}
	return recursive
}

func matchesContent(name string, opts SourceOptions) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.EqualFold(name, opts.Reserved) {
		return false
	}
	return strings.EqualFold(path.Ext(name), opts.Extension)
}

package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type writeCategory string

const (
	categoryPage     writeCategory = "page"
	categoryAsset    writeCategory = "asset"
	categorySitemap  writeCategory = "sitemap"
	categoryRobots   writeCategory = "robots"
	categoryFeed     writeCategory = "feed"
	categoryManifest writeCategory = "manifest"
)

var errUnsafeOutputDir = errors.New("generator: refusing to clean output directory")

// DirsOverlap reports whether two directories are the same or one contains
// the other, after resolving both to absolute paths.
func DirsOverlap(a, b string) (bool, error) {
	absA, err := filepath.Abs(strings.TrimSpace(a))
	if err != nil {
		return false, fmt.Errorf("generator: resolve %q: %w", a, err)
	}
	absB, err := filepath.Abs(strings.TrimSpace(b))
	if err != nil {
		return false, fmt.Errorf("generator: resolve %q: %w", b, err)
	}
	return within(absA, absB) || within(absB, absA), nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// guardSourceDirs refuses a clean when a collection reads from inside, or
// from a parent of, the output root.
func guardSourceDirs(root string, collections []Collection) error {
	for _, collection := range collections {
		located, ok := collection.(interface{ Dir() string })
		if !ok || strings.TrimSpace(located.Dir()) == "" {
			continue
		}
		overlaps, err := DirsOverlap(root, located.Dir())
		if err != nil {
			return err
		}
		if overlaps {
			return fmt.Errorf("%w: %q overlaps the %s content directory %q", errUnsafeOutputDir, root, collection.Name(), located.Dir())
		}
	}
	return nil
}

// writeFileRequest describes a file write routed through the artifact writer.
type writeFileRequest struct {
	// Path is slash separated and relative to the output root.
	Path        string
	Content     io.Reader
	Size        int64
	Category    writeCategory
	ContentType string
	Checksum    string
}

// artifactWriter abstracts where generator outputs land.
type artifactWriter interface {
	Clean(ctx context.Context) error
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req writeFileRequest) error
}

func newArtifactWriter(root string, dryRun bool) artifactWriter {
	if dryRun {
		return noopWriter{}
	}
	return &fsWriter{root: root}
}

// fsWriter writes artifacts below a directory on disk.
type fsWriter struct {
	root string
}

func (w *fsWriter) Clean(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(strings.TrimSpace(w.root))
	if clean == "." || clean == string(filepath.Separator) || clean == "" {
		return fmt.Errorf("%w: %q", errUnsafeOutputDir, w.root)
	}
	entries, err := os.ReadDir(clean)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("generator: clean %s: %w", clean, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(clean, entry.Name())); err != nil {
			return fmt.Errorf("generator: clean %s: %w", clean, err)
		}
	}
	return nil
}

func (w *fsWriter) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(w.abs(dir), 0o755)
}

func (w *fsWriter) WriteFile(ctx context.Context, req writeFileRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Content == nil {
		return errors.New("generator: write requires content reader")
	}
	if strings.TrimSpace(req.Path) == "" {
		return errors.New("generator: write requires path")
	}
	full := w.abs(req.Path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	file, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	if _, err := io.Copy(file, req.Content); err != nil {
		_ = file.Close()
		return fmt.Errorf("generator: write %s: %w", req.Path, err)
	}
	return file.Close()
}

func (w *fsWriter) abs(rel string) string {
	rel = path.Clean("/" + strings.TrimSpace(rel))
	return filepath.Join(w.root, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
}

type noopWriter struct{}

func (noopWriter) Clean(context.Context) error { return nil }

func (noopWriter) EnsureDir(context.Context, string) error { return nil }

func (noopWriter) WriteFile(context.Context, writeFileRequest) error { return nil }

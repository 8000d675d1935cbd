package generator

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

type assetCopy struct {
	Source   string
	Output   string
	Checksum string
	Size     int64
}

// copyAssets mirrors every file of static into the asset root of the output
// tree. Hidden files are skipped.
func copyAssets(ctx context.Context, writer artifactWriter, static fs.FS, assetRoot string) ([]assetCopy, error) {
	if static == nil {
		return nil, nil
	}
	var copied []assetCopy
	err := fs.WalkDir(static, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name != "." && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(static, name)
		if err != nil {
			return fmt.Errorf("generator: read asset %s: %w", name, err)
		}
		output := path.Join(assetRoot, name)
		checksum := computeHash(data)
		req := writeFileRequest{
			Path:        output,
			Content:     bytes.NewReader(data),
			Size:        int64(len(data)),
			Category:    categoryAsset,
			ContentType: detectAssetContentType(name),
			Checksum:    checksum,
		}
		if err := writer.WriteFile(ctx, req); err != nil {
			return err
		}
		copied = append(copied, assetCopy{Source: name, Output: output, Checksum: checksum, Size: int64(len(data))})
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("generator: copy assets: %w", err)
	}
	return copied, nil
}

func detectAssetContentType(asset string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(asset), "."))
	switch ext {
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "ico":
		return "image/x-icon"
	case "woff2":
		return "font/woff2"
	default:
		return "application/octet-stream"
	}
}

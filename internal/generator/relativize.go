package generator

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects how internal references are emitted.
type Mode string

const (
	// ModeOffline emits references relative to the current page so the
	// output tree works when opened from disk.
	ModeOffline Mode = "offline"
	// ModeLive emits server-relative references for the live server.
	ModeLive Mode = "live"
)

// DefaultAssetRoot is the conventional directory holding static assets.
const DefaultAssetRoot = "static"

// ParseMode maps a configured name onto a Mode. An empty name selects
// ModeOffline.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeOffline:
		return ModeOffline, nil
	case ModeLive:
		return ModeLive, nil
	}
	return "", fmt.Errorf("generator: unknown mode %q", name)
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// Relativizer rewrites asset and link references for a given route.
type Relativizer struct {
	Mode Mode
	// AssetRoot is the asset directory name, DefaultAssetRoot when empty.
	AssetRoot string
	// IndexFile is appended to directory links in offline mode when set.
	IndexFile string
}

func (r Relativizer) assetRoot() string {
	root := strings.Trim(strings.TrimSpace(r.AssetRoot), "/")
	if root == "" {
		return DefaultAssetRoot
	}
	return root
}

// RouteDepth counts the non-empty path segments of route.
func RouteDepth(route string) int {
	if idx := strings.IndexAny(route, "?#"); idx >= 0 {
		route = route[:idx]
	}
	depth := 0
	for _, segment := range strings.Split(route, "/") {
		if segment != "" {
			depth++
		}
	}
	return depth
}

// DepthPrefix returns "../" once per segment of route.
func DepthPrefix(route string) string {
	return strings.Repeat("../", RouteDepth(route))
}

// AssetReference resolves ref against the asset root for a page at route.
// External and data URIs pass through unchanged.
func (r Relativizer) AssetReference(ref, route string) string {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" || isExternal(trimmed) {
		return ref
	}
	root := r.assetRoot()
	rest := strings.TrimPrefix(trimmed, "/")
	rest = strings.TrimPrefix(rest, root+"/")

	if r.Mode == ModeLive {
		return "/" + root + "/" + rest
	}
	return DepthPrefix(route) + root + "/" + rest
}

// LinkReference resolves an internal link for a page at route. External,
// mailto, data and fragment references pass through unchanged, and live mode
// leaves every link as written.
func (r Relativizer) LinkReference(ref, route string) string {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" || isExternal(trimmed) || strings.HasPrefix(trimmed, "#") {
		return ref
	}
	if r.Mode == ModeLive {
		return ref
	}

	rest := strings.TrimPrefix(trimmed, "/")
	if r.IndexFile != "" {
		rest = appendIndexFile(rest, r.IndexFile)
	}
	out := DepthPrefix(route) + rest
	if out == "" {
		return "./"
	}
	return out
}

func appendIndexFile(ref, indexFile string) string {
	pathPart, suffix := ref, ""
	if idx := strings.IndexAny(ref, "?#"); idx >= 0 {
		pathPart, suffix = ref[:idx], ref[idx:]
	}
	if pathPart == "" || strings.HasSuffix(pathPart, "/") {
		pathPart += indexFile
	}
	return pathPart + suffix
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "//") || schemePattern.MatchString(ref)
}

func isRootRelative(ref string) bool {
	return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}

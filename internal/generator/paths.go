package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// indexFileName is written for every route: /a/b/ becomes a/b/index.html.
const indexFileName = "index.html"

func buildOutputPath(route string) string {
	clean := strings.Trim(strings.TrimSpace(route), " \t\r\n/")
	if clean == "" {
		return indexFileName
	}
	return path.Join(clean, indexFileName)
}

// normalizeRoute returns route with one leading and one trailing slash.
func normalizeRoute(route string) string {
	clean := strings.Trim(strings.TrimSpace(route), "/")
	if clean == "" {
		return "/"
	}
	return "/" + path.Clean(clean) + "/"
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func computeHashFromString(content string) string {
	return computeHash([]byte(content))
}

func absoluteURL(origin, route string) string {
	base := strings.TrimRight(strings.TrimSpace(origin), "/")
	if base == "" {
		return ""
	}
	if isExternal(route) {
		return route
	}
	return base + "/" + strings.TrimPrefix(route, "/")
}

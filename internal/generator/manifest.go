package generator

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	manifestFileName    = ".freeze-manifest.json"
	manifestFileVersion = 1
)

// buildManifest records what a publish run wrote.
type buildManifest struct {
	Version     int             `json:"version"`
	BuildID     string          `json:"build_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Mode        Mode            `json:"mode"`
	Origin      string          `json:"origin,omitempty"`
	Pages       []manifestPage  `json:"pages"`
	Assets      []manifestAsset `json:"assets"`
	Skipped     []string        `json:"skipped,omitempty"`
}

type manifestPage struct {
	Route      string    `json:"route"`
	Kind       RouteKind `json:"kind"`
	Output     string    `json:"output"`
	Template   string    `json:"template"`
	Checksum   string    `json:"checksum"`
	Bytes      int       `json:"bytes"`
	SourcePath string    `json:"source,omitempty"`
}

type manifestAsset struct {
	Source   string `json:"source"`
	Output   string `json:"output"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

func newBuildManifest(buildID string, generatedAt time.Time, mode Mode, origin string) *buildManifest {
	return &buildManifest{
		Version:     manifestFileVersion,
		BuildID:     buildID,
		GeneratedAt: generatedAt,
		Mode:        mode,
		Origin:      origin,
		Pages:       []manifestPage{},
		Assets:      []manifestAsset{},
	}
}

func (m *buildManifest) addPage(page RenderedPage) {
	m.Pages = append(m.Pages, manifestPage{
		Route:      page.Route.Path,
		Kind:       page.Route.Kind,
		Output:     page.Output,
		Template:   page.Template,
		Checksum:   page.Checksum,
		Bytes:      len(page.HTML),
		SourcePath: page.SourcePath,
	})
}

func (m *buildManifest) addAsset(asset assetCopy) {
	m.Assets = append(m.Assets, manifestAsset(asset))
}

// marshal sorts entries so that identical builds produce identical output
// apart from the build id and timestamp.
func (m *buildManifest) marshal() ([]byte, error) {
	sort.Slice(m.Pages, func(i, j int) bool {
		return m.Pages[i].Output < m.Pages[j].Output
	})
	sort.Slice(m.Assets, func(i, j int) bool {
		return m.Assets[i].Output < m.Assets[j].Output
	})
	sort.Strings(m.Skipped)
	return json.MarshalIndent(m, "", "  ")
}

func parseManifest(data []byte) (*buildManifest, error) {
	var manifest buildManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

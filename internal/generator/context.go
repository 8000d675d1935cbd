package generator

import (
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// TemplateContext is the data passed to every template.
type TemplateContext struct {
	Site    SiteMetadata
	Route   Route
	Build   BuildMetadata
	Helpers TemplateHelpers
	// Collections holds the listing entries of every collection by name.
	Collections map[string][]posts.IndexEntry
	// Data is the decoded data file of a static route.
	Data    any
	Listing *ListingContext
	Post    *PostContext
}

// SiteMetadata describes the site being published.
type SiteMetadata struct {
	Name     string
	Origin   string
	Mode     Mode
	Metadata map[string]any
}

// BuildMetadata surfaces build information to templates.
type BuildMetadata struct {
	ID          string
	GeneratedAt time.Time
	DryRun      bool
}

// ListingContext is the page of index entries shown by a listing route.
type ListingContext struct {
	Collection string
	Entries    []posts.IndexEntry
	Page       int
	TotalPages int
	PrevURL    string
	NextURL    string
}

// PostContext carries a single rendered post.
type PostContext struct {
	Record    *posts.Record
	Content   template.HTML
	TOC       []interfaces.Heading
	Prev      *posts.NavStub
	Next      *posts.NavStub
	Canonical string
	Params    map[string]any
}

// Snapshots is the consistent set of collection snapshots used by one
// publish run.
type Snapshots struct {
	order   []string
	byName  map[string]*posts.Snapshot
	indexes map[string][]posts.IndexEntry
}

func newSnapshots() *Snapshots {
	return &Snapshots{
		byName:  map[string]*posts.Snapshot{},
		indexes: map[string][]posts.IndexEntry{},
	}
}

func (s *Snapshots) add(name string, snapshot *posts.Snapshot) {
	if _, exists := s.byName[name]; !exists {
		s.order = append(s.order, name)
	}
	s.byName[name] = snapshot
	s.indexes[name] = posts.BuildIndex(snapshot)
}

// Get returns the snapshot of the named collection, or nil.
func (s *Snapshots) Get(name string) *posts.Snapshot {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

// Index returns the listing entries of the named collection.
func (s *Snapshots) Index(name string) []posts.IndexEntry {
	if s == nil {
		return nil
	}
	return s.indexes[name]
}

// Names lists the collections in configuration order.
func (s *Snapshots) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

func (s *Snapshots) indexMap() map[string][]posts.IndexEntry {
	if s == nil {
		return map[string][]posts.IndexEntry{}
	}
	return maps.Clone(s.indexes)
}

// TemplateHelpers are bound to the route being rendered.
type TemplateHelpers struct {
	route       string
	origin      string
	canonical   string
	relativizer Relativizer
}

func newTemplateHelpers(route, origin, canonical string, relativizer Relativizer) TemplateHelpers {
	return TemplateHelpers{
		route:       route,
		origin:      strings.TrimRight(strings.TrimSpace(origin), "/"),
		canonical:   canonical,
		relativizer: relativizer,
	}
}

// Asset resolves an asset reference for the current route.
func (h TemplateHelpers) Asset(ref string) string {
	return h.relativizer.AssetReference(ref, h.route)
}

// Link resolves an internal link for the current route.
func (h TemplateHelpers) Link(ref string) string {
	return h.relativizer.LinkReference(ref, h.route)
}

// Canonical returns the canonical URL of the page, empty when unknown.
func (h TemplateHelpers) Canonical() string {
	return h.canonical
}

// Depth returns the number of segments of the current route.
func (h TemplateHelpers) Depth() int {
	return RouteDepth(h.route)
}

// IsCurrent reports whether ref addresses the current route.
func (h TemplateHelpers) IsCurrent(ref string) bool {
	return normalizeRoute(ref) == normalizeRoute(h.route)
}

// WithBaseURL prefixes path with the site origin. Without an origin the path
// is returned as a root relative reference.
func (h TemplateHelpers) WithBaseURL(path string) string {
	path = strings.TrimSpace(path)
	if isExternal(path) {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return h.origin + path
}

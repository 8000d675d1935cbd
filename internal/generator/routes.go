package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-freeze/internal/posts"
)

// RouteKind tells the publisher how to build the context of a route.
type RouteKind string

const (
	RouteStatic  RouteKind = "static"
	RouteListing RouteKind = "listing"
	RoutePost    RouteKind = "post"
)

// StaticRoute is a configured page rendered from a template and an optional
// data file.
type StaticRoute struct {
	Name     string
	Path     string
	Template string
	// Data names a JSON or YAML file, relative to the data directory, whose
	// decoded content is exposed to the template as .Data.
	Data string
}

// CollectionRoutes configures the generated pages of one collection.
type CollectionRoutes struct {
	Name            string
	ListingTemplate string
	PostTemplate    string
	// PageSize splits the listing into pages; zero renders a single page.
	PageSize int
	// DisableListing skips the listing pages.
	DisableListing bool
	// Feed writes an RSS document for the collection when an origin is set.
	Feed bool
}

// Route identifies one page of the output tree.
type Route struct {
	Name       string
	Kind       RouteKind
	Path       string
	Template   string
	Collection string
	Slug       string
	Page       int
	TotalPages int
	DataFile   string
}

// Output returns the destination relative path of the route.
func (r Route) Output() string {
	return buildOutputPath(r.Path)
}

// Depth returns the number of path segments of the route.
func (r Route) Depth() int {
	return RouteDepth(r.Path)
}

// buildRoutes enumerates static routes followed, per collection, by listing
// pages and one route per record in publication order. Duplicate paths keep
// the first route.
func buildRoutes(statics []StaticRoute, collections []collectionBinding, snapshots *Snapshots) ([]Route, []string) {
	var (
		routes     []Route
		duplicates []string
		seen       = map[string]struct{}{}
	)
	add := func(route Route) {
		route.Path = normalizeRoute(route.Path)
		if _, dup := seen[route.Path]; dup {
			duplicates = append(duplicates, route.Path)
			return
		}
		seen[route.Path] = struct{}{}
		routes = append(routes, route)
	}

	for _, static := range statics {
		name := strings.TrimSpace(static.Name)
		if name == "" {
			name = normalizeRoute(static.Path)
		}
		add(Route{
			Name:     name,
			Kind:     RouteStatic,
			Path:     static.Path,
			Template: static.Template,
			DataFile: static.Data,
		})
	}

	for _, binding := range collections {
		snapshot := snapshots.Get(binding.name)
		prefix := binding.prefix

		if !binding.routes.DisableListing && binding.routes.ListingTemplate != "" {
			pages := posts.Paginate(snapshots.Index(binding.name), binding.routes.PageSize)
			for i := range pages {
				add(Route{
					Name:       listingRouteName(binding.name, i+1),
					Kind:       RouteListing,
					Path:       listingPath(prefix, i+1),
					Template:   binding.routes.ListingTemplate,
					Collection: binding.name,
					Page:       i + 1,
					TotalPages: len(pages),
				})
			}
		}

		if binding.routes.PostTemplate == "" {
			continue
		}
		for i := 0; i < snapshot.Len(); i++ {
			record := snapshot.At(i)
			add(Route{
				Name:       binding.name + ":" + record.Slug,
				Kind:       RoutePost,
				Path:       record.URL,
				Template:   binding.routes.PostTemplate,
				Collection: binding.name,
				Slug:       record.Slug,
			})
		}
	}
	return routes, duplicates
}

func listingRouteName(collection string, page int) string {
	if page <= 1 {
		return collection
	}
	return fmt.Sprintf("%s:page:%d", collection, page)
}

func listingPath(prefix string, page int) string {
	if page <= 1 {
		return prefix
	}
	return prefix + "page/" + strconv.Itoa(page) + "/"
}

// FindRoute returns the route serving requestPath. "/news", "/news/" and
// "/news/index.html" all address the same route.
func FindRoute(routes []Route, requestPath string) (Route, bool) {
	target := strings.TrimSuffix(strings.TrimSpace(requestPath), indexFileName)
	target = normalizeRoute(target)
	for _, route := range routes {
		if route.Path == target {
			return route, true
		}
	}
	return Route{}, false
}

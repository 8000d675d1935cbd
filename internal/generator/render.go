package generator

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/goliatone/go-freeze/internal/metrics"
	"github.com/goliatone/go-freeze/internal/posts"
)

var (
	errTemplateRequired = errors.New("generator: template is required for rendering")
	errUnknownRouteKind = errors.New("generator: unknown route kind")
	errUnknownListing   = errors.New("generator: unknown listing page")
)

// RenderedPage captures the rendered HTML output for a route.
type RenderedPage struct {
	Route    Route
	Output   string
	Template string
	HTML     string
	Checksum string
	Duration time.Duration
	// LastModified is the post date or file time for post routes.
	LastModified time.Time
	SourcePath   string
}

// RenderDiagnostic records rendering timing and errors for individual routes.
type RenderDiagnostic struct {
	Route    string
	Kind     RouteKind
	Template string
	Duration time.Duration
	Err      error
}

type renderOutcome struct {
	page       RenderedPage
	diagnostic RenderDiagnostic
	err        error
}

// RenderRoute renders one route against a consistent snapshot set.
func (s *Service) RenderRoute(ctx context.Context, snapshots *Snapshots, route Route) (RenderedPage, error) {
	outcome := s.renderRoute(ctx, snapshots, route, BuildMetadata{GeneratedAt: s.now()})
	return outcome.page, outcome.err
}

func (s *Service) renderRoute(ctx context.Context, snapshots *Snapshots, route Route, build BuildMetadata) renderOutcome {
	start := time.Now()
	outcome := renderOutcome{
		diagnostic: RenderDiagnostic{Route: route.Path, Kind: route.Kind, Template: route.Template},
	}
	finish := func(err error) renderOutcome {
		outcome.diagnostic.Duration = time.Since(start)
		outcome.page.Duration = outcome.diagnostic.Duration
		if err != nil {
			err = fmt.Errorf("generator: render %s: %w", route.Path, err)
			outcome.err = err
			outcome.diagnostic.Err = err
			s.recorder.ObserveRender(string(route.Kind), metrics.OutcomeFailed, outcome.diagnostic.Duration)
			return outcome
		}
		s.recorder.ObserveRender(string(route.Kind), metrics.OutcomeSuccess, outcome.diagnostic.Duration)
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	if route.Template == "" {
		return finish(errTemplateRequired)
	}

	tplCtx, page, err := s.buildContext(snapshots, route, build)
	if err != nil {
		return finish(err)
	}
	html, err := s.deps.Renderer.RenderTemplate(route.Template, tplCtx)
	if err != nil {
		return finish(err)
	}

	outcome.page = RenderedPage{
		Route:    route,
		Output:   route.Output(),
		Template: route.Template,
		HTML:     html,
		Checksum: computeHashFromString(html),
	}
	if page != nil {
		outcome.page.LastModified = page.Record.ModTime
		if page.Record.HasDate {
			outcome.page.LastModified = page.Record.Date
		}
		outcome.page.SourcePath = page.Record.SourcePath
	}
	return finish(nil)
}

func (s *Service) buildContext(snapshots *Snapshots, route Route, build BuildMetadata) (TemplateContext, *posts.Page, error) {
	canonical := s.canonicalURL("", route.Path)
	tplCtx := TemplateContext{
		Site:        s.site,
		Route:       route,
		Build:       build,
		Collections: snapshots.indexMap(),
	}

	var page *posts.Page
	switch route.Kind {
	case RouteStatic:
		data, err := loadDataFile(s.deps.Data, route.DataFile)
		if err != nil {
			return tplCtx, nil, err
		}
		tplCtx.Data = data
	case RouteListing:
		listing, err := s.listingContext(snapshots, route)
		if err != nil {
			return tplCtx, nil, err
		}
		tplCtx.Listing = listing
	case RoutePost:
		binding, ok := s.binding(route.Collection)
		if !ok {
			return tplCtx, nil, fmt.Errorf("generator: unknown collection %q", route.Collection)
		}
		resolved, err := binding.navigator.Resolve(snapshots.Get(route.Collection), route.Slug)
		if err != nil {
			return tplCtx, nil, err
		}
		content, err := rewriteReferences(resolved.HTML, route.Path, s.relativizer)
		if err != nil {
			return tplCtx, nil, err
		}
		page = resolved
		canonical = s.canonicalURL(resolved.Record.Permalink, route.Path)
		tplCtx.Post = &PostContext{
			Record:    resolved.Record,
			Content:   template.HTML(content),
			TOC:       resolved.TOC,
			Prev:      resolved.Prev,
			Next:      resolved.Next,
			Canonical: canonical,
			Params:    resolved.Record.Params,
		}
	default:
		return tplCtx, nil, fmt.Errorf("%w: %q", errUnknownRouteKind, route.Kind)
	}

	tplCtx.Helpers = newTemplateHelpers(route.Path, s.cfg.Origin, canonical, s.relativizer)
	return tplCtx, page, nil
}

func (s *Service) listingContext(snapshots *Snapshots, route Route) (*ListingContext, error) {
	binding, ok := s.binding(route.Collection)
	if !ok {
		return nil, fmt.Errorf("generator: unknown collection %q", route.Collection)
	}
	pages := posts.Paginate(snapshots.Index(route.Collection), binding.routes.PageSize)
	if route.Page < 1 || route.Page > len(pages) {
		return nil, fmt.Errorf("%w: %s page %d", errUnknownListing, route.Collection, route.Page)
	}

	listing := &ListingContext{
		Collection: route.Collection,
		Entries:    pages[route.Page-1],
		Page:       route.Page,
		TotalPages: len(pages),
	}
	if route.Page > 1 {
		listing.PrevURL = listingPath(binding.prefix, route.Page-1)
	}
	if route.Page < len(pages) {
		listing.NextURL = listingPath(binding.prefix, route.Page+1)
	}
	return listing, nil
}

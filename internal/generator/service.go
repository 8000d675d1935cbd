// Package generator publishes post collections and configured pages as a
// static file tree. Offline builds emit page relative references so the
// tree can be opened from disk; live builds emit server relative ones.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/internal/metrics"
	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	errRendererRequired  = errors.New("generator: template renderer is required")
	errOutputDirRequired = errors.New("generator: output directory is required")
	// ErrUnknownCollection is returned when routes reference a collection
	// that was not provided.
	ErrUnknownCollection = errors.New("generator: unknown collection")
)

// Config captures runtime behaviour toggles for the generator.
type Config struct {
	OutputDir string
	Mode      Mode
	// Origin is the public base URL, e.g. https://example.com. It enables
	// canonical URLs, the sitemap and feeds.
	Origin string
	// LiveRoot is the URL of the live server, used for canonical URLs in
	// live mode when no origin is set.
	LiveRoot  string
	AssetRoot string
	// DirectoryIndexLinks appends index.html to offline directory links.
	DirectoryIndexLinks bool
	CleanBuild          bool
	CopyAssets          bool
	GenerateSitemap     bool
	GenerateRobots      bool
	GenerateFeeds       bool
	WriteManifest       bool
	SiteName            string
	SiteMetadata        map[string]any
	Routes              []StaticRoute
	Collections         []CollectionRoutes
}

// Collection is a named post source. *posts.Repository satisfies it.
type Collection interface {
	posts.Loader
	Name() string
	Builder() *posts.Builder
}

// Dependencies lists the collaborators required by the generator.
type Dependencies struct {
	Collections []Collection
	Renderer    interfaces.TemplateRenderer
	Markdown    interfaces.MarkdownRenderer
	// Static holds the files copied below the asset root.
	Static fs.FS
	// Data holds the JSON and YAML files referenced by static routes.
	Data    fs.FS
	Logger  interfaces.Logger
	Metrics metrics.Recorder
	Now     func() time.Time
}

// PublishOptions narrows a publish run.
type PublishOptions struct {
	// Force reloads every collection from its source.
	Force  bool
	DryRun bool
}

// PublishResult reports aggregated build metadata.
type PublishResult struct {
	BuildID     string
	GeneratedAt time.Time
	PagesBuilt  int
	PagesFailed int
	Assets      int
	Routes      []Route
	Rendered    []RenderedPage
	Diagnostics []RenderDiagnostic
	// Files lists every path written, relative to the output directory.
	Files      []string
	Duplicates []string
	Skipped    []string
	Duration   time.Duration
	DryRun     bool
	Errors     []error
}

type collectionBinding struct {
	name      string
	prefix    string
	routes    CollectionRoutes
	source    Collection
	navigator *posts.Navigator
}

// Service renders routes and publishes the output tree.
type Service struct {
	cfg         Config
	deps        Dependencies
	site        SiteMetadata
	relativizer Relativizer
	bindings    []collectionBinding
	logger      interfaces.Logger
	recorder    metrics.Recorder
	now         func() time.Time

	canonicalOnce sync.Once
}

// NewService validates the configuration, binds collections to their routes
// and registers the asset and link filters on the template renderer.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	if deps.Renderer == nil {
		return nil, errRendererRequired
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeOffline
	}
	cfg.Origin = strings.TrimRight(strings.TrimSpace(cfg.Origin), "/")

	svc := &Service{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger,
		recorder: metrics.OrNoop(deps.Metrics),
		now:      deps.Now,
		site: SiteMetadata{
			Name:     cfg.SiteName,
			Origin:   cfg.Origin,
			Mode:     cfg.Mode,
			Metadata: maps.Clone(cfg.SiteMetadata),
		},
		relativizer: Relativizer{Mode: cfg.Mode, AssetRoot: cfg.AssetRoot},
	}
	if svc.logger == nil {
		svc.logger = logging.NoOp()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.site.Metadata == nil {
		svc.site.Metadata = map[string]any{}
	}
	if cfg.DirectoryIndexLinks {
		svc.relativizer.IndexFile = indexFileName
	}

	bindings, err := bindCollections(cfg.Collections, deps.Collections, deps.Markdown)
	if err != nil {
		return nil, err
	}
	svc.bindings = bindings

	if err := svc.registerFilters(); err != nil {
		return nil, err
	}
	if err := deps.Renderer.GlobalContext(map[string]any{
		"site_name": cfg.SiteName,
		"origin":    cfg.Origin,
		"mode":      string(cfg.Mode),
	}); err != nil {
		return nil, fmt.Errorf("generator: template globals: %w", err)
	}
	return svc, nil
}

func bindCollections(configured []CollectionRoutes, collections []Collection, markdown interfaces.MarkdownRenderer) ([]collectionBinding, error) {
	routesByName := make(map[string]CollectionRoutes, len(configured))
	for _, routes := range configured {
		routesByName[routes.Name] = routes
	}
	known := map[string]struct{}{}

	bindings := make([]collectionBinding, 0, len(collections))
	for _, collection := range collections {
		if collection == nil {
			continue
		}
		name := collection.Name()
		known[name] = struct{}{}
		routes, ok := routesByName[name]
		if !ok {
			routes = CollectionRoutes{Name: name, DisableListing: true}
		}
		bindings = append(bindings, collectionBinding{
			name:      name,
			prefix:    collection.Builder().RoutePrefix(),
			routes:    routes,
			source:    collection,
			navigator: posts.NewNavigator(collection, markdown),
		})
	}
	for _, routes := range configured {
		if _, ok := known[routes.Name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, routes.Name)
		}
	}
	return bindings, nil
}

func (s *Service) registerFilters() error {
	if err := s.deps.Renderer.RegisterFilter("asset", func(input any, param any) (any, error) {
		return s.relativizer.AssetReference(fmt.Sprint(input), routeParam(param)), nil
	}); err != nil {
		return fmt.Errorf("generator: register asset filter: %w", err)
	}
	if err := s.deps.Renderer.RegisterFilter("link", func(input any, param any) (any, error) {
		return s.relativizer.LinkReference(fmt.Sprint(input), routeParam(param)), nil
	}); err != nil {
		return fmt.Errorf("generator: register link filter: %w", err)
	}
	return nil
}

// routeParam accepts the route argument of the asset and link filters as a
// path or a Route value.
func routeParam(param any) string {
	switch v := param.(type) {
	case string:
		return v
	case Route:
		return v.Path
	case *Route:
		if v != nil {
			return v.Path
		}
	}
	return "/"
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// Relativizer returns the reference rewriter used for every route.
func (s *Service) Relativizer() Relativizer {
	return s.relativizer
}

func (s *Service) binding(name string) (collectionBinding, bool) {
	for _, binding := range s.bindings {
		if binding.name == name {
			return binding, true
		}
	}
	return collectionBinding{}, false
}

// LoadSnapshots loads every collection exactly once. A collection that
// cannot be loaded fails the whole set.
func (s *Service) LoadSnapshots(ctx context.Context, force bool) (*Snapshots, error) {
	snapshots := newSnapshots()
	for _, binding := range s.bindings {
		snapshot, err := binding.source.Load(ctx, force)
		if err != nil {
			return nil, fmt.Errorf("generator: load collection %s: %w", binding.name, err)
		}
		snapshots.add(binding.name, snapshot)
	}
	return snapshots, nil
}

// Routes enumerates the routes of the site for a snapshot set.
func (s *Service) Routes(snapshots *Snapshots) []Route {
	routes, duplicates := buildRoutes(s.cfg.Routes, s.bindings, snapshots)
	for _, dup := range duplicates {
		s.logger.Warn("generator.route.duplicate", "route", dup)
	}
	return routes
}

// Publish loads every collection, renders every route and writes the output
// tree. Render failures do not stop the run; they are returned joined once
// everything else has been written.
func (s *Service) Publish(ctx context.Context, opts PublishOptions) (*PublishResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.cfg.OutputDir) == "" && !opts.DryRun {
		return nil, errOutputDirRequired
	}

	start := time.Now()
	result := &PublishResult{
		BuildID:     uuid.NewString(),
		GeneratedAt: s.now(),
		DryRun:      opts.DryRun,
	}
	// collection loads log under the same build id
	ctx = logging.ContextWithFields(ctx, map[string]any{"build_id": result.BuildID})
	logger := logging.WithFields(s.logger.WithContext(ctx), map[string]any{"dry_run": opts.DryRun})

	snapshots, err := s.LoadSnapshots(ctx, opts.Force)
	if err != nil {
		logger.Error("generator.publish.failed", "error", err)
		s.recorder.ObservePublish(metrics.OutcomeFailed, 0, time.Since(start))
		return nil, err
	}
	for _, name := range snapshots.Names() {
		result.Skipped = append(result.Skipped, snapshots.Get(name).Skipped()...)
	}

	routes, duplicates := buildRoutes(s.cfg.Routes, s.bindings, snapshots)
	result.Routes = routes
	result.Duplicates = duplicates
	for _, dup := range duplicates {
		logger.Warn("generator.route.duplicate", "route", dup)
	}

	writer := newArtifactWriter(s.cfg.OutputDir, opts.DryRun)
	if s.cfg.CleanBuild && !opts.DryRun {
		if err := guardSourceDirs(s.cfg.OutputDir, s.deps.Collections); err != nil {
			logger.Error("generator.publish.failed", "error", err)
			s.recorder.ObservePublish(metrics.OutcomeFailed, 0, time.Since(start))
			return nil, err
		}
		if err := writer.Clean(ctx); err != nil {
			return nil, err
		}
	}
	if err := writer.EnsureDir(ctx, "."); err != nil {
		return nil, fmt.Errorf("generator: prepare output: %w", err)
	}

	build := BuildMetadata{ID: result.BuildID, GeneratedAt: result.GeneratedAt, DryRun: opts.DryRun}
	manifest := newBuildManifest(result.BuildID, result.GeneratedAt, s.cfg.Mode, s.cfg.Origin)
	manifest.Skipped = append(manifest.Skipped, result.Skipped...)

	var errs []error
	write := func(req writeFileRequest) {
		if err := writer.WriteFile(ctx, req); err != nil {
			errs = append(errs, err)
			return
		}
		result.Files = append(result.Files, req.Path)
	}

	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		outcome := s.renderRoute(ctx, snapshots, route, build)
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostic)
		if outcome.err != nil {
			logging.WithRoute(logger, route.Path).Error("generator.render.failed", "error", outcome.err)
			result.PagesFailed++
			errs = append(errs, outcome.err)
			continue
		}
		page := outcome.page
		result.Rendered = append(result.Rendered, page)
		result.PagesBuilt++
		manifest.addPage(page)
		write(writeFileRequest{
			Path:        page.Output,
			Content:     strings.NewReader(page.HTML),
			Size:        int64(len(page.HTML)),
			Category:    categoryPage,
			ContentType: "text/html; charset=utf-8",
			Checksum:    page.Checksum,
		})
	}

	if s.cfg.CopyAssets && s.deps.Static != nil {
		copied, err := copyAssets(ctx, writer, s.deps.Static, s.relativizer.assetRoot())
		for _, asset := range copied {
			manifest.addAsset(asset)
			result.Files = append(result.Files, asset.Output)
		}
		result.Assets = len(copied)
		if err != nil {
			errs = append(errs, err)
		}
	}

	sitemapWritten := false
	if s.cfg.GenerateSitemap {
		if s.cfg.Origin == "" {
			logger.Info("generator.sitemap.skipped", "reason", "no origin configured")
		} else {
			write(textArtifact("sitemap.xml", buildSitemap(s.cfg.Origin, result.Rendered, result.GeneratedAt), categorySitemap, "application/xml"))
			sitemapWritten = true
		}
	}
	if s.cfg.GenerateRobots {
		write(textArtifact("robots.txt", buildRobots(s.cfg.Origin, sitemapWritten), categoryRobots, "text/plain; charset=utf-8"))
	}
	if s.cfg.GenerateFeeds {
		s.writeFeeds(logger, snapshots, result.GeneratedAt, write)
	}
	if s.cfg.WriteManifest {
		data, err := manifest.marshal()
		if err != nil {
			errs = append(errs, fmt.Errorf("generator: encode manifest: %w", err))
		} else {
			write(textArtifact(manifestFileName, string(data), categoryManifest, "application/json"))
		}
	}

	result.Errors = errs
	result.Duration = time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case len(errs) > 0:
		outcome = metrics.OutcomeFailed
	case opts.DryRun:
		outcome = metrics.OutcomeDryRun
	}
	s.recorder.ObservePublish(outcome, result.PagesBuilt, result.Duration)
	logger.Info("generator.publish.completed",
		"pages", result.PagesBuilt,
		"failed", result.PagesFailed,
		"assets", result.Assets,
		"duration", result.Duration,
	)

	if len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	return result, nil
}

func (s *Service) writeFeeds(logger interfaces.Logger, snapshots *Snapshots, generatedAt time.Time, write func(writeFileRequest)) {
	for _, binding := range s.bindings {
		if !binding.routes.Feed {
			continue
		}
		if s.cfg.Origin == "" {
			logging.WithCollection(logger, binding.name, "").Info("generator.feed.skipped", "reason", "no origin configured")
			continue
		}
		doc := buildFeedDocument(s.site, binding.prefix, snapshots.Get(binding.name))
		dir := strings.Trim(binding.prefix, "/")
		write(textArtifact(path.Join(dir, rssFileName), buildRSSFeed(doc, generatedAt), categoryFeed, "application/rss+xml"))
		selfLink := absoluteURL(s.cfg.Origin, binding.prefix+atomFileName)
		write(textArtifact(path.Join(dir, atomFileName), buildAtomFeed(doc, selfLink, generatedAt), categoryFeed, "application/atom+xml"))
	}
}

// canonicalURL prefers the permalink, then the origin based URL, then the
// live server root in live mode. Otherwise no canonical URL is emitted.
func (s *Service) canonicalURL(permalink, route string) string {
	if trimmed := strings.TrimSpace(permalink); trimmed != "" {
		return trimmed
	}
	if location := absoluteURL(s.cfg.Origin, normalizeRoute(route)); location != "" {
		return location
	}
	if s.cfg.Mode == ModeLive {
		if root := strings.TrimRight(strings.TrimSpace(s.cfg.LiveRoot), "/"); root != "" {
			return root + normalizeRoute(route)
		}
	}
	s.canonicalOnce.Do(func() {
		s.logger.Info("generator.canonical.omitted", "reason", "no origin configured")
	})
	return ""
}

func textArtifact(name, content string, category writeCategory, contentType string) writeFileRequest {
	return writeFileRequest{
		Path:        name,
		Content:     strings.NewReader(content),
		Size:        int64(len(content)),
		Category:    category,
		ContentType: contentType,
		Checksum:    computeHashFromString(content),
	}
}

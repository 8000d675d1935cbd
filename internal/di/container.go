package di

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-freeze/internal/frontmatter"
	"github.com/goliatone/go-freeze/internal/generator"
	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/internal/logging/console"
	"github.com/goliatone/go-freeze/internal/logging/gologger"
	"github.com/goliatone/go-freeze/internal/markdown"
	"github.com/goliatone/go-freeze/internal/metrics"
	"github.com/goliatone/go-freeze/internal/normalize"
	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/internal/runtimeconfig"
	"github.com/goliatone/go-freeze/internal/templates"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// Container wires the post repositories, renderers and publishers described
// by a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	template       interfaces.TemplateRenderer
	markdown       interfaces.MarkdownRenderer
	recorder       metrics.Recorder
	prometheus     *metrics.PrometheusRecorder
	now            func() time.Time

	templateFS fs.FS
	staticFS   fs.FS
	dataFS     fs.FS
	contentFS  map[string]fs.FS

	collections []*posts.Repository
	publisher   *generator.Service
	live        *generator.Service
}

// Option mutates the container before services are built.
type Option func(*Container)

// WithLoggerProvider overrides the provider derived from the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithTemplate overrides the html/template renderer. The offline and live
// publishers then share it and the last one built owns its filters.
func WithTemplate(tr interfaces.TemplateRenderer) Option {
	return func(c *Container) {
		if tr != nil {
			c.template = tr
		}
	}
}

// WithMarkdown overrides the goldmark renderer.
func WithMarkdown(mr interfaces.MarkdownRenderer) Option {
	return func(c *Container) {
		if mr != nil {
			c.markdown = mr
		}
	}
}

// WithMetrics overrides the recorder chosen from the server config.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Container) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// WithClock overrides the clock used for build timestamps and undated slugs.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTemplateFS reads templates from fsys instead of the template directory.
func WithTemplateFS(fsys fs.FS) Option {
	return func(c *Container) { c.templateFS = fsys }
}

// WithStaticFS reads assets from fsys instead of the static directory.
func WithStaticFS(fsys fs.FS) Option {
	return func(c *Container) { c.staticFS = fsys }
}

// WithDataFS reads route data files from fsys instead of the data directory.
func WithDataFS(fsys fs.FS) Option {
	return func(c *Container) { c.dataFS = fsys }
}

// WithContentFS reads the named collection from fsys instead of its
// content directory.
func WithContentFS(collection string, fsys fs.FS) Option {
	return func(c *Container) {
		if c.contentFS == nil {
			c.contentFS = map[string]fs.FS{}
		}
		c.contentFS[collection] = fsys
	}
}

// NewContainer validates cfg and builds every service it describes.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLogger(); err != nil {
		return nil, err
	}
	c.configureMetrics()
	c.configureFilesystems()

	if c.markdown == nil {
		c.markdown = markdown.NewRenderer(cfg.Markdown)
	}

	if err := c.buildCollections(); err != nil {
		return nil, err
	}

	mode, _ := generator.ParseMode(cfg.Publish.Mode)
	publisher, err := c.buildPublisher(mode)
	if err != nil {
		return nil, err
	}
	c.publisher = publisher

	logging.ModuleLogger(c.loggerProvider, "freeze.container").Debug("container.configured",
		"collections", len(c.collections),
		"routes", len(cfg.Routes),
		"mode", mode,
	)
	return c, nil
}

func (c *Container) configureLogger() error {
	if c.loggerProvider != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return fmt.Errorf("di: configure go-logger: %w", err)
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(c.Config.Logging.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureMetrics() {
	if c.recorder != nil {
		return
	}
	if c.Config.Server.Metrics {
		c.prometheus = metrics.NewPrometheusRecorder(nil)
		c.recorder = c.prometheus
		return
	}
	c.recorder = metrics.NoopRecorder{}
}

func (c *Container) configureFilesystems() {
	site := c.Config.Site
	if c.templateFS == nil {
		c.templateFS = os.DirFS(site.TemplateDir)
	}
	if c.staticFS == nil && strings.TrimSpace(site.StaticDir) != "" {
		c.staticFS = optionalDirFS(site.StaticDir)
	}
	if c.dataFS == nil && strings.TrimSpace(site.DataDir) != "" {
		c.dataFS = optionalDirFS(site.DataDir)
	}
}

// optionalDirFS returns nil for a missing directory so asset copying and
// data loading are skipped instead of failing.
func optionalDirFS(dir string) fs.FS {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	return os.DirFS(filepath.Clean(dir))
}

func (c *Container) buildCollections() error {
	postsLogger := logging.PostsLogger(c.loggerProvider)
	for _, collection := range c.Config.Collections {
		parseMode, err := frontmatter.ParseMode(collection.ParseMode)
		if err != nil {
			return err
		}
		strategy, err := normalize.ParseSlugStrategy(collection.SlugStrategy)
		if err != nil {
			return err
		}
		policy, err := posts.ParseCollisionPolicy(collection.Collisions)
		if err != nil {
			return err
		}

		builder := posts.NewBuilder(posts.BuilderConfig{
			Collection:     collection.Name,
			RoutePrefix:    collection.RoutePrefix,
			ParseMode:      parseMode,
			SlugStrategy:   strategy,
			CleanSlugs:     collection.CleanSlugs,
			Dates:          normalize.DateOptions{Permissive: collection.PermissiveDates},
			WordsPerMinute: collection.WordsPerMinute,
			TeaserLimit:    collection.TeaserLimit,
			Now:            c.now,
		})

		sourceOpts := posts.SourceOptions{
			Extension:  collection.Extension,
			Reserved:   collection.Reserved,
			Recursive:  collection.Recursive,
			AutoCreate: collection.AutoCreate,
		}
		var source posts.Source
		if fsys, ok := c.contentFS[collection.Name]; ok && fsys != nil {
			source = posts.NewFSSource(fsys, sourceOpts)
		} else {
			source = posts.NewDirSource(collection.ContentDir, sourceOpts)
		}

		c.collections = append(c.collections, posts.NewRepository(collection.Name, source, builder,
			posts.WithLogger(postsLogger),
			posts.WithRecorder(c.recorder),
			posts.WithCollisionPolicy(policy),
			posts.WithClock(c.now),
		))
	}
	return nil
}

func (c *Container) buildPublisher(mode generator.Mode) (*generator.Service, error) {
	cfg := c.Config
	routes := make([]generator.StaticRoute, 0, len(cfg.Routes))
	for _, route := range cfg.Routes {
		routes = append(routes, generator.StaticRoute{
			Name:     route.Name,
			Path:     route.Path,
			Template: route.Template,
			Data:     route.Data,
		})
	}
	collectionRoutes := make([]generator.CollectionRoutes, 0, len(cfg.Collections))
	for _, collection := range cfg.Collections {
		collectionRoutes = append(collectionRoutes, generator.CollectionRoutes{
			Name:            collection.Name,
			ListingTemplate: collection.ListingTemplate,
			PostTemplate:    collection.PostTemplate,
			PageSize:        collection.PageSize,
			DisableListing:  collection.DisableListing,
			Feed:            collection.Feed,
		})
	}

	renderer := c.template
	if renderer == nil {
		renderer = templates.NewRenderer(c.templateFS, templates.Options{})
	}

	return generator.NewService(generator.Config{
		OutputDir:           cfg.Publish.OutputDir,
		Mode:                mode,
		Origin:              cfg.Site.Origin,
		LiveRoot:            cfg.Server.LiveRoot,
		AssetRoot:           cfg.Site.AssetRoot,
		DirectoryIndexLinks: cfg.Publish.DirectoryIndexLinks,
		CleanBuild:          cfg.Publish.CleanBuild,
		CopyAssets:          cfg.Publish.CopyAssets,
		GenerateSitemap:     cfg.Publish.Sitemap,
		GenerateRobots:      cfg.Publish.Robots,
		GenerateFeeds:       cfg.Publish.Feeds,
		WriteManifest:       cfg.Publish.Manifest,
		SiteName:            cfg.Site.Name,
		SiteMetadata:        cfg.Site.Metadata,
		Routes:              routes,
		Collections:         collectionRoutes,
	}, generator.Dependencies{
		Collections: c.Collections(),
		Renderer:    renderer,
		Markdown:    c.markdown,
		Static:      c.staticFS,
		Data:        c.dataFS,
		Logger:      logging.GeneratorLogger(c.loggerProvider),
		Metrics:     c.recorder,
		Now:         c.now,
	})
}

// LoggerProvider returns the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Collections returns the post repositories in configuration order.
func (c *Container) Collections() []generator.Collection {
	out := make([]generator.Collection, 0, len(c.collections))
	for _, repo := range c.collections {
		out = append(out, repo)
	}
	return out
}

// Repository returns the named post repository.
func (c *Container) Repository(name string) (*posts.Repository, bool) {
	for _, repo := range c.collections {
		if strings.EqualFold(repo.Name(), name) {
			return repo, true
		}
	}
	return nil, false
}

// Markdown returns the Markdown renderer shared by every publisher.
func (c *Container) Markdown() interfaces.MarkdownRenderer {
	return c.markdown
}

// Publisher returns the generator built for the configured publish mode.
func (c *Container) Publisher() *generator.Service {
	return c.publisher
}

// LivePublisher returns a generator in live mode sharing the container's
// repositories. It is built on first use.
func (c *Container) LivePublisher() (*generator.Service, error) {
	if c.live != nil {
		return c.live, nil
	}
	if c.publisher != nil && c.publisher.Config().Mode == generator.ModeLive {
		c.live = c.publisher
		return c.live, nil
	}
	live, err := c.buildPublisher(generator.ModeLive)
	if err != nil {
		return nil, fmt.Errorf("di: build live publisher: %w", err)
	}
	c.live = live
	return live, nil
}

// Metrics returns the active recorder.
func (c *Container) Metrics() metrics.Recorder {
	return c.recorder
}

// Prometheus returns the Prometheus recorder, or nil when metrics are
// disabled or overridden.
func (c *Container) Prometheus() *metrics.PrometheusRecorder {
	return c.prometheus
}

// StaticFS returns the asset file system, nil when there is none.
func (c *Container) StaticFS() fs.FS {
	return c.staticFS
}

// Package freeze publishes a directory of Markdown posts, plus a set of
// template driven pages, as a static site that can be opened straight from
// disk or previewed through a live server.
package freeze

import (
	"context"
	"fmt"

	publishcmd "github.com/goliatone/go-freeze/internal/commands/publish"
	"github.com/goliatone/go-freeze/internal/di"
	"github.com/goliatone/go-freeze/internal/generator"
	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/internal/server"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// PublisherService exports the static publisher.
type PublisherService = *generator.Service

// PublishOptions narrows a publish run.
type PublishOptions = generator.PublishOptions

// PublishResult summarises a publish run.
type PublishResult = generator.PublishResult

// IndexEntry is the listing projection of a post.
type IndexEntry = posts.IndexEntry

// Page is a rendered post with its neighbours.
type Page = posts.Page

// Option customises the module container.
type Option = di.Option

var (
	WithLoggerProvider = di.WithLoggerProvider
	WithTemplate       = di.WithTemplate
	WithMarkdown       = di.WithMarkdown
	WithMetrics        = di.WithMetrics
	WithClock          = di.WithClock
	WithTemplateFS     = di.WithTemplateFS
	WithStaticFS       = di.WithStaticFS
	WithDataFS         = di.WithDataFS
	WithContentFS      = di.WithContentFS
)

// ErrUnknownCollection is returned for collection names that are not configured.
var ErrUnknownCollection = generator.ErrUnknownCollection

// Module represents the top level publisher façade.
type Module struct {
	container *di.Container
	commands  *CommandSet
}

// New constructs a module using the provided configuration and optional
// container overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{
		container: container,
		commands:  newCommandSet(container),
	}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Config returns the validated configuration.
func (m *Module) Config() Config {
	return m.container.Config
}

// Publisher returns the generator for the configured publish mode.
func (m *Module) Publisher() PublisherService {
	return m.container.Publisher()
}

// Commands returns the command handlers built for this module.
func (m *Module) Commands() *CommandSet {
	return m.commands
}

// LoggerProvider returns the configured logger provider.
func (m *Module) LoggerProvider() interfaces.LoggerProvider {
	return m.container.LoggerProvider()
}

// Publish renders the whole site into the output directory.
func (m *Module) Publish(ctx context.Context, opts PublishOptions) (*PublishResult, error) {
	var result *PublishResult
	err := m.commands.PublishSite.Execute(ctx, publishcmd.PublishSiteCommand{
		Force:  opts.Force,
		DryRun: opts.DryRun,
		ResultCallback: func(r *generator.PublishResult) {
			result = r
		},
	})
	return result, err
}

// Index returns the listing entries of a collection in publication order.
func (m *Module) Index(ctx context.Context, collection string, force bool) ([]IndexEntry, error) {
	var entries []IndexEntry
	err := m.commands.ListPosts.Execute(ctx, publishcmd.ListPostsCommand{
		Collection: collection,
		Force:      force,
		ResultCallback: func(e []posts.IndexEntry) {
			entries = e
		},
	})
	return entries, err
}

// Reload rebuilds the named collections, or all of them, and returns the
// number of posts each now holds.
func (m *Module) Reload(ctx context.Context, collections ...string) (map[string]int, error) {
	counts := map[string]int{}
	err := m.commands.ReloadPosts.Execute(ctx, publishcmd.ReloadPostsCommand{
		Collections: collections,
		ResultCallback: func(snapshots map[string]*posts.Snapshot) {
			for name, snapshot := range snapshots {
				counts[name] = snapshot.Len()
			}
		},
	})
	return counts, err
}

// Post renders a single post of a collection with its neighbours.
func (m *Module) Post(ctx context.Context, collection, slug string) (*Page, error) {
	repo, ok := m.container.Repository(collection)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return posts.NewNavigator(repo, m.container.Markdown()).GetPage(ctx, slug, false)
}

// Server builds the live preview server listening on addr, or on the
// configured server address when addr is empty.
func (m *Module) Server(addr string) (*server.Server, error) {
	live, err := m.container.LivePublisher()
	if err != nil {
		return nil, err
	}
	cfg := m.container.Config
	if addr == "" {
		addr = cfg.Server.Addr
	}

	opts := []server.Option{
		server.WithStatic(m.container.StaticFS(), cfg.Site.AssetRoot),
		server.WithReloader(m.commands.ReloadPosts),
		server.WithLogger(logging.ServerLogger(m.container.LoggerProvider())),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	if prom := m.container.Prometheus(); prom != nil {
		opts = append(opts, server.WithMetrics(prom.Handler()))
	}
	return server.New(addr, live, opts...), nil
}

package publishcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-freeze/internal/commands"
	"github.com/goliatone/go-freeze/internal/generator"
	"github.com/goliatone/go-freeze/internal/posts"
	"github.com/goliatone/go-freeze/pkg/interfaces"
	goerrors "github.com/goliatone/go-errors"
)

// ErrPublisherRequired is returned when a handler runs without a publisher.
var ErrPublisherRequired = errors.New("publishcmd: publisher is required")

// Publisher publishes the site. *generator.Service satisfies it.
type Publisher interface {
	Publish(ctx context.Context, opts generator.PublishOptions) (*generator.PublishResult, error)
}

// PublishSiteHandler runs a publish through the shared command handler foundation.
type PublishSiteHandler struct {
	inner *commands.Handler[PublishSiteCommand]
}

// NewPublishSiteHandler constructs a handler wired to the provided publisher.
func NewPublishSiteHandler(publisher Publisher, logger interfaces.Logger, opts ...commands.HandlerOption[PublishSiteCommand]) *PublishSiteHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg PublishSiteCommand) error {
		if publisher == nil {
			return ErrPublisherRequired
		}
		result, err := publisher.Publish(ctx, generator.PublishOptions{
			Force:  msg.Force,
			DryRun: msg.DryRun,
		})
		if msg.ResultCallback != nil && result != nil {
			msg.ResultCallback(result)
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[PublishSiteCommand]{
		commands.WithLogger[PublishSiteCommand](baseLogger),
		commands.WithOperation[PublishSiteCommand]("site.publish"),
		commands.WithMessageFields(func(msg PublishSiteCommand) map[string]any {
			fields := map[string]any{}
			if msg.Force {
				fields["force"] = true
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[PublishSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &PublishSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[PublishSiteCommand].
func (h *PublishSiteHandler) Execute(ctx context.Context, msg PublishSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ReloadPostsHandler forces collections to reload from disk.
type ReloadPostsHandler struct {
	inner *commands.Handler[ReloadPostsCommand]
}

// NewReloadPostsHandler constructs a handler over the given collections.
func NewReloadPostsHandler(collections []generator.Collection, logger interfaces.Logger, opts ...commands.HandlerOption[ReloadPostsCommand]) *ReloadPostsHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ReloadPostsCommand) error {
		targets, err := selectCollections(collections, msg.Collections)
		if err != nil {
			return err
		}
		reloaded := make(map[string]*posts.Snapshot, len(targets))
		for _, collection := range targets {
			snapshot, err := collection.Load(ctx, true)
			if err != nil {
				return fmt.Errorf("publishcmd: reload %s: %w", collection.Name(), err)
			}
			reloaded[collection.Name()] = snapshot
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(reloaded)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ReloadPostsCommand]{
		commands.WithLogger[ReloadPostsCommand](baseLogger),
		commands.WithOperation[ReloadPostsCommand]("posts.reload"),
		commands.WithMessageFields(func(msg ReloadPostsCommand) map[string]any {
			if len(msg.Collections) == 0 {
				return nil
			}
			return map[string]any{"collections": strings.Join(msg.Collections, ",")}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ReloadPostsCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ReloadPostsHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ReloadPostsCommand].
func (h *ReloadPostsHandler) Execute(ctx context.Context, msg ReloadPostsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ListPostsHandler loads a collection and hands its index to the callback.
type ListPostsHandler struct {
	inner *commands.Handler[ListPostsCommand]
}

// NewListPostsHandler constructs a handler over the given collections.
func NewListPostsHandler(collections []generator.Collection, logger interfaces.Logger, opts ...commands.HandlerOption[ListPostsCommand]) *ListPostsHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ListPostsCommand) error {
		targets, err := selectCollections(collections, []string{msg.Collection})
		if err != nil {
			return err
		}
		snapshot, err := targets[0].Load(ctx, msg.Force)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(posts.BuildIndex(snapshot))
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ListPostsCommand]{
		commands.WithLogger[ListPostsCommand](baseLogger),
		commands.WithOperation[ListPostsCommand]("posts.list"),
		commands.WithMessageFields(func(msg ListPostsCommand) map[string]any {
			return map[string]any{"collection": msg.Collection}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ListPostsCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ListPostsHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ListPostsCommand].
func (h *ListPostsHandler) Execute(ctx context.Context, msg ListPostsCommand) error {
	return h.inner.Execute(ctx, msg)
}

func selectCollections(collections []generator.Collection, names []string) ([]generator.Collection, error) {
	if len(names) == 0 {
		return collections, nil
	}
	selected := make([]generator.Collection, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		found := false
		for _, collection := range collections {
			if collection != nil && collection.Name() == name {
				selected = append(selected, collection)
				found = true
				break
			}
		}
		if !found {
			return nil, goerrors.Wrap(generator.ErrUnknownCollection, goerrors.CategoryNotFound,
				fmt.Sprintf("collection %q is not configured", name)).
				WithTextCode("COLLECTION_NOT_FOUND")
		}
	}
	return selected, nil
}

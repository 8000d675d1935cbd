package freeze

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-command/dispatcher"

	"github.com/goliatone/go-freeze/internal/commands"
	publishcmd "github.com/goliatone/go-freeze/internal/commands/publish"
	"github.com/goliatone/go-freeze/internal/di"
)

// CommandSet holds the command handlers exposed by a module.
type CommandSet struct {
	PublishSite *publishcmd.PublishSiteHandler
	ReloadPosts *publishcmd.ReloadPostsHandler
	ListPosts   *publishcmd.ListPostsHandler
}

func newCommandSet(container *di.Container) *CommandSet {
	provider := container.LoggerProvider()
	collections := container.Collections()
	recorder := container.Metrics()
	return &CommandSet{
		PublishSite: publishcmd.NewPublishSiteHandler(container.Publisher(), commands.CommandLogger(provider, "site"),
			commands.WithRecorder[publishcmd.PublishSiteCommand](recorder)),
		ReloadPosts: publishcmd.NewReloadPostsHandler(collections, commands.CommandLogger(provider, "posts"),
			commands.WithRecorder[publishcmd.ReloadPostsCommand](recorder)),
		ListPosts: publishcmd.NewListPostsHandler(collections, commands.CommandLogger(provider, "posts"),
			commands.WithRecorder[publishcmd.ListPostsCommand](recorder)),
	}
}

// Handlers returns the handlers in registration order.
func (s *CommandSet) Handlers() []any {
	return []any{s.PublishSite, s.ReloadPosts, s.ListPosts}
}

// CommandDispatcher subscribes command handlers to a dispatcher implementation.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// RegistrationOptions configures how handlers are registered.
type RegistrationOptions struct {
	Dispatcher CommandDispatcher
}

// RegistrationResult captures the registered handlers and any dispatcher
// subscriptions.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// Unsubscribe releases every dispatcher subscription.
func (r *RegistrationResult) Unsubscribe() {
	for _, sub := range r.Subscriptions {
		sub.Unsubscribe()
	}
}

// RegisterCommands registers the module's command handlers with the
// configured dispatcher.
func RegisterCommands(m *Module, opts RegistrationOptions) (*RegistrationResult, error) {
	result := &RegistrationResult{}
	if m == nil || m.commands == nil {
		return result, nil
	}

	var errs error
	for _, handler := range m.commands.Handlers() {
		result.Handlers = append(result.Handlers, handler)
		if opts.Dispatcher == nil {
			continue
		}
		subscription, err := opts.Dispatcher.RegisterCommand(handler)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if subscription != nil {
			result.Subscriptions = append(result.Subscriptions, subscription)
		}
	}
	return result, errs
}

// GlobalDispatcher subscribes handlers to the go-command process dispatcher
// so messages sent with dispatcher.Dispatch reach them.
type GlobalDispatcher struct{}

// RegisterCommand satisfies CommandDispatcher.
func (GlobalDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	switch h := handler.(type) {
	case *publishcmd.PublishSiteHandler:
		return dispatcher.SubscribeCommand(h), nil
	case *publishcmd.ReloadPostsHandler:
		return dispatcher.SubscribeCommand(h), nil
	case *publishcmd.ListPostsHandler:
		return dispatcher.SubscribeCommand(h), nil
	}
	return nil, fmt.Errorf("freeze: unsupported command handler %T", handler)
}

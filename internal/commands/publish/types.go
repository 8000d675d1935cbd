package publishcmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-freeze/internal/generator"
	"github.com/goliatone/go-freeze/internal/posts"
)

const (
	publishSiteMessageType = "freeze.site.publish"
	reloadPostsMessageType = "freeze.posts.reload"
	listPostsMessageType   = "freeze.posts.list"
)

// ResultCallback receives the publish result. The callback is optional and is
// invoked synchronously from the handler, also when the publish failed part way.
type ResultCallback func(*generator.PublishResult)

// PublishSiteCommand publishes the whole site.
type PublishSiteCommand struct {
	Force          bool           `json:"force,omitempty"`
	DryRun         bool           `json:"dry_run,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (PublishSiteCommand) Type() string { return publishSiteMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (PublishSiteCommand) Validate() error { return nil }

// ReloadPostsCommand forces collections to be rebuilt from their sources.
// An empty Collections list reloads every collection.
type ReloadPostsCommand struct {
	Collections    []string                        `json:"collections,omitempty"`
	ResultCallback func(map[string]*posts.Snapshot) `json:"-"`
}

// Type implements command.Message.
func (ReloadPostsCommand) Type() string { return reloadPostsMessageType }

// Validate rejects blank collection names.
func (m ReloadPostsCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Collections, validation.Each(validation.By(notBlank))),
	)
}

// ListPostsCommand returns the index of one collection.
type ListPostsCommand struct {
	Collection     string                   `json:"collection"`
	Force          bool                     `json:"force,omitempty"`
	ResultCallback func([]posts.IndexEntry) `json:"-"`
}

// Type implements command.Message.
func (ListPostsCommand) Type() string { return listPostsMessageType }

// Validate requires a collection name.
func (m ListPostsCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Collection, validation.Required, validation.By(notBlank)),
	)
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("freeze.collection.blank", "collection names must not be blank")
	}
	return nil
}

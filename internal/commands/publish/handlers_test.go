package publishcmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-freeze/internal/generator"
	"github.com/goliatone/go-freeze/internal/normalize"
	"github.com/goliatone/go-freeze/internal/posts"
	goerrors "github.com/goliatone/go-errors"
)

type fakePublisher struct {
	publishFunc func(context.Context, generator.PublishOptions) (*generator.PublishResult, error)
}

func (f *fakePublisher) Publish(ctx context.Context, opts generator.PublishOptions) (*generator.PublishResult, error) {
	return f.publishFunc(ctx, opts)
}

func TestPublishSiteHandlerPassesOptions(t *testing.T) {
	for _, fixture := range []string{"publish_force.json", "publish_dry_run.json"} {
		cmd := loadPublishFixture(t, fixture)

		var captured generator.PublishOptions
		publisher := &fakePublisher{publishFunc: func(_ context.Context, opts generator.PublishOptions) (*generator.PublishResult, error) {
			captured = opts
			return &generator.PublishResult{PagesBuilt: 3, DryRun: opts.DryRun}, nil
		}}

		var got *generator.PublishResult
		cmd.ResultCallback = func(result *generator.PublishResult) {
			got = result
		}

		if err := NewPublishSiteHandler(publisher, nil).Execute(context.Background(), cmd); err != nil {
			t.Fatalf("%s: execute: %v", fixture, err)
		}
		if captured.Force != cmd.Force || captured.DryRun != cmd.DryRun {
			t.Fatalf("%s: unexpected options %+v", fixture, captured)
		}
		if got == nil || got.PagesBuilt != 3 {
			t.Fatalf("%s: expected result callback, got %+v", fixture, got)
		}
	}
}

func TestPublishSiteHandlerReportsPartialResult(t *testing.T) {
	renderErr := errors.New("render failed")
	publisher := &fakePublisher{publishFunc: func(context.Context, generator.PublishOptions) (*generator.PublishResult, error) {
		return &generator.PublishResult{PagesBuilt: 2, PagesFailed: 1}, renderErr
	}}

	var got *generator.PublishResult
	err := NewPublishSiteHandler(publisher, nil).Execute(context.Background(), PublishSiteCommand{
		ResultCallback: func(result *generator.PublishResult) { got = result },
	})
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected render error, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if got == nil || got.PagesFailed != 1 {
		t.Fatalf("expected partial result, got %+v", got)
	}
}

func TestPublishSiteHandlerRequiresPublisher(t *testing.T) {
	err := NewPublishSiteHandler(nil, nil).Execute(context.Background(), PublishSiteCommand{})
	if !errors.Is(err, ErrPublisherRequired) {
		t.Fatalf("expected ErrPublisherRequired, got %v", err)
	}
}

func TestReloadPostsHandlerForcesReload(t *testing.T) {
	fsys := fstest.MapFS{
		"first.md": {Data: []byte("---\ntitle: First\ndate: 2024-01-01\n---\nBody\n")},
	}
	repo := testRepository("news", fsys)
	before, err := repo.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fsys["second.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Second\ndate: 2024-02-01\n---\nBody\n")}

	var reloaded map[string]*posts.Snapshot
	handler := NewReloadPostsHandler([]generator.Collection{repo}, nil)
	err = handler.Execute(context.Background(), ReloadPostsCommand{
		ResultCallback: func(snapshots map[string]*posts.Snapshot) { reloaded = snapshots },
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if before.Len() != 1 || reloaded["news"].Len() != 2 {
		t.Fatalf("expected reload to pick up new file, before=%d after=%d", before.Len(), reloaded["news"].Len())
	}
	after, _ := repo.Load(context.Background(), false)
	if after != reloaded["news"] {
		t.Fatal("expected the reloaded snapshot to be cached")
	}
}

func TestReloadPostsHandlerValidation(t *testing.T) {
	handler := NewReloadPostsHandler(nil, nil)

	err := handler.Execute(context.Background(), ReloadPostsCommand{Collections: []string{" "}})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = handler.Execute(context.Background(), ReloadPostsCommand{Collections: []string{"events"}})
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %v", err)
	}
	if !errors.Is(err, generator.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestListPostsHandlerReturnsIndex(t *testing.T) {
	repo := testRepository("news", fstest.MapFS{
		"older.md": {Data: []byte("---\ntitle: Older\ndate: 2024-01-01\n---\nBody\n")},
		"newer.md": {Data: []byte("---\ntitle: Newer\ndate: 2024-05-01\n---\nBody\n")},
	})

	var entries []posts.IndexEntry
	err := NewListPostsHandler([]generator.Collection{repo}, nil).Execute(context.Background(), ListPostsCommand{
		Collection:     "news",
		ResultCallback: func(got []posts.IndexEntry) { entries = got },
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(entries) != 2 || entries[0].Title != "Newer" || entries[1].Title != "Older" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	err = NewListPostsHandler(nil, nil).Execute(context.Background(), ListPostsCommand{})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation error for missing collection, got %v", err)
	}
}

func testRepository(name string, fsys fstest.MapFS) *posts.Repository {
	builder := posts.NewBuilder(posts.BuilderConfig{
		Collection:   name,
		RoutePrefix:  name,
		SlugStrategy: normalize.SlugFilename,
	})
	return posts.NewRepository(name, posts.NewFSSource(fsys, posts.SourceOptions{}), builder)
}

func loadPublishFixture(t *testing.T, name string) PublishSiteCommand {
	t.Helper()
	var cmd PublishSiteCommand
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		t.Fatalf("unmarshal fixture %s: %v", name, err)
	}
	return cmd
}

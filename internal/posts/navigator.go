package posts

import (
	"context"
	"fmt"

	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// Navigator resolves a slug into a rendered page with its neighbours.
type Navigator struct {
	loader   Loader
	renderer interfaces.MarkdownRenderer
}

// NewNavigator returns a Navigator reading from loader and rendering bodies
// with renderer.
func NewNavigator(loader Loader, renderer interfaces.MarkdownRenderer) *Navigator {
	return &Navigator{loader: loader, renderer: renderer}
}

// GetPage loads the collection and resolves slug against it.
func (n *Navigator) GetPage(ctx context.Context, slug string, force bool) (*Page, error) {
	snapshot, err := n.loader.Load(ctx, force)
	if err != nil {
		return nil, err
	}
	return n.Resolve(snapshot, slug)
}

// Resolve builds the page for slug against an already loaded snapshot.
// Prev is the more recent neighbour and Next the older one.
func (n *Navigator) Resolve(snapshot *Snapshot, slug string) (*Page, error) {
	if snapshot.Len() == 0 {
		return nil, emptyError(snapshot.Collection())
	}
	record, idx, ok := snapshot.Lookup(slug)
	if !ok {
		return nil, notFoundError(snapshot.Collection(), slug)
	}

	page := &Page{
		Record: record,
		Prev:   stubFor(snapshot.At(idx - 1)),
		Next:   stubFor(snapshot.At(idx + 1)),
	}
	if n.renderer == nil {
		page.HTML = record.Body
		return page, nil
	}
	rendered, err := n.renderer.Render([]byte(record.Body))
	if err != nil {
		return nil, fmt.Errorf("posts: render %s: %w", record.SourcePath, err)
	}
	page.HTML = string(rendered.HTML)
	page.TOC = rendered.TOC
	return page, nil
}

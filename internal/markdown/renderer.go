// Package markdown renders post bodies to HTML with goldmark and collects
// the heading outline used for tables of contents.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// DefaultExtensions is the extension set applied when none is configured:
// tables, smart typography, footnotes, definition lists and strikethrough.
// Fenced code, heading IDs and attribute lists are always enabled.
var DefaultExtensions = []string{"table", "typographer", "footnote", "definition", "strikethrough"}

// Renderer implements interfaces.MarkdownRenderer. A single instance is safe
// for concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

var _ interfaces.MarkdownRenderer = (*Renderer)(nil)

// NewRenderer builds a goldmark engine from opts. Raw HTML in the source is
// emitted untouched unless SafeMode is set.
func NewRenderer(opts interfaces.MarkdownOptions) *Renderer {
	return &Renderer{engine: newGoldmarkEngine(opts)}
}

// Render converts markdown to HTML and returns the heading outline.
func (r *Renderer) Render(markdown []byte) (*interfaces.RenderedMarkdown, error) {
	doc := r.engine.Parser().Parse(text.NewReader(markdown))

	var buf bytes.Buffer
	if err := r.engine.Renderer().Render(&buf, markdown, doc); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	toc, err := collectHeadings(doc, markdown)
	if err != nil {
		return nil, fmt.Errorf("markdown toc: %w", err)
	}
	return &interfaces.RenderedMarkdown{HTML: buf.Bytes(), TOC: toc}, nil
}

func collectHeadings(doc ast.Node, source []byte) ([]interfaces.Heading, error) {
	var headings []interfaces.Heading
	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := node.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		entry := interfaces.Heading{
			Level: heading.Level,
			Text:  strings.TrimSpace(string(heading.Text(source))),
		}
		if id, ok := heading.AttributeString("id"); ok {
			switch v := id.(type) {
			case []byte:
				entry.ID = string(v)
			case string:
				entry.ID = v
			}
		}
		headings = append(headings, entry)
		return ast.WalkSkipChildren, nil
	})
	return headings, err
}

func newGoldmarkEngine(opts interfaces.MarkdownOptions) goldmark.Markdown {
	parserOptions := []parser.Option{
		parser.WithAutoHeadingID(),
		parser.WithAttribute(),
	}

	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parserOptions...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	if exts := collectExtensions(opts.Extensions); len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}
	return goldmark.New(engineOptions...)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
	"smartypants":   extension.Typographer,
}

// KnownExtension reports whether name is a supported extension.
func KnownExtension(name string) bool {
	_, ok := extensionRegistry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		names = DefaultExtensions
	}

	var extenders []goldmark.Extender
	seen := map[goldmark.Extender]struct{}{}
	for _, name := range names {
		ext, ok := extensionRegistry[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		extenders = append(extenders, ext)
	}
	return extenders
}

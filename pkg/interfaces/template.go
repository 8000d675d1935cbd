package interfaces

import "io"

// TemplateRenderer is the page templating collaborator of the publisher.
//
// The publisher registers its "asset" and "link" reference filters through
// RegisterFilter and seeds site wide values through GlobalContext before the
// first render. Templates receive filters as functions of the piped value
// and one parameter, usually the route being rendered.
type TemplateRenderer interface {
	// RenderTemplate executes the named template. When out is supplied the
	// result is streamed there and the returned string is empty.
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

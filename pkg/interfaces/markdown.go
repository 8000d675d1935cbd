package interfaces

// MarkdownRenderer converts a Markdown body into trusted HTML. Raw HTML in
// the source is emitted verbatim.
type MarkdownRenderer interface {
	Render(markdown []byte) (*RenderedMarkdown, error)
}

// RenderedMarkdown carries the HTML output together with the heading outline
// collected while rendering.
type RenderedMarkdown struct {
	HTML []byte
	TOC  []Heading
}

// Heading describes one entry of a rendered document outline.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// MarkdownOptions customises Markdown rendering, keeping option names
// readable for configuration unmarshalling.
type MarkdownOptions struct {
	Extensions []string `yaml:"extensions" json:"extensions"`
	HardWraps  bool     `yaml:"hard_wraps" json:"hard_wraps"`
	SafeMode   bool     `yaml:"safe_mode" json:"safe_mode"`
}

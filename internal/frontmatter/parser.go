package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Mode selects how strictly a metadata block is required.
type Mode string

const (
	// ModeStrict requires the file to open with a delimited block.
	ModeStrict Mode = "strict"
	// ModeLenient accepts files without a block, returning empty metadata.
	ModeLenient Mode = "lenient"
)

const delimiter = "---"

var (
	// ErrMissingFrontMatter is returned in strict mode when the file does not
	// open with a delimited metadata block.
	ErrMissingFrontMatter = errors.New("frontmatter: missing metadata block")
	// ErrUnknownMode is returned by ParseMode for unsupported names.
	ErrUnknownMode = errors.New("frontmatter: unknown parse mode")
)

var yamlFormat = frontmatter.NewFormat(delimiter, delimiter, yaml.Unmarshal)

// ParseMode maps a configured name onto a Mode. An empty name selects
// lenient parsing.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeLenient:
		return ModeLenient, nil
	case ModeStrict:
		return ModeStrict, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Parser splits raw content files into metadata and body.
type Parser struct {
	mode Mode
}

// NewParser returns a parser for the given mode. Unknown modes fall back to
// lenient parsing.
func NewParser(mode Mode) *Parser {
	if mode != ModeStrict {
		mode = ModeLenient
	}
	return &Parser{mode: mode}
}

// Mode reports the parsing mode in use.
func (p *Parser) Mode() Mode {
	return p.mode
}

// Parse extracts the metadata block and returns the remaining body with
// leading blank lines removed. Malformed YAML is always an error.
func (p *Parser) Parse(data []byte) (FrontMatter, []byte, error) {
	if p.mode == ModeStrict {
		return parseStrict(data)
	}
	return parseLenient(data)
}

func parseStrict(data []byte) (FrontMatter, []byte, error) {
	text := bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(text, []byte(delimiter+"\n")) && !bytes.HasPrefix(text, []byte(delimiter+"\r\n")) {
		return FrontMatter{}, nil, ErrMissingFrontMatter
	}

	var fm FrontMatter
	body, err := frontmatter.MustParse(bytes.NewReader(text), &fm, yamlFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return FrontMatter{}, nil, ErrMissingFrontMatter
		}
		return FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	return fm, trimLeadingBlankLines(body), nil
}

func parseLenient(data []byte) (FrontMatter, []byte, error) {
	text := bytes.TrimPrefix(data, []byte("\ufeff"))
	lines := bytes.SplitAfter(text, []byte("\n"))

	open := -1
	for i, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if string(trimmed) == delimiter {
			open = i
		}
		break
	}
	if open < 0 {
		return FrontMatter{}, data, nil
	}

	closing := -1
	for i := open + 1; i < len(lines); i++ {
		if string(bytes.TrimSpace(lines[i])) == delimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		return FrontMatter{}, data, nil
	}

	block := bytes.Join(lines[open+1:closing], nil)
	var fm FrontMatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	body := bytes.Join(lines[closing+1:], nil)
	return fm, trimLeadingBlankLines(body), nil
}

func trimLeadingBlankLines(body []byte) []byte {
	for len(body) > 0 {
		idx := bytes.IndexByte(body, '\n')
		if idx < 0 {
			if len(bytes.TrimSpace(body)) == 0 {
				return []byte{}
			}
			return body
		}
		if len(bytes.TrimSpace(body[:idx])) != 0 {
			return body
		}
		body = body[idx+1:]
	}
	return body
}

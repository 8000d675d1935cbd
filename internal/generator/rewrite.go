package generator

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// rewriteReferences applies the relativizer to root relative href, src and
// poster attributes of an HTML fragment. Tokens that need no change are
// copied byte for byte.
func rewriteReferences(fragment, route string, rel Relativizer) (string, error) {
	if rel.Mode == ModeLive || !strings.Contains(fragment, "/") {
		return fragment, nil
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var out strings.Builder
	out.Grow(len(fragment))
	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return out.String(), nil
			}
			return "", tokenizer.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			raw := append([]byte(nil), tokenizer.Raw()...)
			token := tokenizer.Token()
			if rewriteToken(&token, route, rel) {
				out.WriteString(token.String())
			} else {
				out.Write(raw)
			}
		default:
			out.Write(tokenizer.Raw())
		}
	}
}

func rewriteToken(token *html.Token, route string, rel Relativizer) bool {
	changed := false
	assetPrefix := "/" + rel.assetRoot() + "/"
	for i, attr := range token.Attr {
		if attr.Namespace != "" || !isRootRelative(attr.Val) {
			continue
		}
		var next string
		switch {
		case attr.Key == "src" || attr.Key == "poster":
			next = rel.AssetReference(attr.Val, route)
		case attr.Key == "href" && token.Data == "link":
			next = rel.AssetReference(attr.Val, route)
		case attr.Key == "href" && strings.HasPrefix(attr.Val, assetPrefix):
			next = rel.AssetReference(attr.Val, route)
		case attr.Key == "href":
			next = rel.LinkReference(attr.Val, route)
		default:
			continue
		}
		if next != attr.Val {
			token.Attr[i].Val = next
			changed = true
		}
	}
	return changed
}

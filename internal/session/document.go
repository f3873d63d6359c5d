// internal/session/document.go
package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/docdriver/internal/locator"
	"github.com/xkilldash9x/docdriver/internal/script"
)

// Text returns the rendered text of the document body.
func (s *Session) Text(ctx context.Context) (string, error) {
	v, err := s.Eval(ctx, bodyText(s.scope))
	return asString(v), err
}

// HTML returns the document's serialized markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	v, err := s.Eval(ctx, bodyHTML(s.scope))
	return asString(v), err
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	v, err := s.Eval(ctx, bodyTitle(s.scope))
	return asString(v), err
}

// ContainsText reports whether the body text contains v. Patterns are
// evaluated by the page's own regular expression engine.
func (s *Session) ContainsText(ctx context.Context, v locator.Value) (bool, error) {
	expr := "text.indexOf(" + script.Quote(v.Text) + ") != -1"
	if v.IsPattern() {
		expr = script.Regexp(v.Pattern.Source, v.Pattern.CaseInsensitive) + ".test(text)"
	}
	reply, err := s.Eval(ctx, bodyContains(s.scope, expr))
	if err != nil {
		return false, err
	}
	return asBool(reply), nil
}

// Snapshot parses the document's current markup.
func (s *Session) Snapshot(ctx context.Context) (*html.Node, error) {
	markup, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// Link is an anchor found in a snapshot.
type Link struct {
	Text   string
	Href   string
	Target string
}

// Links lists the document's anchors in document order. Relative hrefs are
// resolved against the document URL and the BASE href, when present.
func (s *Session) Links(ctx context.Context) ([]Link, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	base, _ := s.URL(ctx)
	return ExtractLinks(doc, base), nil
}

// ExtractLinks walks doc for anchors with an href.
func ExtractLinks(doc *html.Node, pageURL string) []Link {
	base, _ := url.Parse(pageURL)
	var links []Link

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Base:
				if href := attr(n, "href"); href != "" {
					base = resolve(base, href)
				}
			case atom.A:
				if href := attr(n, "href"); href != "" {
					u := href
					if r := resolve(base, href); r != nil {
						u = r.String()
					}
					links = append(links, Link{
						Text:   strings.Join(strings.Fields(textOf(n)), " "),
						Href:   u,
						Target: attr(n, "target"),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func resolve(base *url.URL, href string) *url.URL {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	if base == nil {
		return ref
	}
	return base.ResolveReference(ref)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

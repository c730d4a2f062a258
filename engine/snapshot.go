package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Snapshot is a PageHandle over static HTML. It serves pages fetched without
// a browser and lets field extraction be exercised against fixtures.
type Snapshot struct {
	doc   *goquery.Document
	title string
}

// NewSnapshot parses rawHTML. If the document has no <title>, fallbackTitle
// is reported instead. Titles are normalized the way document.title is.
func NewSnapshot(rawHTML, fallbackTitle string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse html: %w", err)
	}
	title := DocumentTitle(doc.Find("title").First().Text())
	if title == "" {
		title = DocumentTitle(fallbackTitle)
	}
	return &Snapshot{doc: doc, title: title}, nil
}

// DocumentTitle returns the text of a <title> element as a browser's
// document.title reports it: ASCII whitespace stripped from both ends and
// collapsed to single spaces inside. Other characters are kept as is.
func DocumentTitle(raw string) string {
	return strings.Join(strings.FieldsFunc(raw, isASCIIWhitespace), " ")
}

func isASCIIWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

// Title returns the document title.
func (s *Snapshot) Title(context.Context) (string, error) {
	return s.title, nil
}

// Text returns the textContent of the first element matching selector,
// untrimmed.
func (s *Snapshot) Text(_ context.Context, selector string) (string, error) {
	sel, err := s.first(selector)
	if err != nil {
		return "", err
	}
	return sel.Text(), nil
}

// Attr returns the named attribute of the first element matching selector.
func (s *Snapshot) Attr(_ context.Context, selector, name string) (string, error) {
	sel, err := s.first(selector)
	if err != nil {
		return "", err
	}
	v, ok := sel.Attr(name)
	if !ok {
		return "", fmt.Errorf("%w: %s[%s]", ErrNoElement, selector, name)
	}
	return v, nil
}

// Close is a no-op; snapshots hold no external resources.
func (s *Snapshot) Close() error { return nil }

func (s *Snapshot) first(selector string) (*goquery.Selection, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("snapshot: invalid selector %q: %w", selector, err)
	}
	sel := s.doc.FindMatcher(m).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	return sel, nil
}

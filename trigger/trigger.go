// Package trigger recognises IMDb title-page links in chat messages.
package trigger

import (
	"regexp"
	"strings"
)

// titleURL matches an IMDb title page. It is anchored only at the start, so
// anything may follow the /title path prefix.
var titleURL = regexp.MustCompile(`(?i)^https?://(www\.)?(m\.)?imdb\.com/title`)

// IsTriggerURL reports whether the whole message content starts with a
// title-page URL. A link preceded by other text does not qualify; this gate
// runs before FindTriggerURL and is stricter than it.
func IsTriggerURL(text string) bool {
	return titleURL.MatchString(strings.TrimSpace(text))
}

// FindTriggerURL returns the first whitespace-separated token that is a
// title-page URL. ok is false when the text holds no such token.
func FindTriggerURL(text string) (url string, ok bool) {
	for _, token := range strings.Fields(text) {
		if titleURL.MatchString(token) {
			return token, true
		}
	}
	return "", false
}

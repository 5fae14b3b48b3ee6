package feed

import (
	"regexp"
	"strings"
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// Tokens holds the navigable entities extracted from a thread body.
type Tokens struct {
	Hashtags []string
	Mentions []string
}

// ExtractTokens scans a thread body for #hashtag and @mention tokens.
// Hashtags are lowercased for counting; mentions keep their original case
// (username resolution is case-insensitive downstream). Both lists are
// deduplicated in first-seen order. Pure function, no side effects.
func ExtractTokens(body string) Tokens {
	var tokens Tokens

	seen := make(map[string]bool)
	for _, tag := range hashtagPattern.FindAllString(body, -1) {
		tag = strings.ToLower(tag)
		if !seen[tag] {
			seen[tag] = true
			tokens.Hashtags = append(tokens.Hashtags, tag)
		}
	}

	seenMention := make(map[string]bool)
	for _, m := range mentionPattern.FindAllString(body, -1) {
		username := strings.TrimPrefix(m, "@")
		key := strings.ToLower(username)
		if !seenMention[key] {
			seenMention[key] = true
			tokens.Mentions = append(tokens.Mentions, username)
		}
	}

	return tokens
}

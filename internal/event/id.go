package event

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 48

// NewID derives an event identifier from the creation timestamp and title,
// e.g. "2026-01-26_0900_sunday-service". Identifiers are immutable once
// assigned.
func NewID(createdAt time.Time, title string) string {
	return createdAt.Format("2006-01-02_1504") + "_" + Slugify(title)
}

// Slugify lowercases the title, folds diacritics, and reduces it to a
// hyphen-separated ASCII slug suitable for directory names.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "event"
	}
	return slug
}

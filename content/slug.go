package content

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/eringen/notionpress/notion"
)

// IDSlugPrefix marks slugs built from a record id rather than its title.
const IDSlugPrefix = "post-"

var (
	reNonSlug   = regexp.MustCompile(`[^\w\s-]`)
	reSeparator = regexp.MustCompile(`[\s_-]+`)
)

// IDSlug returns the id-derived slug for id.
func IDSlug(id string) string {
	if id == "" {
		return IDSlugPrefix + "unknown"
	}
	return IDSlugPrefix + id
}

// IDFromSlug reverses IDSlug.
func IDFromSlug(slug string) (string, bool) {
	if !strings.HasPrefix(slug, IDSlugPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(slug, IDSlugPrefix)
	return id, id != ""
}

// Slugify lower-cases s, drops characters that are not word characters,
// spaces or hyphens, and joins the remaining words with single hyphens.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = reNonSlug.ReplaceAllString(s, "")
	s = reSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// hasCJK reports whether s contains Han ideographs or kana, which Slugify
// would strip to nothing meaningful.
func hasCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

// ResolveSlug returns the URL identifier for p: the Slug column when set,
// else a slug derived from the title, else the id-derived slug.
//
// Slugs starting with IDSlugPrefix always name the record's own id. A Slug
// column or title that would produce such a slug for another id is ignored.
func ResolveSlug(p *notion.Page) string {
	slug, _ := resolveSlug(p, "")
	return slug
}

// resolveSlug reports whether the id-derived fallback was used. title is the
// already extracted title; it is looked up when empty.
func resolveSlug(p *notion.Page, title string) (string, bool) {
	if s, ok := extractSlugColumn(p); ok && usableSlug(s, p.ID) {
		return s, false
	}
	if title == "" {
		title, _ = extractTitle(p)
	}
	if !hasCJK(title) {
		if s := Slugify(title); s != "" && usableSlug(s, p.ID) {
			return s, false
		}
	}
	return IDSlug(p.ID), true
}

// usableSlug reports whether s resolves back to the record with id.
func usableSlug(s, id string) bool {
	if !strings.HasPrefix(s, IDSlugPrefix) {
		return true
	}
	return id != "" && s == IDSlug(id)
}

package content

import "github.com/eringen/notionpress/notion"

const (
	UntitledTitle = "Untitled"
	ErrorTitle    = "Error loading post"
)

// Normalize builds PostMetadata from a raw record. It never fails; see
// NormalizeResult for whether fallbacks were used.
func Normalize(p *notion.Page) PostMetadata {
	return NormalizeResult(p).Value
}

// NormalizeResult builds PostMetadata from a raw record and reports every
// field that fell back to its default.
func NormalizeResult(p *notion.Page) Result[PostMetadata] {
	if p == nil {
		return Degraded(PostMetadata{
			Title: ErrorTitle,
			Slug:  IDSlug(""),
			Tags:  []string{},
		}, "nil record")
	}
	if p.Properties == nil {
		return Degraded(PostMetadata{
			ID:    p.ID,
			Title: ErrorTitle,
			Slug:  IDSlug(p.ID),
			Tags:  []string{},
		}, "record has no properties")
	}

	var reasons []string
	m := PostMetadata{ID: p.ID}

	title, ok := extractTitle(p)
	if ok {
		m.Title = title
	} else {
		m.Title = UntitledTitle
		reasons = append(reasons, "title missing")
	}
	m.Description, _ = extractDescription(p)
	m.Date, _ = extractDate(p)
	m.Tags, _ = extractTags(p)
	m.Thumbnail, _ = extractThumbnail(p)

	slug, fallback := resolveSlug(p, title)
	m.Slug = slug
	if fallback {
		reasons = append(reasons, "slug derived from id")
	}
	if p.ID == "" {
		reasons = append(reasons, "record has no id")
	}

	if len(reasons) > 0 {
		return Degraded(m, reasons...)
	}
	return Ok(m)
}

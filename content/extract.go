package content

import (
	"strings"

	"github.com/eringen/notionpress/notion"
)

// Column names of the blog database.
const (
	ColumnName        = "Name"
	ColumnTitle       = "Title"
	ColumnDescription = "Description"
	ColumnDate        = "Date"
	ColumnSlug        = "Slug"
	ColumnTags        = "Tags"
	ColumnThumbnail   = "Thumbnail"
	ColumnPublished   = "Published"
)

// Each extractor returns ok=false when the column is missing, has another
// shape, or is empty. Callers substitute the field default.

func extractTitle(p *notion.Page) (string, bool) {
	for _, col := range []string{ColumnName, ColumnTitle} {
		if c, ok := p.Cell(col); ok && len(c.Title) > 0 && c.Title[0].PlainText != "" {
			return c.Title[0].PlainText, true
		}
	}
	return "", false
}

func extractDescription(p *notion.Page) (string, bool) {
	c, ok := p.Cell(ColumnDescription)
	if !ok || len(c.RichText) == 0 || c.RichText[0].PlainText == "" {
		return "", false
	}
	return c.RichText[0].PlainText, true
}

func extractDate(p *notion.Page) (string, bool) {
	c, ok := p.Cell(ColumnDate)
	if !ok || c.Date == nil || c.Date.Start == "" {
		return "", false
	}
	return c.Date.Start, true
}

func extractTags(p *notion.Page) ([]string, bool) {
	c, ok := p.Cell(ColumnTags)
	if !ok || c.MultiSelect == nil {
		return []string{}, false
	}
	tags := make([]string, 0, len(c.MultiSelect))
	for _, opt := range c.MultiSelect {
		if opt.Name != "" {
			tags = append(tags, opt.Name)
		}
	}
	return tags, true
}

// extractThumbnail reads the first attached file. Hosted ("file") URLs are
// signed and expire after about an hour.
func extractThumbnail(p *notion.Page) (string, bool) {
	c, ok := p.Cell(ColumnThumbnail)
	if !ok || len(c.Files) == 0 {
		return "", false
	}
	f := c.Files[0]
	switch f.Type {
	case "external":
		if f.External != nil && f.External.URL != "" {
			return f.External.URL, true
		}
	case "file":
		if f.File != nil && f.File.URL != "" {
			return f.File.URL, true
		}
	case "":
		if f.File != nil && f.File.URL != "" {
			return f.File.URL, true
		}
		if f.External != nil && f.External.URL != "" {
			return f.External.URL, true
		}
	}
	return "", false
}

// extractSlugColumn reads the Slug column as rich text or as a string formula.
func extractSlugColumn(p *notion.Page) (string, bool) {
	c, ok := p.Cell(ColumnSlug)
	if !ok {
		return "", false
	}
	if len(c.RichText) > 0 {
		if s := strings.TrimSpace(c.RichText[0].PlainText); s != "" {
			return s, true
		}
	}
	if c.Formula != nil && c.Formula.String != nil {
		if s := strings.TrimSpace(*c.Formula.String); s != "" {
			return s, true
		}
	}
	return "", false
}

// IsPublished reports whether the Published checkbox is ticked.
func IsPublished(p *notion.Page) bool {
	c, ok := p.Cell(ColumnPublished)
	return ok && c.Checkbox != nil && *c.Checkbox
}

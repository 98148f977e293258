// Package content turns records of the blog's Notion database into the post
// shapes the HTTP layer serves. Records are read defensively: a missing or
// oddly typed column degrades one field, never the whole post.
package content

import "encoding/json"

// PostMetadata is the page-ready description of a post.
type PostMetadata struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Slug        string   `json:"slug"`
	Tags        []string `json:"tags"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

// PostContent is a post with its block content. Content is the upstream block
// list, passed through as-is.
type PostContent struct {
	Metadata PostMetadata      `json:"metadata"`
	Content  []json.RawMessage `json:"content"`
}

// RelatedPost is the reduced projection used in listings of related posts.
type RelatedPost struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Date      string `json:"date"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Related projects m to a RelatedPost.
func (m PostMetadata) Related() RelatedPost {
	return RelatedPost{
		Title:     m.Title,
		Slug:      m.Slug,
		Date:      m.Date,
		Thumbnail: m.Thumbnail,
	}
}

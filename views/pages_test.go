package views

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/notionpress/content"
)

var testSite = SiteConfig{
	Name:        "Notes",
	URL:         "https://blog.example.com",
	Description: "Writing about Go",
	Author:      "Ada",
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestHomeListsPosts(t *testing.T) {
	out := render(t, Home(testSite, []content.PostMetadata{
		{ID: "1", Title: "First <post>", Slug: "first-post", Date: "2024-02-01", Tags: []string{"go"}, Thumbnail: "https://s3/x.png"},
		{ID: "2", Title: "Second", Slug: "second", Tags: []string{}},
	}))

	assert.Contains(t, out, `<title>Notes</title>`)
	assert.Contains(t, out, `href="/blog/first-post/"`)
	assert.Contains(t, out, "First &lt;post&gt;")
	assert.NotContains(t, out, "First <post>")
	assert.Contains(t, out, `src="/api/thumbnails/first-post"`)
	assert.Contains(t, out, `<time datetime="2024-02-01">`)
	assert.Contains(t, out, `"@type":"WebSite"`)
	assert.Equal(t, 1, strings.Count(out, "<time"))
}

func TestHomeWithoutPosts(t *testing.T) {
	out := render(t, Home(testSite, nil))
	assert.Contains(t, out, "No posts yet.")
}

func TestPostPage(t *testing.T) {
	post := content.PostMetadata{ID: "abc", Title: "Hello World", Description: "Intro", Slug: "hello-world", Date: "2024-01-01", Tags: []string{"go", "web"}}
	body := templ.Raw("<p>body text</p>")
	related := []content.RelatedPost{{Title: "Other", Slug: "other", Date: "2023-12-01"}}

	out := render(t, Post(testSite, post, body, related))

	assert.Contains(t, out, "<title>Hello World | Notes</title>")
	assert.Contains(t, out, `<link rel="canonical" href="https://blog.example.com/blog/hello-world/">`)
	assert.Contains(t, out, `<meta property="og:type" content="article">`)
	assert.Contains(t, out, "<p>body text</p>")
	assert.Contains(t, out, `href="/blog/other/"`)
	assert.Contains(t, out, `data-slug="hello-world"`)
}

func TestPostPageWithoutRelated(t *testing.T) {
	post := content.PostMetadata{Title: "Solo", Slug: "solo", Tags: []string{}}
	out := render(t, Post(testSite, post, templ.Raw(""), []content.RelatedPost{}))
	assert.NotContains(t, out, "Related posts")
}

func TestErrorPages(t *testing.T) {
	assert.Contains(t, render(t, NotFound(testSite)), "Page not found")
	assert.Contains(t, render(t, ServerError(testSite)), "Something went wrong")
}

func TestBlogPostingJsonLD(t *testing.T) {
	post := content.PostMetadata{Title: "T", Description: "D", Slug: "t", Date: "2024-01-01", Tags: []string{"a", "b"}, Thumbnail: "https://s3/t.png"}

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(BlogPostingJsonLD(testSite, post)), &data))

	assert.Equal(t, "BlogPosting", data["@type"])
	assert.Equal(t, "https://blog.example.com/blog/t/", data["url"])
	assert.Equal(t, "a, b", data["keywords"])
	assert.Equal(t, "https://blog.example.com/api/thumbnails/t", data["image"])
	assert.Equal(t, map[string]interface{}{"@type": "Person", "name": "Ada"}, data["author"])
}

func TestJsonLDCannotCloseScript(t *testing.T) {
	post := content.PostMetadata{Title: "</script><script>alert(1)</script>", Slug: "x"}
	assert.NotContains(t, BlogPostingJsonLD(testSite, post), "</script>")
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://blog.example.com", BuildURL("https://blog.example.com"))
	assert.Equal(t, "https://blog.example.com/blog/x/", BuildURL("https://blog.example.com", "blog", "x"))
	assert.Equal(t, "https://blog.example.com/sub/blog/x/", BuildURL("https://blog.example.com/sub/", "blog", "x"))
}

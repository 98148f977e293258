package notionpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/notionpress/content"
	"github.com/eringen/notionpress/notion"
	"github.com/eringen/notionpress/notion/notiontest"
)

func record(id, title string, published bool, date string, tags ...string) string {
	opts := make([]string, len(tags))
	for i, t := range tags {
		opts[i] = fmt.Sprintf(`{"name":%q}`, t)
	}
	return fmt.Sprintf(`{"object":"page","id":%q,"properties":{
		"Name":{"type":"title","title":[{"plain_text":%q}]},
		"Published":{"type":"checkbox","checkbox":%t},
		"Date":{"type":"date","date":{"start":%q}},
		"Tags":{"type":"multi_select","multi_select":[%s]}}}`,
		id, title, published, date, strings.Join(opts, ","))
}

func newTestApp(t *testing.T, mutate ...func(*SiteConfig)) (*App, *notiontest.Store) {
	t.Helper()
	store := notiontest.New()
	cfg := SiteConfig{
		Name:             "Notes",
		URL:              "https://blog.example.com",
		NotionAPIKey:     "secret",
		NotionDatabaseID: "db",
		SessionSecret:    "0123456789abcdef0123456789abcdef",
		RetryDelay:       time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	app := New(cfg, WithTransport(store), WithLogger(zap.NewNop()))
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { app.Close() })
	return app, store
}

func serve(app *App, method, target string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func seed(store *notiontest.Store) {
	store.Add(record("a1", "Hello World", true, "2024-03-01", "go"))
	store.Add(record("a2", "Second Post", true, "2024-02-01", "go", "web"))
	store.Add(record("a3", "Third", true, "2024-01-01", "rust"))
	store.Add(record("abc", "Draft Post", false, "2024-04-01", "go"))
	store.SetBlocks("a1",
		`{"type":"heading_1","heading_1":{"rich_text":[{"plain_text":"Intro"}]}}`,
		`{"type":"paragraph","paragraph":{"rich_text":[{"plain_text":"bold","annotations":{"bold":true}}]}}`,
	)
}

func TestListPostsAPI(t *testing.T) {
	app, store := newTestApp(t)
	seed(store)

	rec := serve(app, http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderDegraded))

	var posts []content.PostMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 3)
	assert.Equal(t, "hello-world", posts[0].Slug)
	assert.Equal(t, []string{"go"}, posts[0].Tags)
	assert.Equal(t, 100, store.Queries[0].PageSize)
}

func TestTopPostsUsesHomePageSize(t *testing.T) {
	app, store := newTestApp(t, func(c *SiteConfig) { c.HomePageSize = 2 })
	seed(store)

	rec := serve(app, http.MethodGet, "/api/posts/top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []content.PostMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(t, posts, 2)
}

func TestListPostsSoftFailure(t *testing.T) {
	app, store := newTestApp(t)
	store.Err = errors.New("upstream down")

	rec := serve(app, http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderDegraded))
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, 3, store.QueryCalls)
}

func TestListPostsHardFailure(t *testing.T) {
	app, store := newTestApp(t, func(c *SiteConfig) { c.FailMode = "hard" })
	store.Err = errors.New("upstream down")

	rec := serve(app, http.MethodGet, "/api/posts", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rec.Body.String())
}

func TestMissingCredentialsFailLoudly(t *testing.T) {
	app, store := newTestApp(t, func(c *SiteConfig) { c.NotionAPIKey = "" })
	seed(store)

	rec := serve(app, http.MethodGet, "/api/posts", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, store.QueryCalls)
}

func TestGetPostAPI(t *testing.T) {
	app, store := newTestApp(t)
	seed(store)

	rec := serve(app, http.MethodGet, "/api/posts/hello-world", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var post content.PostContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "a1", post.Metadata.ID)
	assert.Len(t, post.Content, 2)

	// Unpublished posts are reachable through their id slug only.
	rec = serve(app, http.MethodGet, "/api/posts/post-abc", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(app, http.MethodGet, "/api/posts/draft-post", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Post not found"}`, rec.Body.String())
}

func TestRelatedAPI(t *testing.T) {
	app, store := newTestApp(t)
	seed(store)

	rec := serve(app, http.MethodGet, "/api/posts/hello-world/related", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var related []content.RelatedPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &related))
	require.Len(t, related, 1)
	assert.Equal(t, "second-post", related[0].Slug)

	rec = serve(app, http.MethodGet, "/api/posts/related?tag=go&currentSlug=second-post", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &related))
	require.Len(t, related, 1)
	assert.Equal(t, "hello-world", related[0].Slug)

	rec = serve(app, http.MethodGet, "/api/posts/related", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestLikesOnePerVisitor(t *testing.T) {
	app, _ := newTestApp(t)

	rec := serve(app, http.MethodGet, "/api/likes/hello-world", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"liked":false}`, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = serve(app, http.MethodPost, "/api/likes/hello-world", `{"increment":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1,"liked":true}`, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = serve(app, http.MethodPost, "/api/likes/hello-world", `{"increment":true}`, cookies...)
	assert.JSONEq(t, `{"count":1,"liked":true}`, rec.Body.String())

	// A second visitor without the cookie counts separately.
	rec = serve(app, http.MethodPost, "/api/likes/hello-world", `{"increment":true}`)
	assert.JSONEq(t, `{"count":2,"liked":true}`, rec.Body.String())

	rec = serve(app, http.MethodPost, "/api/likes/hello-world", `{"increment":false}`, cookies...)
	assert.JSONEq(t, `{"count":1,"liked":false}`, rec.Body.String())
	cookies = rec.Result().Cookies()

	rec = serve(app, http.MethodPost, "/api/likes/hello-world", `{"increment":false}`, cookies...)
	assert.JSONEq(t, `{"count":1,"liked":false}`, rec.Body.String())
}

func TestLikeIsUndoneWhenSessionCannotBeSaved(t *testing.T) {
	app, _ := newTestApp(t)
	// Too long to fit in a session cookie.
	slug := strings.Repeat("a", 5000)

	for i := 0; i < 2; i++ {
		rec := serve(app, http.MethodPost, "/api/likes/"+slug, `{"increment":true}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, rec.Result().Cookies())

		n, err := app.Likes.Count(context.Background(), slug)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestLikesSessionForgetsOldestLikes(t *testing.T) {
	app, _ := newTestApp(t, func(c *SiteConfig) { c.LikesPerMinute = 1000 })

	var cookies []*http.Cookie
	total := maxLikedPerVisitor + 8
	for i := 0; i < total; i++ {
		rec := serve(app, http.MethodPost, fmt.Sprintf("/api/likes/post-number-%02d", i), `{"increment":true}`, cookies...)
		require.Equal(t, http.StatusOK, rec.Code, "like %d", i)
		assert.JSONEq(t, `{"count":1,"liked":true}`, rec.Body.String())
		cookies = rec.Result().Cookies()
		require.NotEmpty(t, cookies)
	}

	rec := serve(app, http.MethodGet, "/api/likes/post-number-00", "", cookies...)
	assert.JSONEq(t, `{"count":1,"liked":false}`, rec.Body.String())
	rec = serve(app, http.MethodGet, fmt.Sprintf("/api/likes/post-number-%02d", total-1), "", cookies...)
	assert.JSONEq(t, `{"count":1,"liked":true}`, rec.Body.String())
}

func TestLikesRateLimited(t *testing.T) {
	app, _ := newTestApp(t, func(c *SiteConfig) { c.LikesPerMinute = 2 })

	for i := 0; i < 2; i++ {
		rec := serve(app, http.MethodPost, "/api/likes/x", `{"increment":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(app, http.MethodPost, "/api/likes/x", `{"increment":true}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests"}`, rec.Body.String())
}

func TestLikesRejectsBadBody(t *testing.T) {
	app, _ := newTestApp(t)
	rec := serve(app, http.MethodPost, "/api/likes/x", `{"increment":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHomePage(t *testing.T) {
	app, store := newTestApp(t)
	seed(store)

	rec := serve(app, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Notes</title>")
	assert.Contains(t, body, `href="/blog/hello-world/"`)
	assert.NotContains(t, body, "Draft Post")
}

func TestHomePageSurvivesUpstreamFailure(t *testing.T) {
	app, store := newTestApp(t)
	store.Err = errors.New("down")

	rec := serve(app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No posts yet.")
}

func TestPostPage(t *testing.T) {
	app, store := newTestApp(t)
	seed(store)

	rec := serve(app, http.MethodGet, "/blog/hello-world/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Hello World | Notes</title>")
	assert.Contains(t, body, `<h1 id="intro">Intro</h1>`)
	assert.Contains(t, body, "<strong>bold</strong>")
	assert.Contains(t, body, `href="/blog/second-post/"`)
	assert.Contains(t, body, `"@type":"BlogPosting"`)
}

func TestPostPageNotFound(t *testing.T) {
	app, store := newTestApp(t)
	seed(store)

	rec := serve(app, http.MethodGet, "/blog/missing/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestPostPageServerError(t *testing.T) {
	app, store := newTestApp(t)
	store.Err = &notion.APIError{Status: 502, Code: "bad_gateway", Message: "down"}

	rec := serve(app, http.MethodGet, "/blog/anything/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestPostPageAddsTrailingSlash(t *testing.T) {
	app, _ := newTestApp(t)
	rec := serve(app, http.MethodGet, "/blog/hello-world", "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/blog/hello-world/", rec.Header().Get("Location"))
}

func TestFeedAndSitemap(t *testing.T) {
	app, store := newTestApp(t)
	seed(store)

	rec := serve(app, http.MethodGet, "/feed.xml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	body := rec.Body.String()
	assert.Contains(t, body, `<rss version="2.0">`)
	assert.Contains(t, body, "<link>https://blog.example.com/blog/hello-world/</link>")
	assert.Contains(t, body, "<pubDate>Fri, 01 Mar 2024 00:00:00 +0000</pubDate>")
	assert.Contains(t, body, "<category>go</category>")

	rec = serve(app, http.MethodGet, "/sitemap.xml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "<loc>https://blog.example.com</loc>")
	assert.Contains(t, body, "<loc>https://blog.example.com/blog/third/</loc>")
	assert.Contains(t, body, "<lastmod>2024-01-01</lastmod>")
}

func TestHealthAndRobots(t *testing.T) {
	app, _ := newTestApp(t)

	rec := serve(app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(app, http.MethodGet, "/robots.txt", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://blog.example.com/sitemap.xml")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func thumbnailRecord(id, title, url string) string {
	return fmt.Sprintf(`{"id":%q,"properties":{
		"Name":{"title":[{"plain_text":%q}]},
		"Published":{"checkbox":true},
		"Thumbnail":{"type":"files","files":[{"type":"external","name":"t","external":{"url":%q}}]}}}`, id, title, url)
}

func TestThumbnailProxy(t *testing.T) {
	img := pngBytes(t, 1600, 800)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/big.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(img)
		case "/broken.png":
			w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	app, store := newTestApp(t)
	store.Add(thumbnailRecord("t1", "Big", upstream.URL+"/big.png"))
	store.Add(thumbnailRecord("t2", "Broken", upstream.URL+"/broken.png"))
	store.Add(thumbnailRecord("t3", "Gone", upstream.URL+"/gone.png"))
	store.Add(record("t4", "Plain", true, "2024-01-01"))

	rec := serve(app, http.MethodGet, "/api/thumbnails/big", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	decoded, err := jpeg.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 800, decoded.Bounds().Dx())
	assert.Equal(t, 400, decoded.Bounds().Dy())

	rec = serve(app, http.MethodGet, "/api/thumbnails/broken", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(app, http.MethodGet, "/api/thumbnails/gone", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(app, http.MethodGet, "/api/thumbnails/plain", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(app, http.MethodGet, "/api/thumbnails/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	data, err := processImage(bytes.NewReader(pngBytes(t, 300, 200)), 800)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

// Package views renders the blog's HTML pages as templ components.
package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/notionpress/content"
)

// pageWriter collects the first write error so templates can be written as a
// flat sequence of calls.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *pageWriter) component(ctx context.Context, c templ.Component) {
	if p.err == nil && c != nil {
		p.err = c.Render(ctx, p.w)
	}
}

// Layout wraps body in the document shell shared by every page.
func Layout(cfg SiteConfig, meta PageMeta, jsonLD string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := cfg.Name
		if meta.Title != "" && meta.Title != cfg.Name {
			title = meta.Title + " | " + cfg.Name
		}
		description := meta.Description
		if description == "" {
			description = cfg.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		p := &pageWriter{w: w}
		p.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.raw(`<title>`)
		p.text(title)
		p.raw(`</title>`)
		if description != "" {
			p.raw(`<meta name="description" content="`)
			p.text(description)
			p.raw(`">`)
		}
		if meta.URL != "" {
			p.raw(`<link rel="canonical" href="`)
			p.text(meta.URL)
			p.raw(`"><meta property="og:url" content="`)
			p.text(meta.URL)
			p.raw(`">`)
		}
		p.raw(`<meta property="og:title" content="`)
		p.text(title)
		p.raw(`"><meta property="og:type" content="`)
		p.text(ogType)
		p.raw(`">`)
		if meta.Image != "" {
			p.raw(`<meta property="og:image" content="`)
			p.text(meta.Image)
			p.raw(`">`)
		}
		p.raw(`<link rel="alternate" type="application/rss+xml" title="`)
		p.text(cfg.Name)
		p.raw(`" href="/feed.xml">`)
		if jsonLD != "" {
			p.raw(`<script type="application/ld+json">`)
			p.raw(jsonLD)
			p.raw(`</script>`)
		}
		p.raw(`</head><body><header class="site-header"><a href="/" class="site-name">`)
		p.text(cfg.Name)
		p.raw(`</a></header><main>`)
		p.component(ctx, body)
		p.raw(`</main><footer class="site-footer">`)
		if cfg.Author != "" {
			p.raw(`<span>`)
			p.text(cfg.Author)
			p.raw(`</span> `)
		}
		p.raw(`<a href="/feed.xml">RSS</a></footer></body></html>`)
		return p.err
	})
}

// Home lists posts newest first.
func Home(cfg SiteConfig, posts []content.PostMetadata) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		if cfg.Description != "" {
			p.raw(`<p class="site-description">`)
			p.text(cfg.Description)
			p.raw(`</p>`)
		}
		if len(posts) == 0 {
			p.raw(`<p class="empty">No posts yet.</p>`)
			return p.err
		}
		p.raw(`<ul class="post-list">`)
		for _, post := range posts {
			p.raw(`<li class="post-card">`)
			if post.Thumbnail != "" {
				p.raw(`<img loading="lazy" alt="" src="`)
				p.text(ThumbnailPath(post.Slug))
				p.raw(`">`)
			}
			p.raw(`<a href="`)
			p.text(PostPath(post.Slug))
			p.raw(`"><h2>`)
			p.text(post.Title)
			p.raw(`</h2></a>`)
			writeDate(p, post.Date)
			if post.Description != "" {
				p.raw(`<p>`)
				p.text(post.Description)
				p.raw(`</p>`)
			}
			writeTags(p, post.Tags)
			p.raw(`</li>`)
		}
		p.raw(`</ul>`)
		return p.err
	})
	meta := PageMeta{
		Title:       cfg.Name,
		Description: cfg.Description,
		URL:         BuildURL(cfg.URL),
		OGType:      "website",
	}
	return Layout(cfg, meta, WebsiteJsonLD(cfg), body)
}

// Post renders a single post. body is the already sanitized post content.
func Post(cfg SiteConfig, post content.PostMetadata, body templ.Component, related []content.RelatedPost) templ.Component {
	article := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<article class="post"><header><h1>`)
		p.text(post.Title)
		p.raw(`</h1>`)
		writeDate(p, post.Date)
		writeTags(p, post.Tags)
		p.raw(`</header>`)
		if post.Thumbnail != "" {
			p.raw(`<img class="post-thumbnail" alt="" src="`)
			p.text(ThumbnailPath(post.Slug))
			p.raw(`">`)
		}
		p.raw(`<div class="post-body">`)
		p.component(ctx, body)
		p.raw(`</div>`)
		p.raw(`<button class="like-button" data-slug="`)
		p.text(post.Slug)
		p.raw(`">Like <span class="like-count"></span></button></article>`)
		if len(related) > 0 {
			p.raw(`<aside class="related"><h2>Related posts</h2><ul>`)
			for _, r := range related {
				p.raw(`<li><a href="`)
				p.text(PostPath(r.Slug))
				p.raw(`">`)
				p.text(r.Title)
				p.raw(`</a>`)
				writeDate(p, r.Date)
				p.raw(`</li>`)
			}
			p.raw(`</ul></aside>`)
		}
		return p.err
	})
	meta := PageMeta{
		Title:       post.Title,
		Description: post.Description,
		URL:         BuildURL(cfg.URL, "blog", post.Slug),
		OGType:      "article",
	}
	if post.Thumbnail != "" {
		meta.Image = strings.TrimRight(cfg.URL, "/") + ThumbnailPath(post.Slug)
	}
	return Layout(cfg, meta, BlogPostingJsonLD(cfg, post), article)
}

// NotFound is the 404 page.
func NotFound(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Not found"}, "", message("Page not found", "The post you are looking for does not exist."))
}

// ServerError is the 500 page.
func ServerError(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Error"}, "", message("Something went wrong", "Please try again in a moment."))
}

func message(heading, text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<section class="message"><h1>`)
		p.text(heading)
		p.raw(`</h1><p>`)
		p.text(text)
		p.raw(`</p><a href="/">Back to all posts</a></section>`)
		return p.err
	})
}

func writeDate(p *pageWriter, date string) {
	if date == "" {
		return
	}
	p.raw(`<time datetime="`)
	p.text(date)
	p.raw(`">`)
	p.text(date)
	p.raw(`</time>`)
}

func writeTags(p *pageWriter, tags []string) {
	if len(tags) == 0 {
		return
	}
	p.raw(`<ul class="tags">`)
	for _, t := range tags {
		p.raw(`<li>`)
		p.text(t)
		p.raw(`</li>`)
	}
	p.raw(`</ul>`)
}

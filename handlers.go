package notionpress

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/notionpress/blocks"
	"github.com/eringen/notionpress/content"
	"github.com/eringen/notionpress/markdown"
	"github.com/eringen/notionpress/views"
)

// HeaderDegraded is set on responses built from a fallback value.
const HeaderDegraded = "X-Content-Degraded"

var errPostNotFound = echo.NewHTTPError(http.StatusNotFound, "Post not found")

func (a *App) listPosts(c echo.Context, pageSize int) ([]content.PostMetadata, error) {
	r := a.Content.ListPublishedResult(c.Request().Context(), pageSize)
	if r.IsDegraded() {
		c.Response().Header().Set(HeaderDegraded, "1")
		c.Response().Header().Set("Cache-Control", "no-store")
		a.Log.Warn("serving degraded listing", zap.String("reason", r.Reason()))
	}
	return r.Unwrap()
}

func (a *App) handleListPosts(c echo.Context) error {
	posts, err := a.listPosts(c, a.Config.ListPageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleTopPosts(c echo.Context) error {
	posts, err := a.listPosts(c, a.Config.HomePageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.Content.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	if post == nil {
		return errPostNotFound
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleRelated(c echo.Context) error {
	related, err := a.Content.GetRelated(c.Request().Context(), c.Param("slug"), a.Config.RelatedLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, related)
}

func (a *App) handleRelatedByTag(c echo.Context) error {
	related, err := a.Content.RelatedByTag(c.Request().Context(),
		c.QueryParam("tag"), c.QueryParam("currentSlug"), a.Config.RelatedLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, related)
}

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.listPosts(c, a.Config.HomePageSize)
	if err != nil {
		return err
	}
	return Render(c, views.Home(a.Config.Site(), posts))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")
	post, err := a.Content.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if post == nil {
		return errPostNotFound
	}
	related, err := a.Content.GetRelated(ctx, post.Metadata.Slug, a.Config.RelatedLimit)
	if err != nil {
		return err
	}
	body := markdown.Markdown(blocks.ToMarkdown(post.Content))
	return Render(c, views.Post(a.Config.Site(), post.Metadata, body, related))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.listPosts(c, a.Config.ListPageSize)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.listPosts(c, a.Config.ListPageSize)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: " +
		strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= 500 {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		}
		if content.IsConfiguration(err) {
			a.Log.Error("content source is not configured", fields...)
		} else {
			a.Log.Error("server error", fields...)
		}
	}

	if isAPIRequest(c) {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, map[string]string{"message": message})
		return
	}

	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, views.NotFound(a.Config.Site()))
	case code >= 500:
		_ = RenderStatus(c, code, views.ServerError(a.Config.Site()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}

package notionpress

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const likesSessionName = "notionpress_likes"

type likeRequest struct {
	Increment bool `json:"increment"`
}

type likeResponse struct {
	Count int64 `json:"count"`
	Liked bool  `json:"liked"`
}

// likedSlugsKey holds the slugs this visitor liked, oldest first. The list is
// capped so the session stays inside the cookie size limit.
const (
	likedSlugsKey      = "liked"
	maxLikedPerVisitor = 32
)

func likedSlugs(sess *sessions.Session) []string {
	slugs, _ := sess.Values[likedSlugsKey].([]string)
	return slugs
}

// withLiked returns slugs with slug added or removed. Adding past the cap
// forgets the oldest likes.
func withLiked(slugs []string, slug string, liked bool) []string {
	out := make([]string, 0, len(slugs)+1)
	for _, s := range slugs {
		if s != slug {
			out = append(out, s)
		}
	}
	if liked {
		out = append(out, slug)
		if len(out) > maxLikedPerVisitor {
			out = out[len(out)-maxLikedPerVisitor:]
		}
	}
	return out
}

// visitorSession returns the likes session. An unreadable cookie yields a
// fresh session.
func visitorSession(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(likesSessionName, c)
	if sess == nil {
		return nil, err
	}
	return sess, nil
}

func (a *App) handleGetLikes(c echo.Context) error {
	slug := c.Param("slug")
	n, err := a.Likes.Count(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	liked := false
	if sess, err := visitorSession(c); err == nil {
		liked = slices.Contains(likedSlugs(sess), slug)
	}
	return c.JSON(http.StatusOK, likeResponse{Count: n, Liked: liked})
}

// handlePostLike likes or unlikes a post. A visitor counts at most once per
// slug; repeating the same action returns the current count unchanged. The
// count is only kept when the visitor's session was saved.
func (a *App) handlePostLike(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug is required")
	}
	if !a.likeLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
	}

	var req likeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := visitorSession(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	liked := slices.Contains(likedSlugs(sess), slug)
	if req.Increment == liked {
		n, err := a.Likes.Count(ctx, slug)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, likeResponse{Count: n, Liked: liked})
	}

	delta := int64(-1)
	if req.Increment {
		delta = 1
	}
	n, err := a.Likes.Add(ctx, slug, delta)
	if err != nil {
		return err
	}
	sess.Values[likedSlugsKey] = withLiked(likedSlugs(sess), slug, req.Increment)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		if _, undoErr := a.Likes.Add(ctx, slug, -delta); undoErr != nil {
			a.Log.Error("undo like", zap.String("slug", slug), zap.Error(undoErr))
		}
		return fmt.Errorf("save likes session: %w", err)
	}
	return c.JSON(http.StatusOK, likeResponse{Count: n, Liked: req.Increment})
}

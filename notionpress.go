// Package notionpress serves a blog whose posts live in a Notion database.
// It exposes a JSON API for posts and likes, server-rendered pages, RSS, a
// sitemap and a thumbnail proxy.
package notionpress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/notionpress/content"
	"github.com/eringen/notionpress/likes"
	"github.com/eringen/notionpress/notion"
)

// App is the central notionpress application. It wires together the content
// fetcher, the likes store, handlers and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Content *content.Fetcher
	Likes   likes.Store
	Log     *zap.Logger

	transport    notion.Transport
	likeLimiter  *LikeLimiter
	thumbClient  *http.Client
	customRoutes []func(*App)
	staticDir    string
	initialized  bool
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init builds the fetcher, the likes store, middleware and routes. It does
// not validate the config; Start does. Init is idempotent.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}

	if a.Log == nil {
		log, err := newLogger(a.Config.LogLevel, a.Config.LogFormat)
		if err != nil {
			return fmt.Errorf("notionpress: init logger: %w", err)
		}
		a.Log = log
	}

	if a.transport == nil {
		opts := []notion.ClientOption{
			notion.WithHTTPClient(&http.Client{Timeout: a.Config.NotionTimeout}),
			notion.WithRateLimit(a.Config.NotionRateLimit, 3),
		}
		if a.Config.NotionBaseURL != "" {
			opts = append(opts, notion.WithBaseURL(a.Config.NotionBaseURL))
		}
		a.transport = notion.NewClient(a.Config.NotionAPIKey, opts...)
	}
	a.Content = content.New(a.transport, a.Config.Content(),
		content.WithLogger(a.Log.Named("content")))

	if a.Likes == nil {
		store, err := a.openLikes(ctx)
		if err != nil {
			return fmt.Errorf("notionpress: init likes: %w", err)
		}
		a.Likes = store
	}

	a.likeLimiter = NewLikeLimiter(a.Config.LikesPerMinute, time.Minute)
	a.thumbClient = &http.Client{Timeout: a.Config.ThumbnailTimeout}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	return nil
}

func (a *App) openLikes(ctx context.Context) (likes.Store, error) {
	switch a.Config.LikesBackend {
	case LikesSQLite:
		return likes.NewSQLite(a.Config.LikesDatabasePath)
	case LikesRedis:
		return likes.NewRedis(ctx, likes.RedisOptions{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
	default:
		return likes.NewMemory(), nil
	}
}

// Start validates the config, initializes the app and serves until ctx is
// cancelled or the server fails.
func (a *App) Start(ctx context.Context) error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if err := a.Init(ctx); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		a.Log.Info("listening", zap.String("addr", a.Config.Addr), zap.String("url", a.Config.URL))
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("notionpress: shutdown: %w", err)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", handleHealth)

	// Public pages
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/", a.handleHome)
	e.GET("/blog/:slug/", a.handlePost)

	// JSON API
	api := e.Group("/api")
	api.GET("/posts", a.handleListPosts)
	api.GET("/posts/top", a.handleTopPosts)
	api.GET("/posts/related", a.handleRelatedByTag)
	api.GET("/posts/:slug", a.handleGetPost)
	api.GET("/posts/:slug/related", a.handleRelated)
	api.GET("/likes/:slug", a.handleGetLikes)
	api.POST("/likes/:slug", a.handlePostLike)
	api.GET("/thumbnails/:slug", a.handleThumbnail)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	if a.likeLimiter != nil {
		a.likeLimiter.Stop()
	}
	if a.Likes != nil {
		errs = append(errs, a.Likes.Close())
	}
	if a.Log != nil {
		// Sync fails on stderr/stdout on some platforms; nothing to do about it.
		_ = a.Log.Sync()
	}
	return errors.Join(errs...)
}

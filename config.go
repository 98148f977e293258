package notionpress

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/eringen/notionpress/content"
	"github.com/eringen/notionpress/likes"
	"github.com/eringen/notionpress/notion"
	"github.com/eringen/notionpress/views"
)

// Likes backends.
const (
	LikesMemory = "memory"
	LikesSQLite = "sqlite"
	LikesRedis  = "redis"
)

// SiteConfig holds all configuration for a notionpress site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Addr string // Listen address (default ":3000")

	NotionAPIKey     string        // Required: integration token
	NotionDatabaseID string        // Required: id of the posts database
	NotionBaseURL    string        // API base URL (default https://api.notion.com/v1)
	NotionRateLimit  float64       // Requests per second (default 3, <0 disables)
	NotionTimeout    time.Duration // Per-request timeout (default 15s)

	FailMode                   string        // "soft" (default) or "hard"
	SlugProperty               string        // "rich_text" (default) or "formula"
	RetryAttempts              uint          // default 3
	RetryDelay                 time.Duration // default 1s
	RetryStrategy              string        // "constant" (default), "exponential" or "none"
	EnforcePublishedOnIDLookup bool

	ListPageSize int // Full listing and feeds (default 100)
	HomePageSize int // Home page listing (default 10)
	RelatedLimit int // default 3

	LikesBackend      string // "memory" (default), "sqlite" or "redis"
	LikesDatabasePath string // SQLite path (default "data/likes.db")
	LikesPerMinute    int    // Like POSTs allowed per IP per minute (default 30)
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	ThumbnailMaxWidth int           // default 800
	ThumbnailTimeout  time.Duration // default 10s

	LogLevel  string // debug, info (default), warn, error
	LogFormat string // "json" (default) or "console"
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.NotionRateLimit == 0 {
		c.NotionRateLimit = 3
	}
	if c.NotionTimeout == 0 {
		c.NotionTimeout = 15 * time.Second
	}
	if c.FailMode == "" {
		c.FailMode = string(content.FailSoft)
	}
	if c.SlugProperty == "" {
		c.SlugProperty = string(content.SlugRichText)
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.RetryStrategy == "" {
		c.RetryStrategy = string(content.StrategyConstant)
	}
	if c.ListPageSize == 0 {
		c.ListPageSize = content.DefaultListPageSize
	}
	if c.HomePageSize == 0 {
		c.HomePageSize = 10
	}
	if c.RelatedLimit == 0 {
		c.RelatedLimit = content.DefaultRelatedLimit
	}
	if c.LikesBackend == "" {
		c.LikesBackend = LikesMemory
	}
	if c.LikesDatabasePath == "" {
		c.LikesDatabasePath = "data/likes.db"
	}
	if c.LikesPerMinute == 0 {
		c.LikesPerMinute = 30
	}
	if c.ThumbnailMaxWidth == 0 {
		c.ThumbnailMaxWidth = 800
	}
	if c.ThumbnailTimeout == 0 {
		c.ThumbnailTimeout = 10 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
}

// Validate reports every missing or invalid setting at once.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.NotionAPIKey == "" {
		errs = append(errs, errors.New("NOTION_API_KEY is required"))
	}
	if c.NotionDatabaseID == "" {
		errs = append(errs, errors.New("NOTION_DATABASE_ID is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	switch content.FailMode(c.FailMode) {
	case content.FailSoft, content.FailHard, "":
	default:
		errs = append(errs, fmt.Errorf("unknown fail mode %q", c.FailMode))
	}
	switch content.SlugProperty(c.SlugProperty) {
	case content.SlugRichText, content.SlugFormula, "":
	default:
		errs = append(errs, fmt.Errorf("unknown slug property %q", c.SlugProperty))
	}
	switch content.Strategy(c.RetryStrategy) {
	case content.StrategyConstant, content.StrategyExponential, content.StrategyNone, "":
	default:
		errs = append(errs, fmt.Errorf("unknown retry strategy %q", c.RetryStrategy))
	}
	switch c.LikesBackend {
	case LikesMemory, LikesSQLite, "":
	case LikesRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis likes backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown likes backend %q", c.LikesBackend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notionpress: invalid config: %w", err)
	}
	return nil
}

// Site returns the subset of the config the views need.
func (c SiteConfig) Site() views.SiteConfig {
	return views.SiteConfig{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
	}
}

// Content returns the fetcher configuration.
func (c SiteConfig) Content() content.Config {
	retry := content.RetryPolicy{
		Attempts: c.RetryAttempts,
		Delay:    c.RetryDelay,
		Strategy: content.Strategy(c.RetryStrategy),
	}
	if retry.Strategy == content.StrategyExponential {
		retry.MaxDelay = 10 * retry.Delay
	}
	return content.Config{
		APIKey:                     c.NotionAPIKey,
		DatabaseID:                 c.NotionDatabaseID,
		FailMode:                   content.FailMode(c.FailMode),
		SlugProperty:               content.SlugProperty(c.SlugProperty),
		Retry:                      retry,
		EnforcePublishedOnIDLookup: c.EnforcePublishedOnIDLookup,
	}
}

// Configuration keys and the environment variables bound to them.
var envKeys = map[string]string{
	"site.name":                       "SITE_NAME",
	"site.url":                        "SITE_URL",
	"site.description":                "SITE_DESCRIPTION",
	"site.author":                     "SITE_AUTHOR",
	"server.addr":                     "ADDR",
	"notion.api_key":                  "NOTION_API_KEY",
	"notion.database_id":              "NOTION_DATABASE_ID",
	"notion.base_url":                 "NOTION_BASE_URL",
	"notion.rate_limit":               "NOTION_RATE_LIMIT",
	"notion.timeout":                  "NOTION_TIMEOUT",
	"content.fail_mode":               "CONTENT_FAIL_MODE",
	"content.slug_property":           "CONTENT_SLUG_PROPERTY",
	"content.retry_attempts":          "CONTENT_RETRY_ATTEMPTS",
	"content.retry_delay":             "CONTENT_RETRY_DELAY",
	"content.retry_strategy":          "CONTENT_RETRY_STRATEGY",
	"content.enforce_published_on_id": "CONTENT_ENFORCE_PUBLISHED_ON_ID",
	"content.list_page_size":          "CONTENT_LIST_PAGE_SIZE",
	"content.home_page_size":          "CONTENT_HOME_PAGE_SIZE",
	"content.related_limit":           "CONTENT_RELATED_LIMIT",
	"likes.backend":                   "LIKES_BACKEND",
	"likes.database_path":             "LIKES_DATABASE_PATH",
	"likes.per_minute":                "LIKES_PER_MINUTE",
	"redis.addr":                      "REDIS_ADDR",
	"redis.password":                  "REDIS_PASSWORD",
	"redis.db":                        "REDIS_DB",
	"session.secret":                  "SESSION_SECRET",
	"session.cookie_secure":           "COOKIE_SECURE",
	"thumbnails.max_width":            "THUMBNAIL_MAX_WIDTH",
	"thumbnails.timeout":              "THUMBNAIL_TIMEOUT",
	"log.level":                       "LOG_LEVEL",
	"log.format":                      "LOG_FORMAT",
}

// LoadConfig reads the config file at path, when path is not empty, and
// overlays environment variables. Defaults are applied; validation is left
// to the caller.
func LoadConfig(path string) (SiteConfig, error) {
	vp := viper.New()
	for key, env := range envKeys {
		if err := vp.BindEnv(key, env); err != nil {
			return SiteConfig{}, fmt.Errorf("notionpress: bind %s: %w", env, err)
		}
	}
	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return SiteConfig{}, fmt.Errorf("notionpress: read config %s: %w", path, err)
		}
	}

	cfg := SiteConfig{
		Name:        vp.GetString("site.name"),
		URL:         strings.TrimRight(vp.GetString("site.url"), "/"),
		Description: vp.GetString("site.description"),
		Author:      vp.GetString("site.author"),
		Addr:        vp.GetString("server.addr"),

		NotionAPIKey:     vp.GetString("notion.api_key"),
		NotionDatabaseID: vp.GetString("notion.database_id"),
		NotionBaseURL:    vp.GetString("notion.base_url"),
		NotionRateLimit:  vp.GetFloat64("notion.rate_limit"),
		NotionTimeout:    vp.GetDuration("notion.timeout"),

		FailMode:                   vp.GetString("content.fail_mode"),
		SlugProperty:               vp.GetString("content.slug_property"),
		RetryAttempts:              vp.GetUint("content.retry_attempts"),
		RetryDelay:                 vp.GetDuration("content.retry_delay"),
		RetryStrategy:              vp.GetString("content.retry_strategy"),
		EnforcePublishedOnIDLookup: vp.GetBool("content.enforce_published_on_id"),
		ListPageSize:               vp.GetInt("content.list_page_size"),
		HomePageSize:               vp.GetInt("content.home_page_size"),
		RelatedLimit:               vp.GetInt("content.related_limit"),

		LikesBackend:      vp.GetString("likes.backend"),
		LikesDatabasePath: vp.GetString("likes.database_path"),
		LikesPerMinute:    vp.GetInt("likes.per_minute"),
		RedisAddr:         vp.GetString("redis.addr"),
		RedisPassword:     vp.GetString("redis.password"),
		RedisDB:           vp.GetInt("redis.db"),

		SessionSecret: vp.GetString("session.secret"),
		CookieSecure:  vp.GetBool("session.cookie_secure"),

		ThumbnailMaxWidth: vp.GetInt("thumbnails.max_width"),
		ThumbnailTimeout:  vp.GetDuration("thumbnails.timeout"),

		LogLevel:  vp.GetString("log.level"),
		LogFormat: vp.GetString("log.format"),
	}
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from LogLevel and LogFormat.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithTransport replaces the Notion HTTP client, e.g. with notiontest.Store.
func WithTransport(t notion.Transport) Option {
	return func(a *App) {
		a.transport = t
	}
}

// WithLikesStore replaces the backend selected by LikesBackend.
func WithLikesStore(s likes.Store) Option {
	return func(a *App) {
		a.Likes = s
	}
}

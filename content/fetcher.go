package content

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eringen/notionpress/notion"
)

// FailMode decides what ListPublished does once every attempt has failed.
type FailMode string

const (
	// FailSoft returns an empty listing so pages still render.
	FailSoft FailMode = "soft"
	// FailHard returns the last upstream error.
	FailHard FailMode = "hard"
)

// SlugProperty is the column type backing the Slug column.
type SlugProperty string

const (
	SlugRichText SlugProperty = "rich_text"
	SlugFormula  SlugProperty = "formula"
)

const (
	DefaultListPageSize = notion.MaxPageSize
	DefaultRelatedLimit = 3
)

// Config is the fetcher's process-wide, read-only configuration.
type Config struct {
	APIKey     string
	DatabaseID string

	FailMode     FailMode
	SlugProperty SlugProperty
	Retry        RetryPolicy

	// EnforcePublishedOnIDLookup applies the Published filter to id-derived
	// slugs as well. Off by default: an unpublished post can be read through
	// its post-<id> URL.
	EnforcePublishedOnIDLookup bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// Fetcher runs the blog's queries against the upstream database and
// normalizes what comes back.
type Fetcher struct {
	transport notion.Transport
	cfg       Config
	log       *zap.Logger
}

// New creates a Fetcher. Missing credentials are not rejected here; every
// operation reports them instead.
func New(t notion.Transport, cfg Config, opts ...Option) *Fetcher {
	if cfg.FailMode == "" {
		cfg.FailMode = FailSoft
	}
	if cfg.SlugProperty == "" {
		cfg.SlugProperty = SlugRichText
	}
	if cfg.Retry.Attempts == 0 && cfg.Retry.Strategy == "" {
		p := DefaultRetryPolicy()
		p.Timer, p.RetryIf = cfg.Retry.Timer, cfg.Retry.RetryIf
		cfg.Retry = p
	}
	if cfg.Retry.RetryIf == nil {
		cfg.Retry.RetryIf = retryable
	}
	f := &Fetcher{
		transport: t,
		cfg:       cfg,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) checkConfig(op string) error {
	if f.cfg.APIKey == "" || f.cfg.DatabaseID == "" || f.transport == nil {
		return &Error{Kind: KindConfiguration, Op: op, Err: ErrConfiguration}
	}
	return nil
}

func publishedFilter() notion.Filter {
	return notion.CheckboxEquals(ColumnPublished, true)
}

func newestFirst() []notion.Sort {
	return []notion.Sort{{Property: ColumnDate, Direction: notion.Descending}}
}

func clampPageSize(n int) int {
	if n <= 0 || n > notion.MaxPageSize {
		return DefaultListPageSize
	}
	return n
}

// ListPublished returns published posts, newest first. In soft-fail mode an
// unreachable upstream yields an empty listing and no error.
func (f *Fetcher) ListPublished(ctx context.Context, pageSize int) ([]PostMetadata, error) {
	return f.ListPublishedResult(ctx, pageSize).Unwrap()
}

// ListPublishedResult is ListPublished with the outcome made explicit: a
// soft-failed listing comes back Degraded with the upstream error as reason.
func (f *Fetcher) ListPublishedResult(ctx context.Context, pageSize int) Result[[]PostMetadata] {
	const op = "list published"
	if err := f.checkConfig(op); err != nil {
		return Failed[[]PostMetadata](err)
	}

	filter := publishedFilter()
	q := notion.Query{
		Filter:   &filter,
		Sorts:    newestFirst(),
		PageSize: clampPageSize(pageSize),
	}

	var res *notion.QueryResult
	err := f.cfg.Retry.Do(ctx, func() error {
		r, err := f.transport.QueryDatabase(ctx, f.cfg.DatabaseID, q)
		if err != nil {
			return err
		}
		res = r
		return nil
	}, func(attempt uint, err error) {
		f.log.Warn("listing attempt failed",
			zap.Uint("attempt", attempt),
			zap.Uint("max_attempts", f.cfg.Retry.attempts()),
			zap.Error(err))
	})
	if err != nil {
		err = transient(op, err)
		if IsConfiguration(err) || f.cfg.FailMode == FailHard {
			f.log.Error("listing failed", zap.Error(err))
			return Failed[[]PostMetadata](err)
		}
		f.log.Error("listing failed, serving empty listing", zap.Error(err))
		return Degraded([]PostMetadata{}, err.Error())
	}

	return Ok(f.normalizeAll(res.Results))
}

// normalizeAll normalizes a batch and keeps slugs unique.
func (f *Fetcher) normalizeAll(pages []notion.Page) []PostMetadata {
	entries := f.normalizePages(pages)
	posts := make([]PostMetadata, len(entries))
	for i, e := range entries {
		posts[i] = e.meta
	}
	return posts
}

type normalizedPage struct {
	meta PostMetadata
	page *notion.Page
}

// normalizePages normalizes a batch in order. A record whose slug was already
// taken falls back to its id-derived slug; when that is taken too (a repeated
// or missing id) the record is dropped.
func (f *Fetcher) normalizePages(pages []notion.Page) []normalizedPage {
	out := make([]normalizedPage, 0, len(pages))
	seen := make(map[string]struct{}, len(pages))
	for i := range pages {
		m := f.normalize(&pages[i])
		if _, dup := seen[m.Slug]; dup {
			idSlug := IDSlug(m.ID)
			if _, taken := seen[idSlug]; taken || m.ID == "" {
				f.log.Warn("duplicate slug, dropping record",
					zap.String("slug", m.Slug), zap.String("id", m.ID))
				continue
			}
			f.log.Warn("duplicate slug, using id-derived slug",
				zap.String("slug", m.Slug), zap.String("id", m.ID))
			m.Slug = idSlug
		}
		seen[m.Slug] = struct{}{}
		out = append(out, normalizedPage{meta: m, page: &pages[i]})
	}
	return out
}

func (f *Fetcher) normalize(p *notion.Page) PostMetadata {
	r := NormalizeResult(p)
	if r.IsDegraded() {
		f.log.Debug("record normalized with fallbacks",
			zap.String("id", r.Value.ID), zap.String("reason", r.Reason()))
	}
	return r.Value
}

// GetBySlug returns a post and its blocks, or nil when no post matches.
func (f *Fetcher) GetBySlug(ctx context.Context, slug string) (*PostContent, error) {
	const op = "get post"
	page, err := f.findPage(ctx, op, slug)
	if err != nil || page == nil {
		return nil, err
	}
	blocks, err := f.transport.ListBlockChildren(ctx, page.ID)
	if err != nil {
		return nil, transient(op+" content", err)
	}
	return &PostContent{
		Metadata: f.normalize(page),
		Content:  blocks,
	}, nil
}

// Resolve is GetBySlug without the block content.
func (f *Fetcher) Resolve(ctx context.Context, slug string) (*PostMetadata, error) {
	page, err := f.findPage(ctx, "resolve post", slug)
	if err != nil || page == nil {
		return nil, err
	}
	m := f.normalize(page)
	return &m, nil
}

func (f *Fetcher) findPage(ctx context.Context, op, slug string) (*notion.Page, error) {
	if err := f.checkConfig(op); err != nil {
		return nil, err
	}
	if slug == "" {
		return nil, nil
	}

	if id, ok := IDFromSlug(slug); ok {
		return f.pageByID(ctx, op, id)
	}

	decoded, err := url.PathUnescape(slug)
	if err != nil {
		decoded = slug
	}
	filter := notion.And(
		publishedFilter(),
		notion.Or(
			notion.TitleEquals(ColumnName, decoded),
			f.slugEquals(slug),
		),
	)
	res, err := f.transport.QueryDatabase(ctx, f.cfg.DatabaseID, notion.Query{
		Filter:   &filter,
		Sorts:    newestFirst(),
		PageSize: 1,
	})
	if err != nil {
		return nil, transient(op, err)
	}
	if len(res.Results) > 0 {
		p := res.Results[0]
		return &p, nil
	}

	// Slugs derived from titles exist only on this side; find them by
	// resolving the published listing the same way ListPublished does.
	return f.scanForSlug(ctx, op, slug)
}

func (f *Fetcher) pageByID(ctx context.Context, op, id string) (*notion.Page, error) {
	if u, err := uuid.Parse(id); err == nil {
		id = u.String()
	}
	page, err := f.transport.RetrievePage(ctx, id)
	if err != nil {
		if notion.IsNotFound(err) {
			return nil, nil
		}
		return nil, transient(op, err)
	}
	if page.Archived {
		return nil, nil
	}
	if f.cfg.EnforcePublishedOnIDLookup && !IsPublished(page) {
		return nil, nil
	}
	return page, nil
}

func (f *Fetcher) scanForSlug(ctx context.Context, op, slug string) (*notion.Page, error) {
	filter := publishedFilter()
	res, err := f.transport.QueryDatabase(ctx, f.cfg.DatabaseID, notion.Query{
		Filter:   &filter,
		Sorts:    newestFirst(),
		PageSize: DefaultListPageSize,
	})
	if err != nil {
		return nil, transient(op, err)
	}
	for _, e := range f.normalizePages(res.Results) {
		if e.meta.Slug == slug {
			return e.page, nil
		}
	}
	return nil, nil
}

func (f *Fetcher) slugEquals(slug string) notion.Filter {
	if f.cfg.SlugProperty == SlugFormula {
		return notion.FormulaStringEquals(ColumnSlug, slug)
	}
	return notion.RichTextEquals(ColumnSlug, slug)
}

// GetRelated returns up to limit published posts sharing the first tag of the
// post at slug. Failures yield an empty list; only a misconfigured fetcher
// returns an error.
func (f *Fetcher) GetRelated(ctx context.Context, slug string, limit int) ([]RelatedPost, error) {
	if err := f.checkConfig("related posts"); err != nil {
		return []RelatedPost{}, err
	}
	base, err := f.Resolve(ctx, slug)
	if err != nil {
		f.log.Warn("related posts: resolving base post failed", zap.String("slug", slug), zap.Error(err))
		return []RelatedPost{}, nil
	}
	if base == nil || len(base.Tags) == 0 {
		return []RelatedPost{}, nil
	}
	return f.related(ctx, base.Tags[0], limit, func(m PostMetadata) bool {
		return m.Slug == slug || m.Slug == base.Slug || (base.ID != "" && m.ID == base.ID)
	})
}

// RelatedByTag returns up to limit published posts tagged tag, newest first,
// leaving out the post whose slug is excludeSlug.
func (f *Fetcher) RelatedByTag(ctx context.Context, tag, excludeSlug string, limit int) ([]RelatedPost, error) {
	if err := f.checkConfig("related posts"); err != nil {
		return []RelatedPost{}, err
	}
	if tag == "" {
		return []RelatedPost{}, nil
	}
	return f.related(ctx, tag, limit, func(m PostMetadata) bool {
		return excludeSlug != "" && m.Slug == excludeSlug
	})
}

func (f *Fetcher) related(ctx context.Context, tag string, limit int, exclude func(PostMetadata) bool) ([]RelatedPost, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	filter := notion.And(
		publishedFilter(),
		notion.MultiSelectContains(ColumnTags, tag),
	)
	res, err := f.transport.QueryDatabase(ctx, f.cfg.DatabaseID, notion.Query{
		Filter:   &filter,
		Sorts:    newestFirst(),
		PageSize: clampPageSize(limit + 1),
	})
	if err != nil {
		f.log.Warn("related posts query failed", zap.String("tag", tag), zap.Error(err))
		return []RelatedPost{}, nil
	}

	out := make([]RelatedPost, 0, limit)
	for _, m := range f.normalizeAll(res.Results) {
		if exclude(m) {
			continue
		}
		out = append(out, m.Related())
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Package notiontest provides an in-memory notion.Transport for tests.
package notiontest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/eringen/notionpress/notion"
)

// Store holds pages of a single database in memory and evaluates query
// filters the way the API does for the predicates notion.Filter supports.
type Store struct {
	mu     sync.Mutex
	pages  []notion.Page
	blocks map[string][]json.RawMessage

	// Err, when set, is returned by every call. With FailQueries > 0 only the
	// first FailQueries database queries fail and everything else succeeds.
	Err         error
	FailQueries int

	QueryCalls    int
	RetrieveCalls int
	BlockCalls    int
	Queries       []notion.Query
}

func New() *Store {
	return &Store{blocks: make(map[string][]json.RawMessage)}
}

// Add stores a page from its JSON representation.
func (s *Store) Add(rawPage string) notion.Page {
	var p notion.Page
	if err := json.Unmarshal([]byte(rawPage), &p); err != nil {
		panic(fmt.Sprintf("notiontest: bad page json: %v", err))
	}
	s.mu.Lock()
	s.pages = append(s.pages, p)
	s.mu.Unlock()
	return p
}

// SetBlocks sets the children returned for pageID.
func (s *Store) SetBlocks(pageID string, rawBlocks ...string) {
	out := make([]json.RawMessage, len(rawBlocks))
	for i, b := range rawBlocks {
		out[i] = json.RawMessage(b)
	}
	s.mu.Lock()
	s.blocks[pageID] = out
	s.mu.Unlock()
}

func (s *Store) QueryDatabase(ctx context.Context, databaseID string, q notion.Query) (*notion.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QueryCalls++
	s.Queries = append(s.Queries, q)
	if s.Err != nil && (s.FailQueries == 0 || s.QueryCalls <= s.FailQueries) {
		return nil, s.Err
	}

	var matched []notion.Page
	for _, p := range s.pages {
		if q.Filter == nil || Match(*q.Filter, p) {
			matched = append(matched, p)
		}
	}
	for i := len(q.Sorts) - 1; i >= 0; i-- {
		srt := q.Sorts[i]
		sort.SliceStable(matched, func(a, b int) bool {
			va, vb := sortKey(matched[a], srt.Property), sortKey(matched[b], srt.Property)
			if srt.Direction == notion.Descending {
				return va > vb
			}
			return va < vb
		})
	}
	res := &notion.QueryResult{Results: matched}
	if q.PageSize > 0 && len(matched) > q.PageSize {
		res.Results = matched[:q.PageSize]
		res.HasMore = true
	}
	if res.Results == nil {
		res.Results = []notion.Page{}
	}
	return res, nil
}

func (s *Store) RetrievePage(ctx context.Context, pageID string) (*notion.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RetrieveCalls++
	if s.Err != nil && s.FailQueries == 0 {
		return nil, s.Err
	}
	for _, p := range s.pages {
		if p.ID == pageID {
			p := p
			return &p, nil
		}
	}
	return nil, &notion.APIError{Status: 404, Code: "object_not_found", Message: "Could not find page with ID: " + pageID}
}

func (s *Store) ListBlockChildren(ctx context.Context, blockID string) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BlockCalls++
	if s.Err != nil && s.FailQueries == 0 {
		return nil, s.Err
	}
	if b, ok := s.blocks[blockID]; ok {
		return b, nil
	}
	return []json.RawMessage{}, nil
}

// Match evaluates f against p.
func Match(f notion.Filter, p notion.Page) bool {
	if len(f.And) > 0 {
		for _, sub := range f.And {
			if !Match(sub, p) {
				return false
			}
		}
		return true
	}
	if len(f.Or) > 0 {
		for _, sub := range f.Or {
			if Match(sub, p) {
				return true
			}
		}
		return false
	}

	cell, _ := p.Cell(f.Property)
	switch {
	case f.Checkbox != nil:
		return cell.Checkbox != nil && *cell.Checkbox == f.Checkbox.Equals
	case f.Title != nil:
		return matchText(*f.Title, joinRuns(cell.Title))
	case f.RichText != nil:
		return matchText(*f.RichText, joinRuns(cell.RichText))
	case f.MultiSelect != nil:
		for _, o := range cell.MultiSelect {
			if o.Name == f.MultiSelect.Contains {
				return true
			}
		}
		return false
	case f.Formula != nil && f.Formula.String != nil:
		v := ""
		if cell.Formula != nil && cell.Formula.String != nil {
			v = *cell.Formula.String
		}
		return matchText(*f.Formula.String, v)
	}
	return true
}

func matchText(c notion.TextCondition, v string) bool {
	if c.Equals != nil && v != *c.Equals {
		return false
	}
	if c.DoesNotEqual != nil && v == *c.DoesNotEqual {
		return false
	}
	return true
}

func joinRuns(runs []notion.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

func sortKey(p notion.Page, property string) string {
	cell, _ := p.Cell(property)
	if cell.Date != nil {
		return cell.Date.Start
	}
	if len(cell.Title) > 0 {
		return joinRuns(cell.Title)
	}
	return joinRuns(cell.RichText)
}

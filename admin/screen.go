// Package admin implements the management lists for movies, users and
// reservations: search, paging, row selection, confirmed deletes and a
// status notice after every mutation. The lists are re-fetched after each
// mutation instead of being patched locally.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"cinease/api"
)

const DefaultPageSize = 10

var (
	ErrSelectOne       = errors.New("select exactly one row to edit")
	ErrSelectSome      = errors.New("select at least one row to delete")
	ErrNoRow           = errors.New("no such row on this page")
	ErrNothingToDelete = errors.New("no delete awaiting confirmation")
)

const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is the status modal shown after a mutation.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Resource describes one managed collection.
type Resource[T any] struct {
	Singular string
	Plural   string
	List     func(ctx context.Context) ([]T, error)
	Delete   func(ctx context.Context, id string) error
	ID       func(T) string
	// Search returns the fields the search box matches against.
	Search func(T) []string
}

// Screen is one admin list. Selection is by index into the visible page and
// is cleared whenever the query or page changes.
type Screen[T any] struct {
	res      Resource[T]
	pageSize int
	log      *log.Logger

	mu       sync.Mutex
	items    []T
	query    string
	page     int
	selected map[int]bool
	pending  []string
	notice   *Notice
	gen      uint64
}

func NewScreen[T any](res Resource[T], pageSize int, logger *log.Logger) *Screen[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Screen[T]{res: res, pageSize: pageSize, log: logger, selected: make(map[int]bool)}
}

// Matches reports whether any field contains q, ignoring case. An empty
// query matches everything.
func Matches(fields []string, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Refresh re-fetches the whole list. Selection is cleared since row indices
// may now point elsewhere.
func (s *Screen[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	items, err := s.res.List(ctx)
	if err != nil {
		s.log.Printf("[ERROR]: loading %s: %v", s.res.Plural, err)
		return fmt.Errorf("load %s: %w", s.res.Plural, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || ctx.Err() != nil {
		return nil
	}
	s.items = items
	s.selected = make(map[int]bool)
	if last := s.pagesLocked() - 1; s.page > last {
		s.page = last
	}
	return nil
}

func (s *Screen[T]) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = strings.TrimSpace(q)
	s.page = 0
	s.selected = make(map[int]bool)
}

func (s *Screen[T]) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetPage moves to page p (0-based), clamped to the available pages.
func (s *Screen[T]) SetPage(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last := s.pagesLocked() - 1; p > last {
		p = last
	}
	if p < 0 {
		p = 0
	}
	s.page = p
	s.selected = make(map[int]bool)
}

// Page returns the current page and the page count (at least one).
func (s *Screen[T]) Page() (page, pages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.pagesLocked()
}

func (s *Screen[T]) Filtered() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filteredLocked()
}

func (s *Screen[T]) filteredLocked() []T {
	var out []T
	for _, it := range s.items {
		if Matches(s.res.Search(it), s.query) {
			out = append(out, it)
		}
	}
	return out
}

func (s *Screen[T]) pagesLocked() int {
	n := len(s.filteredLocked())
	if n == 0 {
		return 1
	}
	return (n + s.pageSize - 1) / s.pageSize
}

// Visible is the current page of the filtered list.
func (s *Screen[T]) Visible() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleLocked()
}

func (s *Screen[T]) visibleLocked() []T {
	all := s.filteredLocked()
	start := s.page * s.pageSize
	if start >= len(all) {
		return nil
	}
	end := start + s.pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// Toggle flips the selection of row i on the visible page.
func (s *Screen[T]) Toggle(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.visibleLocked()) {
		return ErrNoRow
	}
	if s.selected[i] {
		delete(s.selected, i)
	} else {
		s.selected[i] = true
	}
	return nil
}

// SelectedRows returns the selected row indices in ascending order.
func (s *Screen[T]) SelectedRows() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedRowsLocked()
}

func (s *Screen[T]) selectedRowsLocked() []int {
	var out []int
	for i := 0; i < s.pageSize; i++ {
		if s.selected[i] {
			out = append(out, i)
		}
	}
	return out
}

func (s *Screen[T]) Selected() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.visibleLocked()
	var out []T
	for _, i := range s.selectedRowsLocked() {
		out = append(out, vis[i])
	}
	return out
}

func (s *Screen[T]) CanEdit() bool {
	return len(s.SelectedRows()) == 1
}

func (s *Screen[T]) CanDelete() bool {
	return len(s.SelectedRows()) >= 1
}

// EditTarget is the single selected row.
func (s *Screen[T]) EditTarget() (T, error) {
	sel := s.Selected()
	if len(sel) != 1 {
		var zero T
		return zero, ErrSelectOne
	}
	return sel[0], nil
}

// RequestDelete records the selected ids for confirmation. Nothing is
// deleted until ConfirmDelete.
func (s *Screen[T]) RequestDelete() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.selectedRowsLocked()
	if len(rows) == 0 {
		return nil, ErrSelectSome
	}
	vis := s.visibleLocked()
	ids := make([]string, 0, len(rows))
	for _, i := range rows {
		ids = append(ids, s.res.ID(vis[i]))
	}
	s.pending = ids
	return append([]string(nil), ids...), nil
}

func (s *Screen[T]) PendingDelete() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pending...)
}

func (s *Screen[T]) AbortDelete() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// ConfirmDelete sends one delete per pending id concurrently, then re-fetches.
// Any failure turns the notice into an error; ids that did succeed stay
// deleted.
func (s *Screen[T]) ConfirmDelete(ctx context.Context) (Notice, error) {
	s.mu.Lock()
	ids := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(ids) == 0 {
		return Notice{}, ErrNothingToDelete
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if err := s.res.Delete(ctx, id); err != nil {
				errs[i] = fmt.Errorf("delete %s %s: %w", s.res.Singular, id, err)
			}
		}(i, id)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}

	var n Notice
	switch {
	case len(failed) == 0 && len(ids) == 1:
		n = Notice{NoticeSuccess, title(s.res.Singular) + " deleted successfully."}
	case len(failed) == 0:
		n = Notice{NoticeSuccess, fmt.Sprintf("%d %s deleted successfully.", len(ids), s.res.Plural)}
	case len(ids) == 1:
		n = Notice{NoticeError, api.Message(failed[0], "Failed to delete "+s.res.Singular+".")}
	default:
		n = Notice{NoticeError, fmt.Sprintf("Failed to delete %d of %d %s.", len(failed), len(ids), s.res.Plural)}
	}
	for _, err := range failed {
		s.log.Printf("[ERROR]: %v", err)
	}
	return s.finish(ctx, n), errors.Join(failed...)
}

// Mutate runs a create or update, re-fetches and records the notice.
func (s *Screen[T]) Mutate(ctx context.Context, success, failure string, fn func(context.Context) error) Notice {
	var n Notice
	if err := fn(ctx); err != nil {
		s.log.Printf("[ERROR]: %s: %v", failure, err)
		n = Notice{NoticeError, api.Message(err, failure)}
	} else {
		n = Notice{NoticeSuccess, success}
	}
	return s.finish(ctx, n)
}

func (s *Screen[T]) finish(ctx context.Context, n Notice) Notice {
	if err := s.Refresh(ctx); err != nil && n.Kind == NoticeSuccess {
		n.Message += " The list could not be refreshed."
	}
	s.mu.Lock()
	s.notice = &n
	s.selected = make(map[int]bool)
	s.mu.Unlock()
	return n
}

// Notice returns the status message awaiting dismissal, if any.
func (s *Screen[T]) Notice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return nil
	}
	n := *s.notice
	return &n
}

func (s *Screen[T]) DismissNotice() {
	s.mu.Lock()
	s.notice = nil
	s.mu.Unlock()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"faqpage/internal/document"
	"faqpage/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service keeps the page directory in step with the store. backend may be nil when
// search is not configured; every call then degrades to a no-op.
type Service struct {
	backend Backend
	pages   PageSource
	logger  zerolog.Logger
}

func NewService(backend Backend, pages PageSource, logger zerolog.Logger) *Service {
	return &Service{backend: backend, pages: pages, logger: logger}
}

func (s *Service) enabled() bool {
	return s != nil && s.backend != nil && s.backend.Healthy()
}

// Search never fails; an unavailable index yields an empty response.
func (s *Service) Search(q Query) Response {
	q.Text = strings.TrimSpace(q.Text)
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	empty := Response{Results: []Result{}, Total: 0, Query: q.Text}
	if !s.enabled() {
		return empty
	}

	results, total, err := s.backend.Search(q)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", q.Text).Msg("page search failed")
		return empty
	}
	if results == nil {
		results = []Result{}
	}
	return Response{Results: results, Total: total, Query: q.Text}
}

// Invalidate re-indexes the page at path, or drops it when the handle no longer
// resolves. It lets the directory ride on the page invalidation signal.
func (s *Service) Invalidate(ctx context.Context, path string) error {
	if !s.enabled() {
		return nil
	}
	pageHandle := strings.TrimPrefix(path, "/")
	if pageHandle == "" || strings.Contains(pageHandle, "/") {
		return nil
	}

	page, err := s.pages.GetPublicPage(ctx, pageHandle)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.backend.DeletePage(pageHandle); err != nil {
			return fmt.Errorf("delete page %s from index: %w", pageHandle, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load page %s: %w", pageHandle, err)
	}
	if err := s.backend.IndexPages([]PageRecord{Record(page)}); err != nil {
		return fmt.Errorf("index page %s: %w", pageHandle, err)
	}
	return nil
}

// ReindexAll pushes every claimed page into the index.
func (s *Service) ReindexAll(ctx context.Context) error {
	if !s.enabled() {
		return nil
	}
	handles, err := s.pages.ListHandles(ctx)
	if err != nil {
		return fmt.Errorf("list handles: %w", err)
	}

	records := make([]PageRecord, 0, len(handles))
	for _, h := range handles {
		page, err := s.pages.GetPublicPage(ctx, h)
		if err != nil {
			s.logger.Warn().Err(err).Str("handle", h).Msg("skip page during reindex")
			continue
		}
		records = append(records, Record(page))
	}
	if err := s.backend.IndexPages(records); err != nil {
		return fmt.Errorf("reindex pages: %w", err)
	}
	s.logger.Info().Int("pages", len(records)).Msg("page directory reindexed")
	return nil
}

// Record flattens a page into its index document.
func Record(page store.Page) PageRecord {
	parts := make([]string, 0, len(page.Questions)*2)
	for _, q := range page.Questions {
		parts = append(parts, q.Text)
		if answer := document.PlainTextJSON(q.Answer); answer != "" {
			parts = append(parts, answer)
		}
	}
	return PageRecord{
		Handle:        page.Handle,
		DisplayName:   page.DisplayName,
		Questions:     strings.Join(parts, "\n"),
		QuestionCount: len(page.Questions),
	}
}

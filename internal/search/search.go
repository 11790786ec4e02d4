package search

import (
	"context"

	"faqpage/internal/store"
)

// Result is a single page directory hit.
type Result struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Snippet     string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// PageRecord is what gets indexed for one public page. The handle is the primary key.
type PageRecord struct {
	Handle        string `json:"handle"`
	DisplayName   string `json:"displayName"`
	Questions     string `json:"questions"`
	QuestionCount int    `json:"questionCount"`
}

// Backend is a page index.
type Backend interface {
	Search(q Query) ([]Result, int, error)
	IndexPages(records []PageRecord) error
	DeletePage(pageHandle string) error
	Healthy() bool
}

// PageSource loads pages from the system of record.
type PageSource interface {
	GetPublicPage(ctx context.Context, pageHandle string) (store.Page, error)
	ListHandles(ctx context.Context) ([]string, error)
}

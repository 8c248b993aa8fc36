package request

import (
	"net/url"

	"cinema-seat-booking/pkg/utils"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// PaginatedRequest is a page-number window over a newest-first list.
// Out of range values are clamped rather than rejected.
type PaginatedRequest struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// PageFromQuery reads ?page= and ?per_page=, falling back to defaults.
func PageFromQuery(query url.Values) *PaginatedRequest {
	return &PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), DefaultPerPage),
	}
}

func (p PaginatedRequest) PageNumber() int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

func (p PaginatedRequest) Limit() int {
	switch {
	case p.PerPage < 1:
		return DefaultPerPage
	case p.PerPage > MaxPerPage:
		return MaxPerPage
	}
	return p.PerPage
}

func (p PaginatedRequest) Offset() int {
	return (p.PageNumber() - 1) * p.Limit()
}

package pagination

import (
	"fmt"
	"strconv"
)

// Params represents pagination query parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Page represents one page of results
type Page struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	HasMore  bool        `json:"has_more"`
}

// Parse parses page/page_size query values with the given defaults
func Parse(pageStr, sizeStr string, defaultSize, maxSize int) (*Params, error) {
	page := 1
	limit := defaultSize

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page parameter: %w", err)
		}
		if p >= 1 {
			page = p
		}
	}

	if sizeStr != "" {
		l, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid page_size parameter: %w", err)
		}
		switch {
		case l < 1:
			limit = 1
		case l > maxSize:
			limit = maxSize
		default:
			limit = l
		}
	}

	return &Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, nil
}

// NewPage assembles a page envelope
func NewPage(items interface{}, total int, params *Params) *Page {
	return &Page{
		Items:    items,
		Total:    total,
		Page:     params.Page,
		PageSize: params.Limit,
		HasMore:  params.Page*params.Limit < total,
	}
}

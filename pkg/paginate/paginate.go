// Package paginate slices ordered in-memory sequences into page envelopes.
package paginate

// Page is the envelope returned by every paginated endpoint.
type Page[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	Data       []T `json:"data"`
}

// Paginate returns the requested page of items. Page numbers are 1-based.
// An out-of-range page yields an empty data slice, never an error; bounds
// checking of page and perPage (>=1, <=250) belongs to the request layer.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	total := len(items)

	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	data := make([]T, 0, end-start)
	data = append(data, items[start:end]...)

	return Page[T]{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

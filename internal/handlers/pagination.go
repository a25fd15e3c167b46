package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// SortDirection represents sort order
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PaginationParams holds pagination and sorting query parameters
type PaginationParams struct {
	Page      int           `json:"page"`       // 1-indexed page number (default: 1)
	Per       int           `json:"per"`        // Items per page (default: 10, max: 100)
	Offset    int           `json:"-"`          // Index of the first item on the page
	SortBy    string        `json:"sort_by"`    // Column to sort by
	SortOrder SortDirection `json:"sort_order"` // Sort direction: "asc" or "desc" (default: "asc")
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Per        int   `json:"per"`
	Total      int64 `json:"total"`       // Total items across all pages
	TotalPages int   `json:"total_pages"` // Calculated total pages
	HasMore    bool  `json:"has_more"`    // Whether more pages exist
}

// PaginatedResponse wraps any list response with pagination metadata
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

const maxPer = 100

// maxPage keeps (page-1)*per within int for the largest per.
const maxPage = math.MaxInt/maxPer + 1

// ParsePaginationParams extracts and validates pagination from request
func ParsePaginationParams(c fiber.Ctx, defaultSort string) PaginationParams {
	page := min(max(fiber.Query[int](c, "page", 1), 1), maxPage)
	per := min(max(fiber.Query[int](c, "per", 10), 1), maxPer)
	offset := (page - 1) * per

	sortBy := strings.TrimSpace(c.Query("sort_by", defaultSort))
	sortOrder := SortDirection(strings.ToLower(c.Query("sort_order", string(SortAsc))))

	// Validate sort order
	if sortOrder != SortAsc && sortOrder != SortDesc {
		sortOrder = SortAsc
	}

	return PaginationParams{
		Page:      page,
		Per:       per,
		Offset:    offset,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

// ValidateSortColumn matches SortBy case-insensitively against columns and
// falls back to the first column when nothing matches.
func ValidateSortColumn(params PaginationParams, columns []string) PaginationParams {
	for _, column := range columns {
		if strings.EqualFold(column, params.SortBy) {
			params.SortBy = column
			return params
		}
	}
	if len(columns) > 0 {
		params.SortBy = columns[0]
	} else {
		params.SortBy = ""
	}
	return params
}

// BuildPaginationMeta creates pagination metadata from query results
func BuildPaginationMeta(params PaginationParams, total int64) PaginationMeta {
	var totalPages int
	if total > 0 && params.Per > 0 {
		totalPages = int((total + int64(params.Per) - 1) / int64(params.Per))
	}
	hasMore := params.Page < totalPages

	return PaginationMeta{
		Page:       params.Page,
		Per:        params.Per,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    hasMore,
	}
}

// NewPaginatedResponse wraps data with pagination metadata
func NewPaginatedResponse(data interface{}, params PaginationParams, total int64) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Pagination: BuildPaginationMeta(params, total),
	}
}

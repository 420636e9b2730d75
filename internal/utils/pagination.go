// internal/utils/pagination.go
package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PaginationParams struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// GetPaginationParams binds ?page and ?limit. Unparseable values fall back to
// the first page and out-of-range sizes to the default page size.
func GetPaginationParams(c *gin.Context) PaginationParams {
	var p PaginationParams
	if err := c.ShouldBindQuery(&p); err != nil {
		p = PaginationParams{}
	}
	return p.normalized()
}

func (p PaginationParams) normalized() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > maxPageSize {
		p.Limit = defaultPageSize
	}
	return p
}

func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	pages := 0
	if params.Limit > 0 {
		pages = int((total + int64(params.Limit) - 1) / int64(params.Limit))
	}
	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: pages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	for header, value := range map[string]string{
		"X-Total-Count": strconv.FormatInt(result.Total, 10),
		"X-Page":        strconv.Itoa(result.Page),
		"X-Per-Page":    strconv.Itoa(result.Limit),
		"X-Total-Pages": strconv.Itoa(result.TotalPages),
	} {
		c.Header(header, value)
	}
}

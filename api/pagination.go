// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPaginationCount    = 100
	MaxPaginationCount        = 100
	DefaultPaginationPage     = 1
	DefaultPaginationOrderAsc = "asc"
	PaginationOrderDesc       = "desc"
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// PaginationParams contains parsed pagination query values
type PaginationParams struct {
	Count int
	Page  int
	Order string
}

// ParsePagination parses the count, page and order query parameters and
// applies defaults and bounds clamping
func ParsePagination(c *gin.Context) (PaginationParams, error) {
	params := PaginationParams{
		Count: DefaultPaginationCount,
		Page:  DefaultPaginationPage,
		Order: DefaultPaginationOrderAsc,
	}
	if countParam := c.Query("count"); countParam != "" {
		count, err := strconv.Atoi(countParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Count = count
	}
	if pageParam := c.Query("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil {
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
		params.Page = page
	}
	if orderParam := c.Query("order"); orderParam != "" {
		convertedOrder := strings.ToLower(orderParam)
		switch convertedOrder {
		case DefaultPaginationOrderAsc, PaginationOrderDesc:
			params.Order = convertedOrder
		default:
			return PaginationParams{}, ErrInvalidPaginationParameters
		}
	}
	if params.Count < 1 {
		params.Count = 1
	}
	if params.Count > MaxPaginationCount {
		params.Count = MaxPaginationCount
	}
	if params.Page < 1 {
		params.Page = 1
	}
	return params, nil
}

// paginate returns the requested page of items and sets the pagination
// headers
func paginate[T any](c *gin.Context, items []T, params PaginationParams) []T {
	total := len(items)
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Count - 1) / params.Count
	}
	c.Header("X-Pagination-Count-Total", strconv.Itoa(total))
	c.Header("X-Pagination-Page-Total", strconv.Itoa(totalPages))
	ordered := items
	if params.Order == PaginationOrderDesc {
		ordered = make([]T, total)
		for idx, item := range items {
			ordered[total-1-idx] = item
		}
	}
	start := (params.Page - 1) * params.Count
	if start >= total {
		return []T{}
	}
	end := min(start+params.Count, total)
	return ordered[start:end]
}

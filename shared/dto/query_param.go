package dto

import (
	"lodge/shared/constant"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	SortDirAsc  = "ASC"
	SortDirDesc = "DESC"
)

type QueryParams struct {
	Page    int    `json:"page"     validate:"omitempty"`
	Limit   int    `json:"limit"    validate:"omitempty"`
	SortBy  string `json:"sort_by"  validate:"omitempty"`
	SortDir string `json:"sort_dir" validate:"omitempty,oneof=ASC DESC"`
}

// FromRequest populates QueryParams from the HTTP request.
// With defaultRequest set, missing page and limit fall back to the defaults and
// the ordering falls back to newest first.
func (q *QueryParams) FromRequest(r *http.Request, defaultRequest bool) {
	queryParams := r.URL.Query()

	if page := queryParams.Get(constant.RequestParamPage); page != "" {
		if pageInt, err := strconv.Atoi(page); err == nil && pageInt > 0 {
			q.Page = pageInt
		}
	}

	if limit := queryParams.Get(constant.RequestParamLimit); limit != "" {
		if limitInt, err := strconv.Atoi(limit); err == nil && limitInt > 0 {
			q.Limit = limitInt
		}
	}

	if sortBy := queryParams.Get(constant.RequestParamSortBy); sortBy != "" {
		q.SortBy = sortBy
	}

	if sortDir := strings.ToUpper(queryParams.Get(constant.RequestParamSortDir)); sortDir == SortDirAsc || sortDir == SortDirDesc {
		q.SortDir = sortDir
	}

	if defaultRequest {
		if q.Page == 0 {
			q.Page = constant.DefaultValuePage
		}

		if q.Limit == 0 {
			q.Limit = constant.DefaultValueLimit
		}

		if q.SortBy == "" {
			q.SortBy = constant.DefaultValueSortBy
		}

		if q.SortDir == "" {
			q.SortDir = constant.DefaultValueSortDir
		}
	}
}

// RestrictSort drops a sort column that is not in allowed, since SortBy ends up in the ORDER BY clause verbatim.
func (q *QueryParams) RestrictSort(allowed ...string) {
	if q.SortBy != "" && !slices.Contains(allowed, q.SortBy) {
		q.SortBy = constant.DefaultValueSortBy
	}
}

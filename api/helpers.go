package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.wheelz.io/wchain/httprouter"
	"go.wheelz.io/wchain/httprouter/apirest"
	"go.wheelz.io/wchain/types"
)

// marshalAndSend marshals v and sends it with HTTP status 200.
func marshalAndSend(ctx *httprouter.HTTPContext, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrMarshalingJSONFailed.WithErr(err)
	}
	return ctx.Send(data, apirest.HTTPstatusOK)
}

// parsePagination reads the page and perPage query parameters.
func parsePagination(ctx *httprouter.HTTPContext) (types.PaginationParams, error) {
	params := types.PaginationParams{Page: 1, PerPage: types.DefaultPageSize}
	query := ctx.Request.URL.Query()
	if s := query.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return params, ErrCantParsePageNumber.With(s)
		}
		params.Page = page
	}
	if s := query.Get("perPage"); s != "" {
		perPage, err := strconv.Atoi(s)
		if err != nil || perPage < 1 {
			return params, ErrCantParsePageSize.With(s)
		}
		if perPage > MaxPageSize {
			return params, ErrPageSizeTooBig.Withf("%d > %d", perPage, MaxPageSize)
		}
		params.PerPage = perPage
	}
	return params, nil
}

// parseListParam reads a comma separated query parameter as a string list.
func parseListParam(ctx *httprouter.HTTPContext, name string) []string {
	raw := ctx.Request.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

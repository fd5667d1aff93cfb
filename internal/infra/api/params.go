package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"digital-checkout/internal/domain"
)

const maxListLimit = 200

func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || v == "" {
		return "", fmt.Errorf("%w: invalid %s", domain.ErrInvalidArgument, name)
	}
	return v, nil
}

// limitParam reads ?limit=, defaulting to def and capping at maxListLimit.
func limitParam(r *http.Request, def int) (int, error) {
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		return 0, fmt.Errorf("%w: invalid limit", domain.ErrInvalidArgument)
	}
	if limit == nil {
		return def, nil
	}
	if *limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidArgument)
	}
	if *limit > maxListLimit {
		return maxListLimit, nil
	}
	return *limit, nil
}

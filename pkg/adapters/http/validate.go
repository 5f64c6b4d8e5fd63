package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// requestValidator rejects requests whose path parameters or bodies do not
// match the embedded OpenAPI document.
type requestValidator struct {
	router routers.Router
	logger *slog.Logger
}

func newRequestValidator(logger *slog.Logger) (*requestValidator, error) {
	swagger, err := GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	// Routes match on path alone, whatever host serves them.
	swagger.Servers = nil

	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &requestValidator{router: router, logger: logger}, nil
}

// Middleware validates API routes. Paths outside the document
// (/metrics, /openapi.yaml, /swagger) and unknown methods pass through to the mux.
func (v *requestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    &openapi3filter.Options{MultiError: true},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
			v.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "err", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

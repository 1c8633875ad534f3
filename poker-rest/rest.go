// Package pokerrest provides the chi middleware stack and entry point shared
// by the HTTP services, plus small JSON response helpers.
package pokerrest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	pokercli "github.com/pokerpoint/pokerpoint-go/poker-cli"
	"github.com/rs/zerolog"
	"github.com/savaki/apigateway"
	"github.com/urfave/cli/v2"
)

var RestOpts struct {
	AllowedOrigins string
}

var AllowedOriginsFlag = pokercli.StringFlag("allowed-origins", "Comma separated list of CORS origins", &RestOpts.AllowedOrigins, "*")

var Flags = []cli.Flag{
	AllowedOriginsFlag,
}

// DefaultRouter constructs a chi router with the common middleware.
func DefaultRouter(service pokercli.Service) chi.Router {
	return Middlewares(service, chi.NewRouter())
}

func Middlewares(service pokercli.Service, routes chi.Router) chi.Router {
	routes.Use(
		withEmbedPolicyHeaders,
		withCORS(origins(RestOpts.AllowedOrigins)),
		withLogger(pokercli.Logger(service)),
		middleware.Recoverer,
	)
	return routes
}

// Webserver listens locally in console mode, otherwise serves API Gateway
// requests as a Lambda.
func Webserver(service pokercli.Service, routes chi.Router) error {
	logger := pokercli.Logger(service)

	if pokercli.CommonOpts.Console {
		logger.Info().Int("port", pokercli.CommonOpts.Port).Msgf("starting %v", service.Name)
		addr := fmt.Sprintf(":%v", pokercli.CommonOpts.Port)
		if service.Subpath != "" {
			router := chi.NewRouter()
			router.Mount(fmt.Sprintf("/%v", service.Subpath), routes)
			routes = router
		}
		return http.ListenAndServe(addr, routes)
	}

	lambda.Start(apigateway.Wrap(routes, pokercli.CommonOpts.Env, service.Subpath))
	return nil
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, req *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(req.Context()).Warn().Err(err).Msg("failed to write response")
	}
}

// WriteError responds with {"error": message}.
func WriteError(w http.ResponseWriter, req *http.Request, status int, message string) {
	WriteJSON(w, req, status, map[string]string{"error": message})
}

func origins(value string) []string {
	var out []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func withEmbedPolicyHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := w.Header()
		header.Add("cross-origin-embedder-policy", "require-corp")
		header.Add("cross-origin-opener-policy", "same-origin")
		header.Add("cross-origin-resource-policy", "cross-origin")
		handler.ServeHTTP(w, req)
	})
}

func withCORS(allowed []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
	})
}

func withLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			l := logger.With().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Logger()
			req = req.WithContext(l.WithContext(req.Context()))
			handler.ServeHTTP(w, req)
		})
	}
}

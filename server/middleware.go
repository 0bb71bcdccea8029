package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// middlewareStack the middleware chain in front of every route
func middlewareStack(cfg *Config) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.IsProduction(),
	})

	return []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.Recoverer,
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					log.WithError(err).
						WithFields(log.Fields{"module": "server", "component": "middleware"}).
						Warn("Secure headers blocked request")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		httprate.Limit(cfg.RateLimitPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
}

/*
newRestAPIHandler define the REST handler base of one component

	@param cfg *Config - server configuration
	@param logTags log.Fields - component log tags
	@returns the REST handler base
*/
func newRestAPIHandler(cfg *Config, logTags log.Fields) goutils.RestAPIHandler {
	handler := goutils.RestAPIHandler{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		DoNotLogHeaders: map[string]bool{"Cookie": true, "Authorization": true},
		LogLevel:        goutils.HTTPRequestLogLevel(cfg.HTTPLogLevel),
		MetricsHelper:   httpRequestMetrics{},
	}
	if cfg.RequestIDHeader != "" {
		header := cfg.RequestIDHeader
		handler.CallRequestIDHeaderField = &header
	}
	return handler
}

// requestLogging the access log middleware of a REST handler as a router middleware
func requestLogging(handler goutils.RestAPIHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handler.LoggingMiddleware(next.ServeHTTP)
	}
}

// httpRequestMetrics records request outcomes in the process metric set
type httpRequestMetrics struct{}

// RecordRequest count one request by method and status
func (httpRequestMetrics) RecordRequest(
	method string, status int, latency time.Duration, respSize int64,
) {
	method = strings.ToUpper(method)
	vm.GetOrCreateCounter(fmt.Sprintf(
		`catalog_http_requests_total{method=%q,status="%d"}`, method, status,
	)).Inc()
	vm.GetOrCreateHistogram(fmt.Sprintf(
		`catalog_http_request_duration_seconds{method=%q}`, method,
	)).Update(latency.Seconds())
	vm.GetOrCreateCounter(fmt.Sprintf(
		`catalog_http_response_bytes_total{method=%q}`, method,
	)).Add(int(respSize))
}

/*
respond write a REST response, logging a failed write

	@param ctx context.Context - request context
	@param handler goutils.RestAPIHandler - the responding handler
	@param w http.ResponseWriter - the response
	@param status int - response code
	@param resp interface{} - response body
*/
func respond(
	ctx context.Context,
	handler goutils.RestAPIHandler,
	w http.ResponseWriter,
	status int,
	resp interface{},
) {
	if err := handler.WriteRESTResponse(w, status, resp, map[string]string{}); err != nil {
		log.WithError(err).WithFields(handler.GetLogTagsForContext(ctx)).Error("Failed to write response")
	}
}

// respondError write a standard REST error response
func respondError(
	ctx context.Context,
	handler goutils.RestAPIHandler,
	w http.ResponseWriter,
	status int,
	message string,
	detail string,
) {
	respond(ctx, handler, w, status, handler.GetStdRESTErrorMsg(ctx, status, message, detail))
}

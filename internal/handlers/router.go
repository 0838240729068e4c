package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/aicheck/internal/handlers/middleware"
	"github.com/nkiryanov/aicheck/internal/handlers/render"
	"github.com/nkiryanov/aicheck/internal/logger"
	"github.com/nkiryanov/aicheck/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// NewRouter serves the pages, JSON API and metrics
// metrics may be nil: then /metrics is not served
func NewRouter(
	detector detectorService,
	pages *render.Pages,
	metrics http.Handler,
	logger logger.Logger,
) http.Handler {
	root := http.NewServeMux()

	root.Handle("GET /{$}", handleIndex(pages))
	root.Handle("POST /check", handleCheck(detector, pages, logger))
	root.Handle("POST /api/check", handleAPICheck(detector, logger))

	if metrics != nil {
		root.Handle("GET /metrics", metrics)
	}

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type detectorService interface {
	// Classify text: never fails, failures are reported as verdict kinds
	Classify(ctx context.Context, text string) models.Verdict
}

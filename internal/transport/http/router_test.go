package httptransport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"safestep/pkg/testutil"
)

func TestRouter_Healthz(t *testing.T) {
	router := NewRouter(NewHandler(zap.NewNop(), nil))

	rr := testutil.Serve(t, router, http.MethodGet, "/healthz", http.StatusOK)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouter_Readyz(t *testing.T) {
	ok := CheckerFunc(func(context.Context) error { return nil })
	down := CheckerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all checks pass", func(t *testing.T) {
		router := NewRouter(NewHandler(zap.NewNop(), map[string]Checker{"postgres": ok, "redis": ok}))

		testutil.Serve(t, router, http.MethodGet, "/readyz", http.StatusOK)
	})

	t.Run("one failing check makes the worker unready", func(t *testing.T) {
		router := NewRouter(NewHandler(zap.NewNop(), map[string]Checker{"postgres": ok, "redis": down}))

		rr := testutil.Serve(t, router, http.MethodGet, "/readyz", http.StatusServiceUnavailable)
		body := testutil.DecodeJSON[map[string]string](t, rr)
		assert.Equal(t, "ok", body["postgres"])
		assert.Equal(t, "connection refused", body["redis"])
	})
}

func TestRouter_Metrics(t *testing.T) {
	router := NewRouter(NewHandler(zap.NewNop(), nil))

	rr := testutil.Serve(t, router, http.MethodGet, "/metrics", http.StatusOK)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := NewRouter(NewHandler(zap.NewNop(), nil))

	testutil.Serve(t, router, http.MethodPost, "/healthz", http.StatusMethodNotAllowed)
}

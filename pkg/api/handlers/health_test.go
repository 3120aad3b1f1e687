package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		db       Pinger
		cache    Pinger
		wantCode int
		wantBody string
	}{
		{"Success - all up", up, up, http.StatusOK, `{"status":"healthy","database":"up","cache":"up"}`},
		{"Success - no cache configured", up, nil, http.StatusOK, `{"status":"healthy","database":"up","cache":"disabled"}`},
		{"Error - database down", down, up, http.StatusServiceUnavailable, `{"status":"unhealthy","database":"down","cache":"up"}`},
		{"Error - cache down", up, down, http.StatusServiceUnavailable, `{"status":"unhealthy","database":"up","cache":"down"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/health", NewHealthHandler(tt.db, tt.cache).Health)

			rec := serve(e, http.MethodGet, "/health", "")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/steemit/discussion/pkg/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(&config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	shutdown()
}

func TestSpans(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.span")
	if ctx == nil {
		t.Fatal("StartSpan() returned nil context")
	}
	EndSpan(span, errors.New("boom"))
	EndSpan(span, nil)
}

func TestCounter(t *testing.T) {
	c := Counter("discussion.test.counter", "test counter")
	if c == nil {
		t.Fatal("Counter() = nil")
	}
	c.Add(context.Background(), 1)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Middleware())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	engine.GET("/metrics", gin.WrapH(MetricsHandler()))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /ping = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `discussion_http_request_duration_seconds_count{method="GET",route="/ping",status="200"}`) {
		t.Errorf("GET /metrics does not report /ping:\n%s", w.Body.String())
	}
}

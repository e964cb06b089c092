package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/interfaces/httpserver/middlewares"
	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/utils/platformerrors"
)

func newRequestIDEngine(capture map[string]any) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middlewares.RequestID())
	engine.GET("/echo", func(c *gin.Context) {
		capture["gin"] = middlewares.GetRequestID(c)
		capture["ctx"] = c.Request.Context().Value(platformerrors.RequestIDContextKey)
		capture["err"] = platformerrors.NewError(c.Request.Context(),
			platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "boom", nil, "echo-failed")
		c.Status(http.StatusNoContent)
	})
	return engine
}

func TestRequestIDPropagatesToRequestContext(t *testing.T) {
	capture := map[string]any{}
	engine := newRequestIDEngine(capture)

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(middlewares.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if capture["gin"] != "req-123" {
		t.Fatalf("expected the inbound header to win, got %v", capture["gin"])
	}
	if capture["ctx"] != "req-123" {
		t.Fatalf("request context should carry the request id, got %v", capture["ctx"])
	}
	perr, ok := capture["err"].(*platformerrors.PlatformError)
	if !ok || perr.RequestID != "req-123" {
		t.Fatalf("errors built from the request context must carry the request id, got %+v", capture["err"])
	}
	if rec.Header().Get(middlewares.RequestIDHeader) != "req-123" {
		t.Fatal("response should echo the request id header")
	}
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	capture := map[string]any{}
	engine := newRequestIDEngine(capture)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))

	id, _ := capture["gin"].(string)
	if id == "" {
		t.Fatal("a missing header must yield a generated request id")
	}
	if capture["ctx"] != id {
		t.Fatalf("gin context and request context ids must match, got %v vs %v", capture["gin"], capture["ctx"])
	}
	if rec.Header().Get(middlewares.RequestIDHeader) != id {
		t.Fatal("response should carry the generated id")
	}
}

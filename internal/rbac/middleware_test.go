package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"address-validator/internal/auth"

	"github.com/gin-gonic/gin"
)

func routeWithRole(role string, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			ctx := auth.WithOperator(c.Request.Context(), "ops", role)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}, RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(200)
	})
	return r
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	w := httptest.NewRecorder()
	routeWithRole(RoleAdmin, RoleLogViewer).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_UnknownRoleForbidden(t *testing.T) {
	w := httptest.NewRecorder()
	routeWithRole("guest", RoleLogViewer).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAnyRole_RoleRequired(t *testing.T) {
	w := httptest.NewRecorder()
	routeWithRole("", RoleLogViewer).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestKnown(t *testing.T) {
	if !Known(RoleLogViewer) || Known("owner") {
		t.Fatalf("unexpected role set")
	}
}

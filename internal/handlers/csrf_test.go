package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/eems-edu/examiner-service/internal/cache"
	"github.com/eems-edu/examiner-service/internal/utils"
)

func newCSRFTestRouter(t *testing.T, client *redis.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	csrf := NewCSRFMiddleware(cache.NewCacheHelper(client, cache.CSRFCacheConfig.Prefix), logger)

	router := gin.New()
	// Stand-in for the auth middleware
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})
	router.Use(csrf.Middleware())
	router.GET("/csrf", csrf.IssueToken)
	router.POST("/mutate", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return router
}

func TestCSRFMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	router := newCSRFTestRouter(t, client)

	t.Run("mutation without token is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/mutate", strings.NewReader("{}"))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("issued token passes the check", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/csrf", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("issue status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var issued map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &issued); err != nil {
			t.Fatalf("unmarshal issue response: %v", err)
		}
		token := issued["csrf_token"]
		if len(token) != 64 {
			t.Fatalf("token length = %d, want 64", len(token))
		}

		w = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/mutate", strings.NewReader("{}"))
		req.Header.Set(csrfHeader, token)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		// Ensure a stored token exists
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/csrf", nil))

		w = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/mutate", strings.NewReader("{}"))
		req.Header.Set(csrfHeader, strings.Repeat("f", 64))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("reads skip the check", func(t *testing.T) {
		mr.FlushAll()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/csrf", nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET blocked by csrf middleware: %d", w.Code)
		}
	})
}

func TestCSRFMiddleware_NoRedis(t *testing.T) {
	// Without Redis the check degrades to a no-op instead of locking
	// every client out.
	router := newCSRFTestRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mutate", strings.NewReader("{}"))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

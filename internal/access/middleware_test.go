package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"access-platform/internal/auth"
	"access-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

type fakeLimiter struct {
	allow      bool
	err        error
	acquired   []string
	released   []string
	releaseErr error
}

func (f *fakeLimiter) Acquire(ctx context.Context, checkpointID string) (bool, error) {
	f.acquired = append(f.acquired, checkpointID)
	return f.allow, f.err
}

func (f *fakeLimiter) Release(ctx context.Context, checkpointID string) error {
	f.released = append(f.released, checkpointID)
	return f.releaseErr
}

func capacityRouter(l SlotLimiter, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if role != "" {
		r.Use(func(c *gin.Context) {
			ctx := auth.WithIdentity(c.Request.Context(), "u1", role)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
	r.POST("/checkin", RequireCheckpointCapacity(l), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireCheckpointCapacity_AcquiresAndReleases(t *testing.T) {
	l := &fakeLimiter{allow: true}
	r := capacityRouter(l, rbac.RoleGuard)

	req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
	req.Header.Set(CheckpointHeader, "cp-main")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(l.acquired) != 1 || l.acquired[0] != "cp-main" {
		t.Errorf("acquired = %v, want [cp-main]", l.acquired)
	}
	if len(l.released) != 1 || l.released[0] != "cp-main" {
		t.Errorf("released = %v, want [cp-main]", l.released)
	}
}

func TestRequireCheckpointCapacity_RejectsAtCapacity(t *testing.T) {
	l := &fakeLimiter{allow: false}
	r := capacityRouter(l, rbac.RoleGuard)

	req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
	req.Header.Set(CheckpointHeader, "cp-main")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if len(l.released) != 0 {
		t.Errorf("rejected request released a slot")
	}
}

func TestRequireCheckpointCapacity_NoHeaderSkipsLimiter(t *testing.T) {
	l := &fakeLimiter{allow: false}
	r := capacityRouter(l, rbac.RoleGuard)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkin", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(l.acquired) != 0 {
		t.Errorf("limiter consulted without checkpoint header")
	}
}

func TestRequireCheckpointCapacity_SuperAdminBypasses(t *testing.T) {
	l := &fakeLimiter{allow: false}
	r := capacityRouter(l, rbac.RoleSuperAdmin)

	req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
	req.Header.Set(CheckpointHeader, "cp-main")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(l.acquired) != 0 {
		t.Errorf("super_admin consulted the limiter")
	}
}

func TestRequireCheckpointCapacity_DegradesOpenOnLimiterError(t *testing.T) {
	l := &fakeLimiter{allow: false, err: errors.New("redis down")}
	r := capacityRouter(l, rbac.RoleGuard)

	req := httptest.NewRequest(http.MethodPost, "/checkin", nil)
	req.Header.Set(CheckpointHeader, "cp-main")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when limiter is unavailable", w.Code)
	}
	if len(l.released) != 0 {
		t.Errorf("released a slot that was never acquired")
	}
}

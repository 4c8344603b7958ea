package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"access-platform/internal/access"
	"access-platform/internal/auth"
	"access-platform/internal/badge"
	"access-platform/internal/facility"
	"access-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *access.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := access.NewMemoryStore()
	store.SeedStaffUser(facility.StaffUser{ID: "guard-1", Name: "Ana", Role: rbac.RoleGuard, Active: true})
	store.SeedBadge(badge.Badge{ID: "GIA-001", Type: badge.TypeGIA, Status: badge.StatusFree})
	store.SeedBadge(badge.Badge{ID: "GIA-002", Type: badge.TypeGIA, Status: badge.StatusOccupied})

	h := Handlers{Engine: access.NewEngine(store)}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "guard-1", rbac.RoleGuard)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.POST("/v1/accesses", h.CheckIn)
	r.PATCH("/v1/accesses/:id", h.Edit)
	r.POST("/v1/accesses/:id/checkout", h.CheckOut)
	r.GET("/v1/accesses/:id", h.GetAccess)
	r.GET("/v1/accesses", h.ListAccesses)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckInEndpoint_Created(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/accesses",
		`{"visitor_name":"Jane Doe","motive":"maintenance","badge_id":"GIA-001"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var a access.Access
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.ID == "" || a.BadgeID != "GIA-001" {
		t.Fatalf("unexpected access: %+v", a)
	}
	if b, _ := store.BadgeByID("GIA-001"); b.Status != badge.StatusOccupied {
		t.Errorf("badge status = %q, want occupied", b.Status)
	}
}

func TestCheckInEndpoint_ValidationAndConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodPost, "/v1/accesses", `{"visitor_name":"Jane"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing motive status = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/v1/accesses", `{"motive":"visit","badge_id":"GIA-002"}`); w.Code != http.StatusConflict {
		t.Errorf("occupied badge status = %d, want 409", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/v1/accesses", `{"motive":"visit","badge_id":"GIA-999"}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown badge status = %d, want 422", w.Code)
	}
}

func TestCheckOutEndpoint_Flow(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/accesses", `{"motive":"visit","badge_id":"GIA-001"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("check-in status = %d", w.Code)
	}
	var a access.Access
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/accesses/"+a.ID+"/checkout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, body = %s", w.Code, w.Body.String())
	}
	if b, _ := store.BadgeByID("GIA-001"); b.Status != badge.StatusFree {
		t.Errorf("badge status = %q, want free", b.Status)
	}

	// Second checkout conflicts.
	w = doJSON(t, r, http.MethodPost, "/v1/accesses/"+a.ID+"/checkout", "")
	if w.Code != http.StatusConflict {
		t.Errorf("double checkout status = %d, want 409", w.Code)
	}
}

func TestEditEndpoint_PartialUpdate(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/accesses", `{"motive":"visit"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("check-in status = %d", w.Code)
	}
	var a access.Access
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodPatch, "/v1/accesses/"+a.ID, `{"visitor_name":"Jane Doe"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated access.Access
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.VisitorName != "Jane Doe" || updated.Motive != "visit" {
		t.Fatalf("unexpected merge: %+v", updated)
	}
}

func TestGetAccessEndpoint_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/v1/accesses/unknown-id", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestBadgeErrorStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", badge.ErrInvalidArgument, http.StatusBadRequest},
		{"already exists", badge.ErrAlreadyExists, http.StatusConflict},
		{"not found", badge.ErrNotFound, http.StatusNotFound},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Handlers{}.writeBadgeError(c, tc.err)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestListAccessesEndpoint_OpenOnly(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/accesses", `{"motive":"visit"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("check-in status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/accesses", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp struct {
		Accesses []access.Access `json:"accesses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Accesses) != 1 {
		t.Fatalf("open accesses = %d, want 1", len(resp.Accesses))
	}
}

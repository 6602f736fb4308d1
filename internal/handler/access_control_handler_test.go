package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"accessctl/internal/service"
	"accessctl/pkg/pagination"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubACService returns canned results so the handler's binding and status
// mapping can be exercised without a database.
type stubACService struct {
	listItems []service.AccessControlResponse
	listMeta  pagination.Meta
	listErr   error

	created   *service.AccessControlResponse
	createErr error

	updated   *service.AccessControlResponse
	updateErr error

	deleted    int64
	deleteErr  error
	deletedIDs []string
}

func (s *stubACService) List(_ context.Context, _ service.ListAccessControlsQuery) ([]service.AccessControlResponse, pagination.Meta, error) {
	return s.listItems, s.listMeta, s.listErr
}

func (s *stubACService) Create(_ context.Context, _ string, _ service.CreateAccessControlRequest) (*service.AccessControlResponse, error) {
	return s.created, s.createErr
}

func (s *stubACService) Update(_ context.Context, _ string, _ service.UpdateAccessControlRequest) (*service.AccessControlResponse, error) {
	return s.updated, s.updateErr
}

func (s *stubACService) Delete(_ context.Context, _ string, ids []string) (int64, error) {
	s.deletedIDs = ids
	return s.deleted, s.deleteErr
}

// testRouter wires the handler methods directly, without the auth guard, so
// these tests cover the handler layer only.
func testRouter(svc service.AccessControlService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAccessControlHandler(svc)
	r := gin.New()
	r.GET("/api/admin/complex-access-control", h.ListAccessControls)
	r.POST("/api/admin/complex-access-control", h.CreateAccessControl)
	r.PUT("/api/admin/complex-access-control", h.UpdateAccessControl)
	r.DELETE("/api/admin/complex-access-control", h.DeleteAccessControls)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListAccessControlsOK(t *testing.T) {
	svc := &stubACService{
		listItems: []service.AccessControlResponse{{ID: "abc", ResourceType: "page", ResourceID: "/x"}},
		listMeta:  pagination.NewMeta(1, 10, 1),
	}
	w := doJSON(t, testRouter(svc), http.MethodGet, "/api/admin/complex-access-control?page=1&limit=10", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Items []service.AccessControlResponse `json:"items"`
			Meta  pagination.Meta                 `json:"meta"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "page", body.Data.Items[0].ResourceType)
	assert.Equal(t, int64(1), body.Data.Meta.Total)
}

func TestListAccessControlsInternalError(t *testing.T) {
	svc := &stubACService{listErr: service.ErrInternal}
	w := doJSON(t, testRouter(svc), http.MethodGet, "/api/admin/complex-access-control", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "internal error:") // raw error never echoed
}

func TestCreateAccessControlStatusMapping(t *testing.T) {
	payload := gin.H{"resource_type": "page", "resource_id": "/x"}

	cases := []struct {
		name   string
		svc    *stubACService
		body   interface{}
		status int
	}{
		{"created", &stubACService{created: &service.AccessControlResponse{ID: "abc"}}, payload, http.StatusCreated},
		{"missing required fields", &stubACService{}, gin.H{"resource_type": "page"}, http.StatusBadRequest},
		{"validation error", &stubACService{createErr: service.ErrAccessControlNotFound}, payload, http.StatusBadRequest},
		{"conflict", &stubACService{createErr: service.ErrAccessControlExists}, payload, http.StatusConflict},
		{"store failure", &stubACService{createErr: service.ErrInternal}, payload, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, testRouter(tc.svc), http.MethodPost, "/api/admin/complex-access-control", tc.body)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestUpdateAccessControlStatusMapping(t *testing.T) {
	payload := gin.H{"id": "11111111-1111-1111-1111-111111111111"}

	cases := []struct {
		name   string
		svc    *stubACService
		body   interface{}
		status int
	}{
		{"updated", &stubACService{updated: &service.AccessControlResponse{ID: "abc"}}, payload, http.StatusOK},
		{"missing id", &stubACService{}, gin.H{"is_enabled": false}, http.StatusBadRequest},
		{"not found", &stubACService{updateErr: service.ErrAccessControlNotFound}, payload, http.StatusNotFound},
		{"resource conflict", &stubACService{updateErr: service.ErrAccessControlExists}, payload, http.StatusConflict},
		{"store failure", &stubACService{updateErr: service.ErrInternal}, payload, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, testRouter(tc.svc), http.MethodPut, "/api/admin/complex-access-control", tc.body)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestDeleteAccessControls(t *testing.T) {
	svc := &stubACService{deleted: 2}
	ids := []string{"11111111-1111-1111-1111-111111111111", "22222222-2222-2222-2222-222222222222"}

	w := doJSON(t, testRouter(svc), http.MethodDelete, "/api/admin/complex-access-control", gin.H{"ids": ids})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ids, svc.deletedIDs)

	var body struct {
		Data struct {
			DeletedCount int64 `json:"deleted_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Data.DeletedCount)
}

func TestDeleteAccessControlsEmptyIDs(t *testing.T) {
	cases := []struct {
		name string
		body interface{}
	}{
		{"missing ids", gin.H{}},
		{"empty ids", gin.H{"ids": []string{}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubACService{}
			w := doJSON(t, testRouter(svc), http.MethodDelete, "/api/admin/complex-access-control", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, svc.deletedIDs)
		})
	}
}

func TestDeleteAccessControlsInternalError(t *testing.T) {
	svc := &stubACService{deleteErr: service.ErrInternal}
	w := doJSON(t, testRouter(svc), http.MethodDelete, "/api/admin/complex-access-control",
		gin.H{"ids": []string{"11111111-1111-1111-1111-111111111111"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

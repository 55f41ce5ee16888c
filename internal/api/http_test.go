package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthz(t *testing.T) {
	rec := doRequest(t, NewRouter(nil, &stubServer{}, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"SERVING"}`, rec.Body.String())
}

func TestRouterTimeline(t *testing.T) {
	rec := doRequest(t, NewRouter(nil, &stubServer{}, nil), http.MethodGet, "/api/v1/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var timeline Timeline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &timeline))
	assert.Equal(t, uint64(3), timeline.Version)
	require.Len(t, timeline.Days, 2)
	assert.Equal(t, "a1", timeline.Days[0].Tasks[0].AnomalyID)
}

func TestRouterOpenView(t *testing.T) {
	stub := &stubServer{}
	router := NewRouter(nil, stub, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/views", `{"initial_date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2024-03-01", stub.lastOpen.InitialDate)

	var view View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "view-1", view.ViewID)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/views", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, stub.lastOpen.InitialDate)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/views", `{"initial_date":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "InvalidArgument")
}

func TestRouterViewRoutes(t *testing.T) {
	stub := &stubServer{}
	router := NewRouter(nil, stub, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/views/v-7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v-7", stub.lastViewID)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/views/v-7/date", `{"date":"2024-03-02"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastDate)
	assert.Equal(t, "v-7", stub.lastDate.ViewID)
	assert.Equal(t, "2024-03-02", stub.lastDate.Date)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/views/v-7/anomaly", `{"anomaly_id":"a1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastPick)
	assert.Equal(t, "a1", stub.lastPick.AnomalyID)

	for _, path := range []string{"/api/v1/views/v-7/anomaly", "/api/v1/views/v-7/date", "/api/v1/views/v-7"} {
		rec = doRequest(t, router, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouterErrors(t *testing.T) {
	router := NewRouter(nil, &stubServer{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/views/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NotFound", body.Code)
	assert.Equal(t, "view not found", body.Error)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/views/v-7/date", `{"date":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/api/v1/views/v-7/date", `{"day":"2024-03-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, NewRouter(nil, &stubServer{err: status.Error(codes.Unavailable, "down")}, nil), http.MethodGet, "/api/v1/timeline", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[codes.Code]int{
		codes.OK:                 http.StatusOK,
		codes.InvalidArgument:    http.StatusBadRequest,
		codes.NotFound:           http.StatusNotFound,
		codes.FailedPrecondition: http.StatusConflict,
		codes.Unavailable:        http.StatusServiceUnavailable,
		codes.Internal:           http.StatusInternalServerError,
		codes.Unknown:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, httpStatus(code), code.String())
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/detector"
	"github.com/gyaneshwarpardhi/upsell/internal/engine"
)

const sampleEvents = `{"events":[
  {"event":"product_viewed","distinct_id":"u1","properties":{"product_name":"Suite","product_price":999}},
  {"event":"usage_limit_reached","distinct_id":"u2","properties":{"limit_type":"api_calls","plan":"basic"}}
]}`

type fixture struct {
	dir     string
	loader  *config.Loader
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.json")
	require.NoError(t, os.WriteFile(sample, []byte(sampleEvents), 0o644))

	cfgPath := filepath.Join(dir, "upsell.yaml")
	body := fmt.Sprintf("version: v1\nserver:\n  upload_dir: %q\n  sample_file: %q\n", filepath.Join(dir, "uploads"), sample)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	loader, err := config.NewLoader(cfgPath)
	require.NoError(t, err)
	eng := engine.New(detector.Default(), loader.Config().Engine)
	return &fixture{dir: dir, loader: loader, handler: New(eng, loader)}
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAnalyzeBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/analyze/events", []byte(sampleEvents), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var resp analysisResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.TotalEvents)
	assert.Equal(t, 2, resp.Users)
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "u1", resp.Tasks[0].UserID)
	assert.Equal(t, "u2", resp.Tasks[1].UserID)
	assert.True(t, strings.HasSuffix(resp.AnalysisTime, "s"))

	var st agentStatus
	decode(t, f.do(t, http.MethodGet, "/v1/status", nil, ""), &st)
	assert.Equal(t, stateCompleted, st.Status)
}

func TestAnalyzeBody_Malformed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/analyze/events", []byte(`{"unexpected_key":[]}`), "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp analysisResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Tasks)

	var st agentStatus
	decode(t, f.do(t, http.MethodGet, "/v1/status", nil, ""), &st)
	assert.Equal(t, stateError, st.Status)
}

func TestAnalyzeFile(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/analyze", []byte(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/analyze", []byte(`{"use_sample_data":true}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp analysisResponse
	decode(t, rec, &resp)
	assert.Len(t, resp.Tasks, 2)

	missing := filepath.Join(f.loader.Config().Server.UploadDir, "nope.json")
	rec = f.do(t, http.MethodPost, "/v1/analyze", []byte(fmt.Sprintf(`{"events_file_path":%q}`, missing)), "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/analyze", []byte(`{"events_file_path":"/etc/passwd"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/analyze", []byte(`{not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartBody(t *testing.T, name, content string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestUploadThenAnalyze(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartBody(t, "events.json", sampleEvents)
	rec := f.do(t, http.MethodPost, "/v1/upload", body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var up struct {
		Success     bool   `json:"success"`
		FilePath    string `json:"file_path"`
		TotalEvents int    `json:"total_events"`
	}
	decode(t, rec, &up)
	assert.True(t, up.Success)
	assert.Equal(t, 2, up.TotalEvents)
	assert.FileExists(t, up.FilePath)

	rec = f.do(t, http.MethodPost, "/v1/analyze", []byte(fmt.Sprintf(`{"events_file_path":%q}`, up.FilePath)), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp analysisResponse
	decode(t, rec, &resp)
	assert.Len(t, resp.Tasks, 2)
}

func TestUpload_Rejects(t *testing.T) {
	f := newFixture(t)

	body, ct := multipartBody(t, "events.csv", "a,b")
	rec := f.do(t, http.MethodPost, "/v1/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorResponse
	decode(t, rec, &e)
	assert.False(t, e.Success)
	assert.Contains(t, e.Error, "Only JSON")

	body, ct = multipartBody(t, "events.json", `{"rows":[]}`)
	rec = f.do(t, http.MethodPost, "/v1/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSampleData(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/sample-data", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	decode(t, rec, &resp)
	assert.Equal(t, float64(2), resp["total_events"])
}

func TestThresholdsAndReload(t *testing.T) {
	f := newFixture(t)
	var th config.Thresholds
	decode(t, f.do(t, http.MethodGet, "/v1/thresholds", nil, ""), &th)
	assert.Equal(t, config.DefaultThresholds(), th)

	cfgPath := filepath.Join(f.dir, "upsell.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version: v2\nthresholds:\n  cross_category_cutoff: 0\n  high_value_price_cutoff: 10\n"), 0o644))
	rec := f.do(t, http.MethodPost, "/v1/config/reload", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10.0, f.loader.Thresholds().HighValuePriceCutoff)

	require.NoError(t, os.WriteFile(cfgPath, []byte("version: v2\nthresholds:\n  premium_feature_count_cutoff: -1\n"), 0o644))
	rec = f.do(t, http.MethodPost, "/v1/config/reload", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 10.0, f.loader.Thresholds().HighValuePriceCutoff)
}

func TestHealthAndRoot(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil, "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/nope", nil, "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/v1/analyze", nil, "").Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPassthrough(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestWithinDir(t *testing.T) {
	cases := []struct {
		dir, path string
		want      bool
	}{
		{"uploads", "uploads/a.json", true},
		{"uploads", "uploads/sub/a.json", true},
		{"uploads", "uploads", false},
		{"uploads", "uploads/../secret.json", false},
		{"uploads", "/etc/passwd", false},
		{"uploads", "uploads-other/a.json", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, withinDir(tc.dir, tc.path), "%s in %s", tc.path, tc.dir)
	}
}

func TestDetectors(t *testing.T) {
	f := newFixture(t)
	var resp struct {
		Kinds []string `json:"kinds"`
	}
	decode(t, f.do(t, http.MethodGet, "/v1/detectors", nil, ""), &resp)
	assert.Equal(t, []string{"HighValueProductView", "PremiumFeatureOveruse", "UsageLimitHit", "CrossCategoryEngagement"}, resp.Kinds)
}

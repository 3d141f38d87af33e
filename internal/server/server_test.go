package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CveDash/internal/cvedb"
	"CveDash/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct {
	err error
}

func (f failingSource) List(ctx context.Context) ([]model.CVE, error) {
	return nil, f.err
}

func (f failingSource) Get(ctx context.Context, id string) (model.CVE, error) {
	return model.CVE{}, f.err
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func TestListSeed(t *testing.T) {
	srv := New(cvedb.NewMemStore(cvedb.SeedCVEs()), nil)

	rec := doGet(t, srv, "/api/cves")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var cves []model.CVE
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cves))
	assert.Len(t, cves, 5)
	assert.Equal(t, "CVE-2023-46805", cves[0].ID)
}

func TestListWithFilters(t *testing.T) {
	srv := New(cvedb.NewMemStore(cvedb.SeedCVEs()), nil)

	rec := doGet(t, srv, "/api/cves?kev=true&minYear=2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var cves []model.CVE
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cves))
	require.Len(t, cves, 2)
	for _, cve := range cves {
		assert.True(t, cve.InKEV)
		assert.GreaterOrEqual(t, cve.Year, 2024)
	}

	rec = doGet(t, srv, "/api/cves?q=xz-utils")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cves))
	require.NotEmpty(t, cves)
	assert.Equal(t, "CVE-2024-3094", cves[0].ID)
}

func TestGet(t *testing.T) {
	srv := New(cvedb.NewMemStore(cvedb.SeedCVEs()), nil)

	rec := doGet(t, srv, "/api/cves/CVE-2021-44228")
	require.Equal(t, http.StatusOK, rec.Code)

	var cve model.CVE
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cve))
	assert.Equal(t, "CVE-2021-44228", cve.ID)
	require.NotNil(t, cve.CVSS)
	assert.Equal(t, 10.0, *cve.CVSS)
}

func TestGetNotFound(t *testing.T) {
	srv := New(cvedb.NewMemStore(cvedb.SeedCVEs()), nil)

	rec := doGet(t, srv, "/api/cves/CVE-1999-0000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CVE not found", decodeMessage(t, rec))
}

func TestUpstreamErrorRelayed(t *testing.T) {
	srv := New(failingSource{err: &cvedb.UpstreamError{StatusCode: http.StatusTooManyRequests}}, nil)

	rec := doGet(t, srv, "/api/cves")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Failed to fetch CVEs", decodeMessage(t, rec))

	rec = doGet(t, srv, "/api/cves/CVE-2024-3094")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "CVE not found", decodeMessage(t, rec))
}

func TestInternalError(t *testing.T) {
	srv := New(failingSource{err: errors.New("connection refused")}, nil)

	rec := doGet(t, srv, "/api/cves")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeMessage(t, rec))
}

func TestShodanProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cves":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"cves":[{"cve_id":"CVE-2024-3400","summary":"PAN-OS command injection","cvss":10.0,"epss":0.96,"kev":true,"published_time":"2024-04-12T08:15:06","cpes":["cpe:2.3:o:paloaltonetworks:pan-os:10.2.0:*:*:*:*:*:*:*"]}]}`))
		default:
			http.Error(w, `{"detail":"Not Found"}`, http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	srv := New(cvedb.NewShodanClient(upstream.URL, 5*time.Second, 0), nil)

	rec := doGet(t, srv, "/api/cves")
	require.Equal(t, http.StatusOK, rec.Code)
	var cves []model.CVE
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cves))
	require.Len(t, cves, 1)
	assert.Equal(t, "CVE-2024-3400", cves[0].ID)
	assert.True(t, cves[0].InKEV)
	assert.Equal(t, 2024, cves[0].Year)
	assert.Equal(t, []string{"paloaltonetworks:pan-os"}, cves[0].AffectedSoftware)

	rec = doGet(t, srv, "/api/cves/CVE-0000-0000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CVE not found", decodeMessage(t, rec))
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := NewMetrics()
	srv := New(cvedb.NewMemStore(cvedb.SeedCVEs()), metrics)

	rec := doGet(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	doGet(t, srv, "/api/cves")
	doGet(t, srv, "/api/cves/CVE-1999-0000")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/cves", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/cves/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SourceErrors.WithLabelValues("not_found")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.RecordsServed))

	rec = doGet(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "cvedash_http_requests_total"))
}

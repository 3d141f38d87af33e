package cvedb

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

// nvdFeed 模拟NVD分页接口，按startIndex/resultsPerPage切片返回
type nvdFeed struct {
	vulns []NVDVulnerability
	// failAt 第几次请求返回503（从1开始），0表示不失败
	failAt   int32
	requests int32

	mu      sync.Mutex
	apiKeys []string
}

func (f *nvdFeed) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.apiKeys...)
}

func (f *nvdFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt32(&f.requests, 1)
	f.mu.Lock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("apiKey"))
	f.mu.Unlock()

	if f.failAt != 0 && n == f.failAt {
		http.Error(w, `{"message":"upstream unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	start, _ := strconv.Atoi(r.URL.Query().Get("startIndex"))
	size, _ := strconv.Atoi(r.URL.Query().Get("resultsPerPage"))
	end := start + size
	if start > len(f.vulns) {
		start = len(f.vulns)
	}
	if end > len(f.vulns) {
		end = len(f.vulns)
	}

	resp := NVDResponse{
		ResultsPerPage:  end - start,
		StartIndex:      start,
		TotalResults:    len(f.vulns),
		Vulnerabilities: f.vulns[start:end],
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *nvdFeed) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

// generateVulns 生成n条带不同分数的记录
func generateVulns(n int) []NVDVulnerability {
	vulns := make([]NVDVulnerability, 0, n)
	for i := 0; i < n; i++ {
		score := float64(i%100) / 10
		vulns = append(vulns, NVDVulnerability{CVE: NVDCVE{
			ID:           fmt.Sprintf("CVE-2024-%05d", i),
			Published:    "2024-03-01T10:00:00.000",
			Descriptions: []NVDDescription{{Lang: "en", Value: fmt.Sprintf("Vulnerability %d", i)}},
			Metrics: NVDMetrics{CvssMetricV31: []CVSSMetric{
				{CvssData: CVSSData{Version: "3.1", BaseScore: &score}},
			}},
		}})
	}
	return vulns
}

func kevServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testNVDClient(baseURL string, pageSize, maxRecords int) *CVEAPIClient {
	return NewCVEAPIClient(NVDOptions{
		BaseURL:    baseURL,
		PageSize:   pageSize,
		MaxRecords: maxRecords,
	})
}

func ptr(v float64) *float64 {
	return &v
}

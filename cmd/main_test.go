package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"CveDash/internal/cvedb"
	"CveDash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListSeedJSON(t *testing.T) {
	out, err := runCmd(t, "list", "--source", "seed", "--format", "json", "--kev", "--min-year", "2024")
	require.NoError(t, err)

	var cves []model.CVE
	require.NoError(t, json.Unmarshal([]byte(out), &cves))
	require.Len(t, cves, 2)
	for _, cve := range cves {
		assert.True(t, cve.InKEV)
		assert.GreaterOrEqual(t, cve.Year, 2024)
	}
}

func TestListStaticWithQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cves.json")
	require.NoError(t, cvedb.WriteArtifact(path, cvedb.SeedCVEs()))

	out, err := runCmd(t, "list", "--input", path, "--format", "json", "runc")
	require.NoError(t, err)

	var cves []model.CVE
	require.NoError(t, json.Unmarshal([]byte(out), &cves))
	require.NotEmpty(t, cves)
	assert.Equal(t, "CVE-2024-21626", cves[0].ID)
}

func TestListProductRequiresSQLite(t *testing.T) {
	_, err := runCmd(t, "list", "--source", "seed", "--product", "log4j")
	assert.Error(t, err)
}

func TestListUnknownSource(t *testing.T) {
	_, err := runCmd(t, "list", "--source", "redis")
	assert.Error(t, err)
}

func TestFetchThenHistory(t *testing.T) {
	feeds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/kev":
			_, _ = w.Write([]byte(`{"title":"CISA KEV","count":1,"vulnerabilities":[{"cveID":"CVE-2023-46805"}]}`))
		case "/nvd":
			_, _ = w.Write([]byte(`{"resultsPerPage":2,"startIndex":0,"totalResults":2,"vulnerabilities":[
				{"cve":{"id":"CVE-2023-46805","published":"2024-01-12T17:15:09.530","descriptions":[{"lang":"en","value":"Ivanti auth bypass"}],
				 "metrics":{"cvssMetricV31":[{"cvssData":{"version":"3.1","baseScore":8.2}}]},
				 "configurations":[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:a:ivanti:connect_secure:9.0:*:*:*:*:*:*:*"}]}]}]}},
				{"cve":{"id":"CVE-2024-0002","published":"2024-02-01T00:00:00.000","descriptions":[{"lang":"en","value":"Something"}],"metrics":{}}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer feeds.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "public", "api", "cves.json")
	dbPath := filepath.Join(dir, "cves.db")

	t.Setenv("CVEDASH_NVD_URL", feeds.URL+"/nvd")
	t.Setenv("CVEDASH_KEV_URL", feeds.URL+"/kev")
	t.Setenv("CVEDASH_NVD_REQUEST_INTERVAL", "0s")

	out, err := runCmd(t, "fetch", "--output", output, "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var report model.RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 1, report.InKEV)
	assert.False(t, report.Partial)

	written, err := cvedb.ReadArtifact(output)
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.Equal(t, "CVE-2023-46805", written[0].ID)
	assert.True(t, written[0].InKEV)
	assert.Nil(t, written[1].CVSS)

	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	out, err = runCmd(t, "history", "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	var history []model.UpdateHistory
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 1)
	assert.Equal(t, report.RunID, history[0].RunID)
	assert.Equal(t, 2, history[0].Records)

	out, err = runCmd(t, "list", "--source", "sqlite", "--db", dbPath, "--product", "connect_secure", "--format", "json")
	require.NoError(t, err)
	var cves []model.CVE
	require.NoError(t, json.Unmarshal([]byte(out), &cves))
	require.Len(t, cves, 1)
	assert.Equal(t, "CVE-2023-46805", cves[0].ID)
}

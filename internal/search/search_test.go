package search

import (
	"testing"

	"CveDash/internal/model"

	"github.com/stretchr/testify/assert"
)

func sample() []model.CVE {
	return []model.CVE{
		{
			ID:                 "CVE-2021-44228",
			Description:        "Apache Log4j2 JNDI features do not protect against attacker controlled LDAP endpoints.",
			CVSS:               model.Float64(10.0),
			EPSS:               model.Float64(0.975),
			InKEV:              true,
			VulnerabilityClass: model.String("RCE"),
			AffectedSoftware:   []string{"Apache Log4j"},
			Year:               2021,
			Exploits:           []model.Exploit{{ID: "3", Source: model.ExploitSourceExploitDB, Name: "Apache Log4j2 - Remote Code Execution (RCE)"}},
		},
		{
			ID:                 "CVE-2024-21626",
			Description:        "runc process.cwd and leaked fds container breakout.",
			CVSS:               model.Float64(8.6),
			EPSS:               model.Float64(0.432),
			VulnerabilityClass: model.String("Container Breakout"),
			AffectedSoftware:   []string{"runc"},
			Year:               2024,
			Exploits:           []model.Exploit{},
		},
		{
			ID:                 "CVE-2024-27198",
			Description:        "Authentication bypass in the web component of TeamCity.",
			CVSS:               model.Float64(9.8),
			InKEV:              true,
			VulnerabilityClass: model.String("Auth Bypass"),
			AffectedSoftware:   []string{"JetBrains TeamCity"},
			Year:               2024,
			Exploits:           []model.Exploit{{ID: "5", Source: model.ExploitSourceMetasploit, Name: "TeamCity Unauthenticated RCE"}},
		},
		{
			ID:               "CVE-2019-0001",
			Description:      "Low impact issue.",
			CVSS:             model.Float64(3.1),
			EPSS:             model.Float64(0.6),
			AffectedSoftware: []string{},
			Year:             2019,
			Exploits:         []model.Exploit{},
		},
	}
}

func ids(cves []model.CVE) []string {
	out := make([]string, 0, len(cves))
	for _, cve := range cves {
		out = append(out, cve.ID)
	}
	return out
}

func TestQuerySubstring(t *testing.T) {
	cves := sample()

	assert.Equal(t, []string{"CVE-2021-44228"}, ids(Query(cves, "log4j")))
	assert.Equal(t, []string{"CVE-2024-21626"}, ids(Query(cves, "BREAKOUT")))
	assert.Equal(t, []string{"CVE-2024-27198"}, ids(Query(cves, "authentication bypass")))
}

func TestQuerySubstringBeforeFuzzy(t *testing.T) {
	// CVE-2021-44228 只能模糊匹配 2-0-2-4，排在子串命中之后
	got := Query(sample(), "2024")
	assert.Equal(t, []string{"CVE-2024-21626", "CVE-2024-27198", "CVE-2021-44228"}, ids(got))
}

func TestQueryFuzzy(t *testing.T) {
	got := Query(sample(), "tmcty")
	assert.Equal(t, []string{"CVE-2024-27198"}, ids(got))
}

func TestQueryEmpty(t *testing.T) {
	cves := sample()
	assert.Len(t, Query(cves, "   "), len(cves))
}

func TestFilters(t *testing.T) {
	cves := sample()

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"none", Filters{}, []string{"CVE-2021-44228", "CVE-2024-21626", "CVE-2024-27198", "CVE-2019-0001"}},
		{"has exploit", Filters{HasExploit: true}, []string{"CVE-2021-44228", "CVE-2024-27198"}},
		{"in kev", Filters{InKEV: true}, []string{"CVE-2021-44228", "CVE-2024-27198"}},
		{"min year", Filters{MinYear: 2024}, []string{"CVE-2024-21626", "CVE-2024-27198"}},
		// EPSS >= 0.5 也算严重
		{"critical", Filters{CriticalOnly: true}, []string{"CVE-2021-44228", "CVE-2024-27198", "CVE-2019-0001"}},
		{"combined", Filters{InKEV: true, MinYear: 2022}, []string{"CVE-2024-27198"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(cves, "", tt.filters)))
		})
	}
}

func TestApplySearchThenFilter(t *testing.T) {
	got := Apply(sample(), "2024", Filters{HasExploit: true})
	assert.Equal(t, []string{"CVE-2024-27198", "CVE-2021-44228"}, ids(got))
}

package cvedb

import (
	"context"

	"CveDash/internal/model"
)

// SeedCVEs 内置的演示数据，没有抓取结果时供看板使用
func SeedCVEs() []model.CVE {
	return []model.CVE{
		{
			ID:                 "CVE-2023-46805",
			Description:        "An authentication bypass vulnerability in the web component of Ivanti Connect Secure (9.x, 22.x) and Ivanti Policy Secure (9.x, 22.x) allows a remote attacker to access restricted resources by bypassing control checks.",
			CVSS:               model.Float64(8.2),
			EPSS:               model.Float64(0.965),
			InKEV:              true,
			VulnerabilityClass: model.String("Auth Bypass"),
			AffectedSoftware:   []string{"Ivanti Connect Secure", "Ivanti Policy Secure"},
			Year:               2023,
			Exploits: []model.Exploit{
				{ID: "1", Source: model.ExploitSourceMetasploit, URL: "https://github.com/rapid7/metasploit-framework/blob/master/modules/exploits/linux/http/ivanti_connect_secure_rce_cve_2023_46805.rb", Name: "Ivanti Connect Secure Unauthenticated Remote Code Execution"},
			},
		},
		{
			ID:                 "CVE-2024-3094",
			Description:        "Malicious code was discovered in the upstream tarballs of xz, starting with version 5.6.0. Through a series of complex obfuscations, the liblzma build process extracts a prebuilt object file from a disguised test file existing in the source code.",
			CVSS:               model.Float64(10.0),
			EPSS:               model.Float64(0.812),
			InKEV:              true,
			VulnerabilityClass: model.String("Backdoor / RCE"),
			AffectedSoftware:   []string{"xz-utils", "liblzma"},
			Year:               2024,
			Exploits: []model.Exploit{
				{ID: "2", Source: model.ExploitSourceGitHub, URL: "https://github.com/amlweems/xzbot", Name: "xzbot"},
			},
		},
		{
			ID:                 "CVE-2021-44228",
			Description:        "Apache Log4j2 2.0-beta9 through 2.14.1 (excluding security releases 2.12.2, 2.12.3, and 2.3.1) JNDI features used in configuration, log messages, and parameters do not protect against attacker controlled LDAP and other JNDI related endpoints.",
			CVSS:               model.Float64(10.0),
			EPSS:               model.Float64(0.975),
			InKEV:              true,
			VulnerabilityClass: model.String("RCE"),
			AffectedSoftware:   []string{"Apache Log4j"},
			Year:               2021,
			Exploits: []model.Exploit{
				{ID: "3", Source: model.ExploitSourceExploitDB, URL: "https://www.exploit-db.com/exploits/50592", Name: "Apache Log4j2 - Remote Code Execution (RCE)"},
			},
		},
		{
			ID:                 "CVE-2024-21626",
			Description:        "runc is a CLI tool for spawning and running containers according to the OCI specification. In runc 1.1.11 and earlier, due to an internal file descriptor leak, an attacker could cause a newly-spawned container process to have a working directory in the host filesystem namespace.",
			CVSS:               model.Float64(8.6),
			EPSS:               model.Float64(0.432),
			InKEV:              false,
			VulnerabilityClass: model.String("Container Breakout"),
			AffectedSoftware:   []string{"runc"},
			Year:               2024,
			Exploits: []model.Exploit{
				{ID: "4", Source: model.ExploitSourceGitHub, URL: "https://github.com/leesh3288/CVE-2024-21626", Name: "CVE-2024-21626 PoC"},
			},
		},
		{
			ID:                 "CVE-2024-27198",
			Description:        "An authentication bypass vulnerability in JetBrains TeamCity before 2023.11.4 allows an unauthenticated attacker to bypass authentication.",
			CVSS:               model.Float64(9.8),
			EPSS:               model.Float64(0.95),
			InKEV:              true,
			VulnerabilityClass: model.String("Auth Bypass"),
			AffectedSoftware:   []string{"JetBrains TeamCity"},
			Year:               2024,
			Exploits: []model.Exploit{
				{ID: "5", Source: model.ExploitSourceMetasploit, URL: "https://github.com/rapid7/metasploit-framework/blob/master/modules/exploits/multi/http/jetbrains_teamcity_rce_cve_2024_27198.rb", Name: "JetBrains TeamCity Unauthenticated Remote Code Execution"},
			},
		},
	}
}

// MemStore 基于内存的只读数据源
type MemStore struct {
	cves []model.CVE
}

func NewMemStore(cves []model.CVE) *MemStore {
	return &MemStore{cves: cves}
}

func (m *MemStore) List(ctx context.Context) ([]model.CVE, error) {
	out := make([]model.CVE, len(m.cves))
	copy(out, m.cves)
	return out, nil
}

func (m *MemStore) Get(ctx context.Context, id string) (model.CVE, error) {
	for _, cve := range m.cves {
		if cve.ID == id {
			return cve, nil
		}
	}
	return model.CVE{}, ErrNotFound
}

package model

// CVE 看板使用的统一漏洞记录，JSON字段名即输出文件的契约
type CVE struct {
	ID                 string    `json:"id"`
	Description        string    `json:"description"`
	CVSS               *float64  `json:"cvss"`
	EPSS               *float64  `json:"epss"`
	InKEV              bool      `json:"inKev"`
	VulnerabilityClass *string   `json:"vulnerabilityClass"`
	AffectedSoftware   []string  `json:"affectedSoftware"`
	Year               int       `json:"year"`
	Exploits           []Exploit `json:"exploits"`

	// 受影响软件超过上限被截断时为true
	AffectedSoftwareTruncated bool `json:"affectedSoftwareTruncated,omitempty"`
}

// ExploitSource 利用代码来源
type ExploitSource string

const (
	ExploitSourceExploitDB  ExploitSource = "exploit-db"
	ExploitSourceGitHub     ExploitSource = "github"
	ExploitSourceMetasploit ExploitSource = "metasploit"
	ExploitSourceTrickest   ExploitSource = "trickest"
)

// Valid 是否为已知来源
func (s ExploitSource) Valid() bool {
	switch s {
	case ExploitSourceExploitDB, ExploitSourceGitHub, ExploitSourceMetasploit, ExploitSourceTrickest:
		return true
	}
	return false
}

// Exploit 利用代码链接
type Exploit struct {
	ID     string        `json:"id"`
	Source ExploitSource `json:"source"`
	Name   string        `json:"name"`
	URL    string        `json:"url"`
}

// Score 返回CVSS分数，没有分数时返回0
func (c CVE) Score() float64 {
	if c.CVSS == nil {
		return 0
	}
	return *c.CVSS
}

// EPSSScore 返回EPSS概率，没有时返回0
func (c CVE) EPSSScore() float64 {
	if c.EPSS == nil {
		return 0
	}
	return *c.EPSS
}

// IsCritical 看板的"严重"判定：CVSS >= 9.0 或 EPSS >= 0.5
func (c CVE) IsCritical() bool {
	return c.Score() >= 9.0 || c.EPSSScore() >= 0.5
}

// Severity CVSS严重等级
func (c CVE) Severity() string {
	if c.CVSS == nil {
		return "UNKNOWN"
	}
	switch score := *c.CVSS; {
	case score >= 9.0:
		return "CRITICAL"
	case score >= 7.0:
		return "HIGH"
	case score >= 4.0:
		return "MEDIUM"
	case score > 0:
		return "LOW"
	default:
		return "NONE"
	}
}

func Float64(v float64) *float64 {
	return &v
}

func String(v string) *string {
	return &v
}

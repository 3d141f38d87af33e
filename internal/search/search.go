package search

import (
	"strings"

	"CveDash/internal/model"

	"github.com/sahilm/fuzzy"
)

// Filters 看板的筛选条件，零值表示不筛选
type Filters struct {
	HasExploit   bool
	InKEV        bool
	MinYear      int
	CriticalOnly bool
}

// Match 记录是否满足全部筛选条件
func (f Filters) Match(cve model.CVE) bool {
	if f.HasExploit && len(cve.Exploits) == 0 {
		return false
	}
	if f.InKEV && !cve.InKEV {
		return false
	}
	if f.MinYear > 0 && cve.Year < f.MinYear {
		return false
	}
	if f.CriticalOnly && !cve.IsCritical() {
		return false
	}
	return true
}

// Apply 先按关键字搜索，再应用筛选条件
func Apply(cves []model.CVE, query string, filters Filters) []model.CVE {
	matched := cves
	if strings.TrimSpace(query) != "" {
		matched = Query(cves, query)
	}

	results := make([]model.CVE, 0, len(matched))
	for _, cve := range matched {
		if filters.Match(cve) {
			results = append(results, cve)
		}
	}
	return results
}

// Query 关键字搜索。
// 任一字段包含关键字（不区分大小写）的记录按原顺序排在前面；
// 其余记录在编号、类别、受影响软件、利用代码名称上做模糊匹配，按得分排序。
func Query(cves []model.CVE, query string) []model.CVE {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return cves
	}

	results := make([]model.CVE, 0)
	seen := make(map[int]bool)
	for i, cve := range cves {
		if containsAny(cve, needle) {
			results = append(results, cve)
			seen[i] = true
		}
	}

	fields := make(fieldSource, 0, len(cves))
	for i, cve := range cves {
		if seen[i] {
			continue
		}
		for _, text := range shortFields(cve) {
			fields = append(fields, field{record: i, text: text})
		}
	}

	for _, m := range fuzzy.FindFrom(needle, fields) {
		idx := fields[m.Index].record
		if seen[idx] {
			continue
		}
		seen[idx] = true
		results = append(results, cves[idx])
	}
	return results
}

type field struct {
	record int
	text   string
}

// fieldSource 实现 fuzzy.Source
type fieldSource []field

func (s fieldSource) String(i int) string { return s[i].text }
func (s fieldSource) Len() int            { return len(s) }

func shortFields(cve model.CVE) []string {
	out := []string{strings.ToLower(cve.ID)}
	if cve.VulnerabilityClass != nil {
		out = append(out, strings.ToLower(*cve.VulnerabilityClass))
	}
	for _, software := range cve.AffectedSoftware {
		out = append(out, strings.ToLower(software))
	}
	for _, exploit := range cve.Exploits {
		out = append(out, strings.ToLower(exploit.Name))
	}
	return out
}

func containsAny(cve model.CVE, needle string) bool {
	if strings.Contains(strings.ToLower(cve.Description), needle) {
		return true
	}
	for _, text := range shortFields(cve) {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

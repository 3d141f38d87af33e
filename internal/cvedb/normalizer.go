package cvedb

import (
	"regexp"
	"strings"

	"CveDash/internal/model"
	"CveDash/internal/utils"
)

const (
	MaxDescriptionLength = 1000
	MaxAffectedSoftware  = 10
	NoDescription        = "No description available"

	// 第一批CVE的年份，年份完全无法确定时使用
	firstCVEYear = 1999
)

var cveIDPattern = regexp.MustCompile(`^CVE-(\d{4})-\d+`)

// Normalize 将一条NVD记录转换为统一的CVE记录。
// 结果只取决于输入；缺失或格式错误的字段退化为默认值，不会返回错误。
func Normalize(vuln NVDVulnerability, inKEV bool) model.CVE {
	cve := vuln.CVE

	software, truncated := extractAffectedSoftware(cve.Configurations)

	return model.CVE{
		ID:                        cve.ID,
		Description:               utils.TruncateRunes(pickDescription(cve.Descriptions), MaxDescriptionLength),
		CVSS:                      resolveScore(cve.Metrics),
		EPSS:                      nil,
		InKEV:                     inKEV,
		VulnerabilityClass:        classifyWeakness(cve.Weaknesses),
		AffectedSoftware:          software,
		AffectedSoftwareTruncated: truncated,
		Year:                      resolveYear(cve.ID, cve.Published, cve.LastModified),
		Exploits:                  []model.Exploit{},
	}
}

// pickDescription 优先英文描述，其次第一条，都没有时使用占位文本
func pickDescription(descriptions []NVDDescription) string {
	for _, desc := range descriptions {
		if desc.Lang == "en" && desc.Value != "" {
			return desc.Value
		}
	}
	for _, desc := range descriptions {
		if desc.Value != "" {
			return desc.Value
		}
	}
	return NoDescription
}

// resolveYear 优先使用编号中的年份，其次发布时间、修改时间
func resolveYear(id string, timestamps ...string) int {
	if match := cveIDPattern.FindStringSubmatch(id); match != nil {
		if year, ok := utils.ParseYear(match[1]); ok {
			return year
		}
	}
	for _, ts := range timestamps {
		if t, ok := utils.ParseTimestamp(ts); ok && utils.ValidYear(t.Year()) {
			return t.Year()
		}
	}
	return firstCVEYear
}

// extractAffectedSoftware 从CPE字符串中提取 vendor:product，去重后保留前10个。
// 第二个返回值表示是否发生了截断。
func extractAffectedSoftware(configs []NVDConfiguration) ([]string, bool) {
	var criteria []string
	for _, config := range configs {
		for _, node := range config.Nodes {
			for _, match := range node.CpeMatch {
				criteria = append(criteria, match.Criteria)
			}
		}
	}
	return softwareFromCPEs(criteria, MaxAffectedSoftware)
}

// softwareFromCPEs cpe:2.3:part:vendor:product:...，第3、4个字段为vendor和product
func softwareFromCPEs(cpes []string, max int) ([]string, bool) {
	software := []string{}
	seen := make(map[string]struct{})
	truncated := false

	for _, cpe := range cpes {
		parts := strings.Split(cpe, ":")
		if len(parts) < 5 {
			continue
		}
		vendor, product := parts[3], parts[4]
		if vendor == "" || product == "" || vendor == "*" || product == "*" {
			continue
		}

		key := vendor + ":" + product
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if len(software) == max {
			truncated = true
			continue
		}
		software = append(software, key)
	}

	return software, truncated
}

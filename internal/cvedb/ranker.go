package cvedb

import (
	"sort"

	"CveDash/internal/model"
)

const DefaultOutputLimit = 500

// DedupeByID 按编号去重，保留第一次出现的记录
func DedupeByID(records []model.CVE) ([]model.CVE, int) {
	seen := make(map[string]struct{}, len(records))
	unique := make([]model.CVE, 0, len(records))
	for _, record := range records {
		if _, ok := seen[record.ID]; ok {
			continue
		}
		seen[record.ID] = struct{}{}
		unique = append(unique, record)
	}
	return unique, len(records) - len(unique)
}

// Rank 按CVSS降序（无分数排最后）、年份降序排序，并截取前limit条
func Rank(records []model.CVE, limit int) []model.CVE {
	ranked, _ := DedupeByID(records)

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankBefore(ranked[i], ranked[j])
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func rankBefore(a, b model.CVE) bool {
	switch {
	case a.CVSS != nil && b.CVSS != nil:
		if *a.CVSS != *b.CVSS {
			return *a.CVSS > *b.CVSS
		}
	case a.CVSS != nil:
		return true
	case b.CVSS != nil:
		return false
	}
	return a.Year > b.Year
}

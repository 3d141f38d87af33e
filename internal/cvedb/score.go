package cvedb

import (
	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
)

// cvssAccessor 按版本取出对应的评分块
type cvssAccessor struct {
	version string
	blocks  func(NVDMetrics) []CVSSMetric
	parse   func(vector string) (float64, error)
}

// 按版本从新到旧排列，新增版本只需加一行
var scoreChain = []cvssAccessor{
	{"3.1", func(m NVDMetrics) []CVSSMetric { return m.CvssMetricV31 }, parseCVSS31},
	{"3.0", func(m NVDMetrics) []CVSSMetric { return m.CvssMetricV30 }, parseCVSS30},
	{"2.0", func(m NVDMetrics) []CVSSMetric { return m.CvssMetricV2 }, parseCVSS20},
}

// resolveScore 取最新版本中第一个有效的基础分数
func resolveScore(metrics NVDMetrics) *float64 {
	for _, accessor := range scoreChain {
		for _, block := range accessor.blocks(metrics) {
			if score, ok := blockScore(block.CvssData, accessor.parse); ok {
				return &score
			}
		}
	}
	return nil
}

// blockScore 优先使用baseScore，缺失时根据向量字符串计算
func blockScore(data CVSSData, parse func(string) (float64, error)) (float64, bool) {
	if data.BaseScore != nil {
		return validScore(*data.BaseScore)
	}
	if data.VectorString == "" {
		return 0, false
	}
	score, err := parse(data.VectorString)
	if err != nil {
		return 0, false
	}
	return validScore(score)
}

func validScore(score float64) (float64, bool) {
	if score < 0 || score > 10 {
		return 0, false
	}
	return score, true
}

func parseCVSS31(vector string) (float64, error) {
	cvss, err := gocvss31.ParseVector(vector)
	if err != nil {
		return 0, err
	}
	return cvss.BaseScore(), nil
}

func parseCVSS30(vector string) (float64, error) {
	cvss, err := gocvss30.ParseVector(vector)
	if err != nil {
		return 0, err
	}
	return cvss.BaseScore(), nil
}

func parseCVSS20(vector string) (float64, error) {
	cvss, err := gocvss20.ParseVector(vector)
	if err != nil {
		return 0, err
	}
	return cvss.BaseScore(), nil
}

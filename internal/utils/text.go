package utils

import (
	"strconv"
	"time"
	"unicode/utf8"
)

// TruncateRunes 按字符（而非字节）截断，避免切断多字节UTF-8字符
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

// NVD时间戳没有时区，其他来源可能带时区
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// ParseTimestamp 依次尝试常见的时间格式
func ParseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidYear 判断是否为四位数年份
func ValidYear(year int) bool {
	return year >= 1000 && year <= 9999
}

// ParseYear 解析四位数年份字符串
func ParseYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(s)
	if err != nil || !ValidYear(year) {
		return 0, false
	}
	return year, true
}

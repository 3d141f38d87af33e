package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 10))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "", TruncateRunes("abc", 0))

	// 多字节字符不会被截断成非法UTF-8
	assert.Equal(t, "漏洞", TruncateRunes("漏洞描述", 2))

	long := strings.Repeat("x", 1500)
	assert.Len(t, TruncateRunes(long, 1000), 1000)
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		year int
	}{
		{"2021-12-10T10:15:09.143", 2021},
		{"2019-05-01T00:00:00", 2019},
		{"2024-01-12T17:15:10Z", 2024},
		{"2023-03-04T05:06:07.123456+00:00", 2023},
		{"2020-02-02", 2020},
	}
	for _, tc := range cases {
		ts, ok := ParseTimestamp(tc.in)
		if assert.True(t, ok, tc.in) {
			assert.Equal(t, tc.year, ts.Year(), tc.in)
		}
	}

	_, ok := ParseTimestamp("not a date")
	assert.False(t, ok)
}

func TestParseYear(t *testing.T) {
	year, ok := ParseYear("2021")
	assert.True(t, ok)
	assert.Equal(t, 2021, year)

	_, ok = ParseYear("21")
	assert.False(t, ok)
	_, ok = ParseYear("20x1")
	assert.False(t, ok)
	_, ok = ParseYear("0999")
	assert.False(t, ok)
}

package cvedb

import "regexp"

// CWE编号到漏洞类别的映射
var weaknessClasses = map[string]string{
	"CWE-94":  "Code Injection",
	"CWE-77":  "Command Injection",
	"CWE-78":  "OS Command Injection",
	"CWE-79":  "XSS",
	"CWE-89":  "SQL Injection",
	"CWE-22":  "Path Traversal",
	"CWE-287": "Authentication Bypass",
	"CWE-306": "Missing Authentication",
	"CWE-502": "Deserialization",
	"CWE-917": "Expression Injection",
	"CWE-352": "CSRF",
	"CWE-200": "Information Disclosure",
	"CWE-639": "Insecure Direct Object Reference",
	"CWE-918": "SSRF",
	"CWE-611": "XXE",
	"CWE-434": "Unrestricted Upload",
	"CWE-416": "Use After Free",
	"CWE-119": "Buffer Overflow",
	"CWE-787": "Buffer Overflow",
	"CWE-125": "Out-of-bounds Read",
	"CWE-476": "NULL Pointer Dereference",
	"CWE-862": "Missing Authorization",
	"CWE-863": "Incorrect Authorization",
	"CWE-269": "Privilege Escalation",
	"CWE-601": "Open Redirect",
	"CWE-798": "Hard-coded Credentials",
	"CWE-400": "Resource Exhaustion",
	"CWE-20":  "Improper Input Validation",
}

// NVD-CWE-Other / NVD-CWE-noinfo 不含编号，不算有效引用
var cweTokenPattern = regexp.MustCompile(`CWE-\d+`)

// classifyWeakness 取第一个带CWE编号的引用；未收录的编号直接使用原文
func classifyWeakness(weaknesses []NVDWeakness) *string {
	for _, weakness := range weaknesses {
		for _, desc := range weakness.Description {
			token := cweTokenPattern.FindString(desc.Value)
			if token == "" {
				continue
			}
			if class, ok := weaknessClasses[token]; ok {
				return &class
			}
			raw := desc.Value
			return &raw
		}
	}
	return nil
}

package cvedb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CveDash/internal/model"
	"CveDash/internal/utils"

	"github.com/patrickmn/go-cache"
)

const DefaultShodanURL = "https://cvedb.shodan.io"

// ShodanCVE Shodan CVEDB返回的记录
type ShodanCVE struct {
	CVEID         string   `json:"cve_id"`
	Summary       string   `json:"summary"`
	CVSS          *float64 `json:"cvss"`
	CVSSVersion   *float64 `json:"cvss_version"`
	EPSS          *float64 `json:"epss"`
	RankingEPSS   *float64 `json:"ranking_epss"`
	KEV           bool     `json:"kev"`
	ProposeAction string   `json:"propose_action"`
	References    []string `json:"references"`
	PublishedTime string   `json:"published_time"`
	CPEs          []string `json:"cpes"`
}

// ShodanClient 直接转发Shodan CVEDB，结果短暂缓存
type ShodanClient struct {
	baseURL    string
	logger     *utils.Logger
	httpClient *http.Client
	cache      *cache.Cache
}

// NewShodanClient cacheTTL<=0 时不缓存
func NewShodanClient(baseURL string, timeout, cacheTTL time.Duration) *ShodanClient {
	if baseURL == "" {
		baseURL = DefaultShodanURL
	}
	client := &ShodanClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     utils.NewLogger("shodan-client"),
		httpClient: newHTTPClient(timeout),
	}
	if cacheTTL > 0 {
		client.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return client
}

func (s *ShodanClient) List(ctx context.Context) ([]model.CVE, error) {
	if cached, ok := s.cached("list"); ok {
		return cached.([]model.CVE), nil
	}

	var raw json.RawMessage
	if err := getJSON(ctx, s.httpClient, s.baseURL+"/cves", nil, &raw); err != nil {
		return nil, err
	}

	items, err := decodeShodanList(raw)
	if err != nil {
		return nil, err
	}

	cves := make([]model.CVE, 0, len(items))
	for _, item := range items {
		cves = append(cves, TransformShodanCVE(item))
	}

	s.logger.Debug("Shodan返回 %d 条记录", len(cves))
	s.store("list", cves)
	return cves, nil
}

func (s *ShodanClient) Get(ctx context.Context, id string) (model.CVE, error) {
	key := "cve:" + id
	if cached, ok := s.cached(key); ok {
		return cached.(model.CVE), nil
	}

	var item ShodanCVE
	err := getJSON(ctx, s.httpClient, s.baseURL+"/cve/"+url.PathEscape(id), nil, &item)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			return model.CVE{}, ErrNotFound
		}
		return model.CVE{}, err
	}

	cve := TransformShodanCVE(item)
	s.store(key, cve)
	return cve, nil
}

func (s *ShodanClient) cached(key string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *ShodanClient) store(key string, value interface{}) {
	if s.cache == nil {
		return
	}
	s.cache.Set(key, value, cache.DefaultExpiration)
}

// /cves 可能返回数组，也可能返回 {"cves": [...]}
func decodeShodanList(raw json.RawMessage) ([]ShodanCVE, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []ShodanCVE
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("解析JSON失败: %w", err)
		}
		return items, nil
	}

	var wrapped struct {
		CVEs []ShodanCVE `json:"cves"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	return wrapped.CVEs, nil
}

// TransformShodanCVE 转换为统一记录。Shodan不提供漏洞类别和利用代码
func TransformShodanCVE(item ShodanCVE) model.CVE {
	summary := item.Summary
	if summary == "" {
		summary = NoDescription
	}

	var cvss *float64
	if item.CVSS != nil {
		if score, ok := validScore(*item.CVSS); ok {
			cvss = &score
		}
	}

	var epss *float64
	if item.EPSS != nil && *item.EPSS >= 0 && *item.EPSS <= 1 {
		epss = model.Float64(*item.EPSS)
	}

	software, truncated := softwareFromCPEs(item.CPEs, MaxAffectedSoftware)

	var year int
	if t, ok := utils.ParseTimestamp(item.PublishedTime); ok && utils.ValidYear(t.Year()) {
		year = t.Year()
	} else {
		year = resolveYear(item.CVEID)
	}

	return model.CVE{
		ID:                        item.CVEID,
		Description:               utils.TruncateRunes(summary, MaxDescriptionLength),
		CVSS:                      cvss,
		EPSS:                      epss,
		InKEV:                     item.KEV,
		VulnerabilityClass:        nil,
		AffectedSoftware:          software,
		AffectedSoftwareTruncated: truncated,
		Year:                      year,
		Exploits:                  []model.Exploit{},
	}
}

package cvedb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"CveDash/internal/utils"

	"golang.org/x/time/rate"
)

const (
	DefaultNVDURL        = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultPageSize      = 100
	DefaultMaxRecords    = 500
	DefaultRequestPacing = time.Second
)

// CVEAPIClient 用于从NVD API获取CVE数据的客户端
type CVEAPIClient struct {
	baseURL    string
	apiKey     string
	pageSize   int
	maxRecords int
	logger     *utils.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NVDOptions NVD客户端参数，零值使用默认值
type NVDOptions struct {
	BaseURL         string
	APIKey          string
	PageSize        int
	MaxRecords      int
	RequestInterval time.Duration
	Timeout         time.Duration
}

// NewCVEAPIClient 创建新的CVE API客户端
func NewCVEAPIClient(opts NVDOptions) *CVEAPIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultNVDURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}

	// 请求间隔为0时不限速
	limit := rate.Inf
	if opts.RequestInterval > 0 {
		limit = rate.Every(opts.RequestInterval)
	}

	return &CVEAPIClient{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		pageSize:   opts.PageSize,
		maxRecords: opts.MaxRecords,
		logger:     utils.NewLogger("nvd-client"),
		httpClient: newHTTPClient(opts.Timeout),
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// NVD API响应结构
type NVDResponse struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Vulnerabilities []NVDVulnerability `json:"vulnerabilities"`
}

// NVD漏洞数据结构
type NVDVulnerability struct {
	CVE NVDCVE `json:"cve"`
}

type NVDCVE struct {
	ID               string             `json:"id"`
	SourceIdentifier string             `json:"sourceIdentifier,omitempty"`
	Published        string             `json:"published"`
	LastModified     string             `json:"lastModified"`
	VulnStatus       string             `json:"vulnStatus,omitempty"`
	Descriptions     []NVDDescription   `json:"descriptions"`
	Metrics          NVDMetrics         `json:"metrics"`
	Weaknesses       []NVDWeakness      `json:"weaknesses,omitempty"`
	Configurations   []NVDConfiguration `json:"configurations,omitempty"`
	References       []NVDReference     `json:"references,omitempty"`
}

type NVDDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type NVDMetrics struct {
	CvssMetricV31 []CVSSMetric `json:"cvssMetricV31,omitempty"`
	CvssMetricV30 []CVSSMetric `json:"cvssMetricV30,omitempty"`
	CvssMetricV2  []CVSSMetric `json:"cvssMetricV2,omitempty"`
}

type CVSSMetric struct {
	Source   string   `json:"source,omitempty"`
	Type     string   `json:"type,omitempty"`
	CvssData CVSSData `json:"cvssData"`
	// v2的严重等级在cvssData外层
	BaseSeverity string `json:"baseSeverity,omitempty"`
}

type CVSSData struct {
	Version      string   `json:"version,omitempty"`
	VectorString string   `json:"vectorString,omitempty"`
	BaseScore    *float64 `json:"baseScore,omitempty"`
	BaseSeverity string   `json:"baseSeverity,omitempty"`
}

type NVDWeakness struct {
	Source      string           `json:"source,omitempty"`
	Type        string           `json:"type,omitempty"`
	Description []NVDDescription `json:"description"`
}

type NVDConfiguration struct {
	Nodes []NVDNode `json:"nodes"`
}

type NVDNode struct {
	Operator string        `json:"operator,omitempty"`
	CpeMatch []NVDCPEMatch `json:"cpeMatch"`
}

type NVDCPEMatch struct {
	Vulnerable      bool   `json:"vulnerable"`
	Criteria        string `json:"criteria"`
	MatchCriteriaID string `json:"matchCriteriaId,omitempty"`
}

type NVDReference struct {
	URL string `json:"url"`
}

// FetchResult 分页抓取的结果。Err不为nil时Vulnerabilities为出错前已获取的部分
type FetchResult struct {
	Vulnerabilities []NVDVulnerability
	TotalResults    int
	Pages           int
	Err             error
}

// Partial 是否因分页失败只拿到部分数据
func (r FetchResult) Partial() bool {
	return r.Err != nil
}

// FetchRecent 分页获取NVD数据，直到覆盖totalResults或达到maxRecords上限。
// 任一分页失败即停止，已获取的分页照常返回；不做重试。
func (client *CVEAPIClient) FetchRecent(ctx context.Context) FetchResult {
	var result FetchResult
	startIndex := 0
	limit := client.maxRecords

	for {
		if err := client.limiter.Wait(ctx); err != nil {
			result.Err = fmt.Errorf("等待请求配额失败: %w", err)
			break
		}

		page, err := client.fetchPage(ctx, startIndex, client.pageSize)
		if err != nil {
			result.Err = fmt.Errorf("获取NVD分页失败 (startIndex=%d): %w", startIndex, err)
			client.logger.Warn("%v, 保留已获取的 %d 条记录", result.Err, len(result.Vulnerabilities))
			break
		}

		result.Pages++
		if result.Pages == 1 {
			result.TotalResults = page.TotalResults
			client.logger.Info("NVD中CVE总数: %d", page.TotalResults)
			if page.TotalResults < limit {
				limit = page.TotalResults
			}
		}

		result.Vulnerabilities = append(result.Vulnerabilities, page.Vulnerabilities...)
		client.logger.Info("已获取 %d/%d", len(result.Vulnerabilities), limit)

		if len(page.Vulnerabilities) == 0 || len(result.Vulnerabilities) >= limit {
			break
		}
		startIndex += len(page.Vulnerabilities)
	}

	if len(result.Vulnerabilities) > client.maxRecords {
		result.Vulnerabilities = result.Vulnerabilities[:client.maxRecords]
	}
	return result
}

func (client *CVEAPIClient) fetchPage(ctx context.Context, startIndex, resultsPerPage int) (*NVDResponse, error) {
	query := url.Values{}
	query.Set("startIndex", strconv.Itoa(startIndex))
	query.Set("resultsPerPage", strconv.Itoa(resultsPerPage))
	pageURL := client.baseURL + "?" + query.Encode()

	client.logger.Debug("请求URL: %s", pageURL)

	header := http.Header{}
	if client.apiKey != "" {
		header.Set("apiKey", client.apiKey)
	}

	var page NVDResponse
	if err := getJSON(ctx, client.httpClient, pageURL, header, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

package cvedb

import (
	"context"
	"net/http"
	"time"

	"CveDash/internal/utils"
)

const DefaultKEVURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

// KEVCatalog CISA已知被利用漏洞目录
type KEVCatalog struct {
	Title           string     `json:"title"`
	CatalogVersion  string     `json:"catalogVersion"`
	DateReleased    string     `json:"dateReleased"`
	Count           int        `json:"count"`
	Vulnerabilities []KEVEntry `json:"vulnerabilities"`
}

// KEVEntry 目录中的一条记录，其余字段不需要
type KEVEntry struct {
	CVEID                      string `json:"cveID"`
	VendorProject              string `json:"vendorProject,omitempty"`
	Product                    string `json:"product,omitempty"`
	ShortDescription           string `json:"shortDescription,omitempty"`
	KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse,omitempty"`
}

type KEVClient struct {
	url        string
	logger     *utils.Logger
	httpClient *http.Client
}

func NewKEVClient(url string, timeout time.Duration) *KEVClient {
	if url == "" {
		url = DefaultKEVURL
	}
	return &KEVClient{
		url:        url,
		logger:     utils.NewLogger("kev-client"),
		httpClient: newHTTPClient(timeout),
	}
}

// FetchCatalog 下载并解析KEV目录
func (c *KEVClient) FetchCatalog(ctx context.Context) (*KEVCatalog, error) {
	c.logger.Info("获取CISA KEV目录...")

	var catalog KEVCatalog
	if err := getJSON(ctx, c.httpClient, c.url, nil, &catalog); err != nil {
		return nil, err
	}

	c.logger.Debug("KEV目录版本 %s, count=%d", catalog.CatalogVersion, catalog.Count)
	return &catalog, nil
}

// KEVIndex CVE编号集合，构建后只读
type KEVIndex struct {
	ids map[string]struct{}
}

// NewKEVIndex 由目录构建成员集合。catalog为nil或缺少列表时得到空集合
func NewKEVIndex(catalog *KEVCatalog) KEVIndex {
	index := KEVIndex{ids: make(map[string]struct{})}
	if catalog == nil {
		return index
	}
	for _, entry := range catalog.Vulnerabilities {
		if entry.CVEID == "" {
			continue
		}
		index.ids[entry.CVEID] = struct{}{}
	}
	return index
}

func (idx KEVIndex) Contains(cveID string) bool {
	_, ok := idx.ids[cveID]
	return ok
}

func (idx KEVIndex) Len() int {
	return len(idx.ids)
}

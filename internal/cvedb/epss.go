package cvedb

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"CveDash/internal/model"
	"CveDash/internal/utils"
)

const DefaultEPSSURL = "https://epss.cyentia.com/epss_scores-current.csv.gz"

// EPSSClient 下载EPSS每日评分文件
type EPSSClient struct {
	url        string
	logger     *utils.Logger
	httpClient *http.Client
}

func NewEPSSClient(url string, timeout time.Duration) *EPSSClient {
	if url == "" {
		url = DefaultEPSSURL
	}
	return &EPSSClient{
		url:        url,
		logger:     utils.NewLogger("epss-client"),
		httpClient: newHTTPClient(timeout),
	}
}

// FetchScores 下载评分文件，只保留wanted中的编号；wanted为nil时全部保留
func (c *EPSSClient) FetchScores(ctx context.Context, wanted map[string]struct{}) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{URL: c.url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var reader io.Reader = resp.Body
	if strings.HasSuffix(req.URL.Path, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("解压EPSS文件失败: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	scores, err := parseEPSSScores(reader, wanted)
	if err != nil {
		return nil, err
	}
	c.logger.Info("获取到 %d 条EPSS评分", len(scores))
	return scores, nil
}

// parseEPSSScores 解析 cve,epss,percentile 格式，#开头的行为注释
func parseEPSSScores(r io.Reader, wanted map[string]struct{}) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 3

	// 跳过表头
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return map[string]float64{}, nil
		}
		return nil, fmt.Errorf("读取EPSS表头失败: %w", err)
	}

	scores := make(map[string]float64)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取EPSS记录失败: %w", err)
		}

		cveID := rec[0]
		if wanted != nil {
			if _, ok := wanted[cveID]; !ok {
				continue
			}
		}

		score, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("解析EPSS分数失败 %s: %w", cveID, err)
		}
		if score < 0 || score > 1 {
			continue
		}
		scores[cveID] = score
	}
	return scores, nil
}

// ApplyEPSS 填充EPSS分数，返回被填充的记录数
func ApplyEPSS(records []model.CVE, scores map[string]float64) int {
	applied := 0
	for i := range records {
		if score, ok := scores[records[i].ID]; ok {
			records[i].EPSS = model.Float64(score)
			applied++
		}
	}
	return applied
}

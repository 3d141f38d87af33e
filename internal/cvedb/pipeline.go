package cvedb

import (
	"context"
	"fmt"
	"time"

	"CveDash/internal/model"
	"CveDash/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// PipelineOptions 抓取任务参数
type PipelineOptions struct {
	OutputPath string
	Limit      int
	// KEV目录获取失败时是否终止运行
	KEVRequired bool
	// 结果为空时是否仍覆盖输出文件
	AllowEmpty bool
	// 写入运行历史时记录的数据来源
	SourceName string
}

// Pipeline 抓取 -> KEV索引 -> 规范化 -> 排序截取 -> 写文件
type Pipeline struct {
	nvd    *CVEAPIClient
	kev    *KEVClient
	epss   *EPSSClient
	db     *CVEDatabase
	opts   PipelineOptions
	logger *utils.Logger
	now    func() time.Time
}

// NewPipeline epss和db可以为nil，表示不启用
func NewPipeline(nvd *CVEAPIClient, kev *KEVClient, epss *EPSSClient, db *CVEDatabase, opts PipelineOptions) *Pipeline {
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultOutputLimit
	}
	if opts.SourceName == "" {
		opts.SourceName = "NVD API 2.0 + CISA KEV"
	}
	return &Pipeline{
		nvd:    nvd,
		kev:    kev,
		epss:   epss,
		db:     db,
		opts:   opts,
		logger: utils.NewLogger("pipeline"),
		now:    time.Now,
	}
}

// Run 执行一次完整的抓取任务。
// 数据源失败只记为警告；只有写输出文件失败（或要求KEV时KEV失败）才返回错误，此时原输出文件不变。
func (p *Pipeline) Run(ctx context.Context) (*model.RunReport, error) {
	started := p.now()
	report := &model.RunReport{
		RunID:      uuid.NewString(),
		StartedAt:  started,
		OutputPath: p.opts.OutputPath,
	}
	var warnings error

	// KEV目录
	catalog, err := p.kev.FetchCatalog(ctx)
	if err != nil {
		if p.opts.KEVRequired {
			return report, fmt.Errorf("获取KEV目录失败: %w", err)
		}
		p.logger.Warn("获取KEV目录失败，使用空集合: %v", err)
		warnings = multierr.Append(warnings, fmt.Errorf("kev: %w", err))
	}
	index := NewKEVIndex(catalog)
	report.KEVCount = index.Len()
	p.logger.Info("KEV目录中共有 %d 个CVE", index.Len())

	// NVD分页
	result := p.nvd.FetchRecent(ctx)
	report.NVDTotal = result.TotalResults
	report.Fetched = len(result.Vulnerabilities)
	report.Pages = result.Pages
	report.Partial = result.Partial()
	if result.Err != nil {
		warnings = multierr.Append(warnings, fmt.Errorf("nvd: %w", result.Err))
	}
	p.logger.Info("从NVD获取 %d 个CVE (%d 页)", report.Fetched, report.Pages)

	// 规范化
	records := make([]model.CVE, 0, len(result.Vulnerabilities))
	for _, vuln := range result.Vulnerabilities {
		if vuln.CVE.ID == "" {
			report.Dropped++
			continue
		}
		records = append(records, Normalize(vuln, index.Contains(vuln.CVE.ID)))
	}

	// EPSS（可选）
	if p.epss != nil && len(records) > 0 {
		wanted := make(map[string]struct{}, len(records))
		for _, record := range records {
			wanted[record.ID] = struct{}{}
		}
		scores, err := p.epss.FetchScores(ctx, wanted)
		if err != nil {
			p.logger.Warn("获取EPSS评分失败: %v", err)
			warnings = multierr.Append(warnings, fmt.Errorf("epss: %w", err))
		} else {
			ApplyEPSS(records, scores)
		}
	}

	// 去重、排序、截取
	unique, duplicates := DedupeByID(records)
	report.Duplicates = duplicates
	final := Rank(unique, p.opts.Limit)
	summarize(report, final)

	if len(final) == 0 && !p.opts.AllowEmpty {
		report.Skipped = true
		p.logger.Warn("没有获取到任何记录，保留原输出文件 %s", p.opts.OutputPath)
		warnings = multierr.Append(warnings, ErrEmptyResult)
	}
	report.Warnings = warningStrings(warnings)
	report.Duration = p.now().Sub(started)
	if report.Skipped {
		return report, nil
	}

	if err := WriteArtifact(p.opts.OutputPath, final); err != nil {
		return report, fmt.Errorf("写入输出文件失败: %w", err)
	}
	report.Written = len(final)
	p.logger.Info("数据已写入 %s", p.opts.OutputPath)

	if p.db != nil {
		meta := SnapshotMeta{
			RunID:    report.RunID,
			Source:   p.opts.SourceName,
			KEVCount: report.KEVCount,
			Partial:  report.Partial,
		}
		if err := p.db.ReplaceSnapshot(ctx, meta, final); err != nil {
			p.logger.Warn("写入数据库失败: %v", err)
			report.Warnings = append(report.Warnings, fmt.Sprintf("db: %v", err))
		}
	}

	return report, nil
}

func summarize(report *model.RunReport, records []model.CVE) {
	for _, record := range records {
		if record.InKEV {
			report.InKEV++
		}
		if record.Score() >= 9.0 {
			report.Critical++
		}
		if record.EPSS != nil {
			report.WithEPSS++
		}
		if record.AffectedSoftwareTruncated {
			report.Truncated++
		}
	}
}

func warningStrings(err error) []string {
	var out []string
	for _, e := range multierr.Errors(err) {
		out = append(out, e.Error())
	}
	return out
}

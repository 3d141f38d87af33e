package main

import (
	"fmt"
	"strings"

	"CveDash/internal/config"
	"CveDash/internal/cvedb"
	"CveDash/internal/model"
	"CveDash/internal/search"
	"CveDash/pkg/cli"

	"github.com/spf13/cobra"
)

type listOptions struct {
	source     string
	input      string
	product    string
	format     string
	outputFile string
	limit      int
	filters    search.Filters
}

func newListCmd(a *app) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list [关键字]",
		Short: "搜索和筛选CVE记录",
		Example: `  cvedash list log4j
  cvedash list --kev --min-year 2024 --format csv
  cvedash list --source sqlite --db data/cves.db --product confluence`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd, opts, strings.Join(args, " "))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.source, "source", config.SourceStatic, "数据源 (static, seed, sqlite, shodan)")
	flags.StringVarP(&opts.input, "input", "i", "", "JSON文件路径 (默认使用 output.path)")
	flags.StringVar(&opts.product, "product", "", "按受影响产品查询 (仅 sqlite)")
	flags.StringVarP(&opts.format, "format", "f", "text", "输出格式 (text, json, csv)")
	flags.StringVar(&opts.outputFile, "out-file", "", "写入文件而不是标准输出")
	flags.IntVarP(&opts.limit, "limit", "n", 0, "最多显示的记录数")
	flags.BoolVar(&opts.filters.InKEV, "kev", false, "只显示在KEV目录中的CVE")
	flags.BoolVar(&opts.filters.HasExploit, "has-exploit", false, "只显示有公开利用代码的CVE")
	flags.IntVar(&opts.filters.MinYear, "min-year", 0, "最早年份")
	flags.BoolVar(&opts.filters.CriticalOnly, "critical", false, "只显示严重漏洞 (CVSS >= 9.0 或 EPSS >= 0.5)")

	return cmd
}

func (a *app) runList(cmd *cobra.Command, opts *listOptions, query string) error {
	ctx := cmd.Context()

	if opts.product != "" && opts.source != config.SourceSQLite {
		return fmt.Errorf("--product 只能与 --source sqlite 一起使用")
	}

	source, closeSource, err := a.openSource(opts.source, opts.input)
	if err != nil {
		return err
	}
	defer closeSource()

	var cves []model.CVE
	if opts.product != "" {
		cves, err = source.(*cvedb.CVEDatabase).LookupByProduct(ctx, opts.product)
	} else {
		cves, err = source.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("读取CVE失败: %w", err)
	}

	total := len(cves)
	results := search.Apply(cves, query, opts.filters)
	if opts.limit > 0 && len(results) > opts.limit {
		results = results[:opts.limit]
	}
	a.logger.Debug("匹配 %d / %d 条记录", len(results), total)

	formatter := cli.NewOutputFormatter(opts.format)
	formatter.SetOutput(cmd.OutOrStdout())
	return formatter.PrintCVEs(results, total, opts.outputFile)
}

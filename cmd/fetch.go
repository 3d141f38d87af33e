package main

import (
	"CveDash/internal/cvedb"
	"CveDash/pkg/cli"

	"github.com/spf13/cobra"
)

func newFetchCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "从NVD和CISA KEV获取数据并生成看板JSON文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			nvd := cvedb.NewCVEAPIClient(cvedb.NVDOptions{
				BaseURL:         cfg.NVD.URL,
				APIKey:          cfg.NVD.APIKey,
				PageSize:        cfg.NVD.PageSize,
				MaxRecords:      cfg.NVD.MaxRecords,
				RequestInterval: cfg.NVD.RequestInterval,
				Timeout:         cfg.HTTP.Timeout,
			})
			kev := cvedb.NewKEVClient(cfg.KEV.URL, cfg.HTTP.Timeout)

			var epss *cvedb.EPSSClient
			if cfg.EPSS.Enabled {
				epss = cvedb.NewEPSSClient(cfg.EPSS.URL, cfg.HTTP.Timeout)
			}

			var db *cvedb.CVEDatabase
			if cfg.DB.Path != "" {
				var err error
				db, err = a.openDatabase()
				if err != nil {
					// 数据库只是镜像，打不开不影响输出文件
					a.logger.Warn("打开数据库失败，跳过镜像: %v", err)
					db = nil
				} else {
					defer db.Close()
				}
			}

			if cfg.NVD.APIKey == "" {
				a.logger.Warn("未设置NVD API密钥，请求速率会受到限制")
			}

			pipeline := cvedb.NewPipeline(nvd, kev, epss, db, cvedb.PipelineOptions{
				OutputPath:  cfg.Output.Path,
				Limit:       cfg.Output.Limit,
				KEVRequired: cfg.KEV.Required,
				AllowEmpty:  cfg.Output.AllowEmpty,
			})

			report, err := pipeline.Run(cmd.Context())
			if err != nil {
				return err
			}

			formatter := cli.NewOutputFormatter(format)
			formatter.SetOutput(cmd.OutOrStdout())
			return formatter.PrintReport(report)
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "输出文件路径")
	flags.IntP("limit", "n", 0, "输出记录数上限")
	flags.Int("max-records", 0, "从NVD获取的记录数上限")
	flags.Bool("require-kev", false, "KEV目录获取失败时终止")
	flags.Bool("epss", false, "使用EPSS评分补充记录")
	flags.StringVar(&format, "format", "text", "统计输出格式 (text, json)")
	_ = a.v.BindPFlag("output.path", flags.Lookup("output"))
	_ = a.v.BindPFlag("output.limit", flags.Lookup("limit"))
	_ = a.v.BindPFlag("nvd.max_records", flags.Lookup("max-records"))
	_ = a.v.BindPFlag("kev.required", flags.Lookup("require-kev"))
	_ = a.v.BindPFlag("epss.enabled", flags.Lookup("epss"))

	return cmd
}

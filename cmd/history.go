package main

import (
	"fmt"

	"CveDash/pkg/cli"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看数据库中的抓取历史",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			history, err := db.GetUpdateHistory(ctx, limit)
			if err != nil {
				return fmt.Errorf("读取更新历史失败: %w", err)
			}

			count, err := db.GetCveCount(ctx)
			if err != nil {
				return fmt.Errorf("统计CVE数量失败: %w", err)
			}
			a.logger.Info("数据库中共有 %d 个CVE", count)

			formatter := cli.NewOutputFormatter(format)
			formatter.SetOutput(cmd.OutOrStdout())
			return formatter.PrintHistory(history)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "显示最近的记录数")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "输出格式 (text, json)")
	return cmd
}

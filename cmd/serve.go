package main

import (
	"errors"
	"net/http"

	"CveDash/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动看板API服务",
		Long: `提供 GET /api/cves 和 GET /api/cves/{id}。
数据源: static (抓取生成的JSON文件)、seed (内置示例数据)、sqlite (最近一次镜像)、shodan (转发 Shodan CVEDB)。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			source, closeSource, err := a.openSource(cfg.Server.Source, "")
			if err != nil {
				return err
			}
			defer closeSource()

			a.logger.Info("数据源: %s", cfg.Server.Source)
			srv := server.New(source, server.NewMetrics())
			if err := srv.ListenAndServe(cmd.Context(), cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "监听地址")
	flags.String("source", "", "数据源 (static, seed, sqlite, shodan)")
	_ = a.v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = a.v.BindPFlag("server.source", flags.Lookup("source"))

	return cmd
}

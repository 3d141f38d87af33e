package main

import (
	"fmt"

	"CveDash/internal/config"
	"CveDash/internal/cvedb"
	"CveDash/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app 各子命令共享的配置
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *utils.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{
		v:      config.NewViper(),
		logger: utils.NewLogger("main"),
	}

	rootCmd := &cobra.Command{
		Use:   "cvedash",
		Short: "CVE 漏洞看板数据工具",
		Long: `cvedash 从 NVD 和 CISA KEV 获取最新漏洞数据，生成看板使用的 JSON 文件，
并提供只读的看板 API 服务。`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			utils.ConfigureLogging(cfg.Verbose, cfg.Log.Format)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "配置文件 (默认查找 ./config.yaml)")
	flags.BoolP("verbose", "v", false, "输出调试日志")
	flags.String("db", "", "sqlite数据库路径，为空时不使用数据库")
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("db.path", flags.Lookup("db"))

	rootCmd.AddCommand(
		newFetchCmd(a),
		newServeCmd(a),
		newListCmd(a),
		newHistoryCmd(a),
	)
	return rootCmd
}

// openSource 按名称打开数据源，返回的close函数总是非nil
func (a *app) openSource(name, artifactPath string) (cvedb.Source, func(), error) {
	noop := func() {}

	switch name {
	case config.SourceStatic:
		if artifactPath == "" {
			artifactPath = a.cfg.Output.Path
		}
		return cvedb.NewArtifactSource(artifactPath), noop, nil
	case config.SourceSeed:
		return cvedb.NewMemStore(cvedb.SeedCVEs()), noop, nil
	case config.SourceShodan:
		return cvedb.NewShodanClient(a.cfg.Shodan.URL, a.cfg.HTTP.Timeout, a.cfg.Shodan.CacheTTL), noop, nil
	case config.SourceSQLite:
		db, err := a.openDatabase()
		if err != nil {
			return nil, noop, err
		}
		return db, func() { db.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("未知的数据源: %q", name)
	}
}

func (a *app) openDatabase() (*cvedb.CVEDatabase, error) {
	if a.cfg.DB.Path == "" {
		return nil, fmt.Errorf("未设置数据库路径 (--db 或 db.path)")
	}
	return cvedb.NewCVEDatabase(a.cfg.DB.Path)
}

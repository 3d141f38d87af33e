package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "CVEDASH"

// 看板数据源
const (
	SourceStatic = "static"
	SourceSeed   = "seed"
	SourceSQLite = "sqlite"
	SourceShodan = "shodan"
)

type Config struct {
	NVD     NVDConfig    `mapstructure:"nvd"`
	KEV     KEVConfig    `mapstructure:"kev"`
	EPSS    EPSSConfig   `mapstructure:"epss"`
	HTTP    HTTPConfig   `mapstructure:"http"`
	Output  OutputConfig `mapstructure:"output"`
	DB      DBConfig     `mapstructure:"db"`
	Server  ServerConfig `mapstructure:"server"`
	Shodan  ShodanConfig `mapstructure:"shodan"`
	Log     LogConfig    `mapstructure:"log"`
	Verbose bool         `mapstructure:"verbose"`
}

type NVDConfig struct {
	URL             string        `mapstructure:"url"`
	APIKey          string        `mapstructure:"api_key"`
	PageSize        int           `mapstructure:"page_size"`
	MaxRecords      int           `mapstructure:"max_records"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
}

type KEVConfig struct {
	URL      string `mapstructure:"url"`
	Required bool   `mapstructure:"required"`
}

type EPSSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type OutputConfig struct {
	Path       string `mapstructure:"path"`
	Limit      int    `mapstructure:"limit"`
	AllowEmpty bool   `mapstructure:"allow_empty"`
}

// DBConfig Path为空表示不写sqlite
type DBConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	Source string `mapstructure:"source"`
}

type ShodanConfig struct {
	URL      string        `mapstructure:"url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
}

// NewViper 返回设置好默认值和环境变量映射的viper实例
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("nvd.url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	v.SetDefault("nvd.api_key", "")
	v.SetDefault("nvd.page_size", 100)
	v.SetDefault("nvd.max_records", 500)
	v.SetDefault("nvd.request_interval", time.Second)

	v.SetDefault("kev.url", "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json")
	v.SetDefault("kev.required", false)

	v.SetDefault("epss.enabled", false)
	v.SetDefault("epss.url", "https://epss.cyentia.com/epss_scores-current.csv.gz")

	v.SetDefault("http.timeout", 30*time.Second)

	v.SetDefault("output.path", "public/api/cves.json")
	v.SetDefault("output.limit", 500)
	v.SetDefault("output.allow_empty", false)

	v.SetDefault("db.path", "")

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.source", SourceStatic)

	v.SetDefault("shodan.url", "https://cvedb.shodan.io")
	v.SetDefault("shodan.cache_ttl", 5*time.Minute)

	v.SetDefault("log.format", "text")
	v.SetDefault("verbose", false)
}

// Load 读取 .env、配置文件和环境变量。cfgFile为空时在当前目录查找 config.yaml，找不到不算错误
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	// NVD_API_KEY 与原有脚本保持兼容
	if os.Getenv(EnvPrefix+"_NVD_API_KEY") == "" && os.Getenv("NVD_API_KEY") != "" {
		v.SetDefault("nvd.api_key", os.Getenv("NVD_API_KEY"))
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.NVD.URL == "" {
		return errors.New("nvd.url 不能为空")
	}
	if c.KEV.URL == "" {
		return errors.New("kev.url 不能为空")
	}
	if c.NVD.PageSize <= 0 || c.NVD.PageSize > 2000 {
		return fmt.Errorf("nvd.page_size 必须在 1-2000 之间: %d", c.NVD.PageSize)
	}
	if c.NVD.MaxRecords <= 0 {
		return fmt.Errorf("nvd.max_records 必须为正数: %d", c.NVD.MaxRecords)
	}
	if c.NVD.RequestInterval < 0 {
		return fmt.Errorf("nvd.request_interval 不能为负: %s", c.NVD.RequestInterval)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout 必须为正数: %s", c.HTTP.Timeout)
	}
	if c.Output.Path == "" {
		return errors.New("output.path 不能为空")
	}
	if c.Output.Limit <= 0 {
		return fmt.Errorf("output.limit 必须为正数: %d", c.Output.Limit)
	}
	switch c.Server.Source {
	case SourceStatic, SourceSeed, SourceShodan:
	case SourceSQLite:
		if c.DB.Path == "" {
			return errors.New("server.source=sqlite 需要设置 db.path")
		}
	default:
		return fmt.Errorf("未知的 server.source: %q", c.Server.Source)
	}
	return nil
}

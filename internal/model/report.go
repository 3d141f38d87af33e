package model

import "time"

// RunReport 一次抓取任务的统计信息
type RunReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	OutputPath string        `json:"output_path"`
	KEVCount   int           `json:"kev_count"`
	NVDTotal   int           `json:"nvd_total"`
	Fetched    int           `json:"fetched"`
	Pages      int           `json:"pages"`
	Partial    bool          `json:"partial"`
	Duplicates int           `json:"duplicates"`
	Dropped    int           `json:"dropped"`
	Written    int           `json:"written"`
	InKEV      int           `json:"in_kev"`
	Critical   int           `json:"critical"`
	WithEPSS   int           `json:"with_epss"`
	Truncated  int           `json:"truncated_software"`
	Skipped    bool          `json:"skipped"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// UpdateHistory 数据库中记录的历史运行
type UpdateHistory struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	LastUpdate time.Time `json:"last_update"`
	Source     string    `json:"source"`
	Records    int       `json:"records_added"`
	KEVCount   int       `json:"kev_count"`
	Partial    bool      `json:"partial"`
}

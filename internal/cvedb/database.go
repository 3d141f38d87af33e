package cvedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"CveDash/internal/model"
	"CveDash/internal/utils"

	_ "github.com/mattn/go-sqlite3"
)

// CVEDatabase 保存最近一次输出快照以及运行历史
type CVEDatabase struct {
	db     *sql.DB
	path   string
	logger *utils.Logger
}

// SnapshotMeta 写入快照时记录的运行信息
type SnapshotMeta struct {
	RunID    string
	Source   string
	KEVCount int
	Partial  bool
}

func NewCVEDatabase(dbPath string) (*CVEDatabase, error) {
	logger := utils.NewLogger("cvedb")

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	cvedb := &CVEDatabase{
		db:     db,
		path:   dbPath,
		logger: logger,
	}

	// 初始化表
	if err := cvedb.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据表失败: %w", err)
	}

	return cvedb, nil
}

func (cd *CVEDatabase) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cves (
		cve_id TEXT PRIMARY KEY,
		rank INTEGER NOT NULL,
		description TEXT,
		cvss_score REAL,
		epss REAL,
		in_kev INTEGER NOT NULL DEFAULT 0,
		vulnerability_class TEXT,
		year INTEGER NOT NULL,
		document TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS affected_software (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cve_id TEXT NOT NULL,
		vendor TEXT,
		product TEXT,
		FOREIGN KEY (cve_id) REFERENCES cves(cve_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_product ON affected_software(product);
	CREATE INDEX IF NOT EXISTS idx_vendor ON affected_software(vendor);
	CREATE INDEX IF NOT EXISTS idx_cve_rank ON cves(rank);

	CREATE TABLE IF NOT EXISTS update_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		last_update TIMESTAMP NOT NULL,
		source TEXT,
		records_added INTEGER,
		kev_count INTEGER,
		partial INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := cd.db.Exec(schema)
	return err
}

// ReplaceSnapshot 在一个事务内用新的快照替换全部记录，并追加一条运行历史
func (cd *CVEDatabase) ReplaceSnapshot(ctx context.Context, meta SnapshotMeta, records []model.CVE) error {
	tx, err := cd.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM affected_software`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cves`); err != nil {
		return err
	}

	for rank, cve := range records {
		document, err := json.Marshal(cve)
		if err != nil {
			return fmt.Errorf("序列化 %s 失败: %w", cve.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cves
			(cve_id, rank, description, cvss_score, epss, in_kev, vulnerability_class, year, document)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cve.ID, rank, cve.Description, nullFloat(cve.CVSS), nullFloat(cve.EPSS),
			cve.InKEV, nullString(cve.VulnerabilityClass), cve.Year, string(document),
		)
		if err != nil {
			return fmt.Errorf("插入 %s 失败: %w", cve.ID, err)
		}

		// 插入受影响软件
		for _, software := range cve.AffectedSoftware {
			vendor, product, _ := strings.Cut(software, ":")
			_, err = tx.ExecContext(ctx, `
				INSERT INTO affected_software (cve_id, vendor, product)
				VALUES (?, ?, ?)`,
				cve.ID, vendor, product,
			)
			if err != nil {
				return err
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO update_history (run_id, last_update, source, records_added, kev_count, partial)
		VALUES (?, ?, ?, ?, ?, ?)`,
		meta.RunID, time.Now().UTC(), meta.Source, len(records), meta.KEVCount, meta.Partial,
	)
	if err != nil {
		return fmt.Errorf("记录更新历史失败: %w", err)
	}

	return tx.Commit()
}

// List 按快照中的排名返回全部记录
func (cd *CVEDatabase) List(ctx context.Context) ([]model.CVE, error) {
	rows, err := cd.db.QueryContext(ctx, `SELECT document FROM cves ORDER BY rank`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cves := []model.CVE{}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, err
		}
		var cve model.CVE
		if err := json.Unmarshal([]byte(document), &cve); err != nil {
			return nil, fmt.Errorf("解析记录失败: %w", err)
		}
		cves = append(cves, cve)
	}
	return cves, rows.Err()
}

// Get 按编号查询单条记录
func (cd *CVEDatabase) Get(ctx context.Context, id string) (model.CVE, error) {
	var document string
	err := cd.db.QueryRowContext(ctx, `SELECT document FROM cves WHERE cve_id = ?`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CVE{}, ErrNotFound
	}
	if err != nil {
		return model.CVE{}, err
	}

	var cve model.CVE
	if err := json.Unmarshal([]byte(document), &cve); err != nil {
		return model.CVE{}, fmt.Errorf("解析记录失败: %w", err)
	}
	return cve, nil
}

// LookupByProduct 查询影响某产品的记录，按排名排序
func (cd *CVEDatabase) LookupByProduct(ctx context.Context, product string) ([]model.CVE, error) {
	rows, err := cd.db.QueryContext(ctx, `
		SELECT DISTINCT c.document, c.rank
		FROM cves c
		JOIN affected_software a ON c.cve_id = a.cve_id
		WHERE LOWER(a.product) LIKE ?
		ORDER BY c.rank`,
		"%"+strings.ToLower(product)+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cves := []model.CVE{}
	for rows.Next() {
		var document string
		var rank int
		if err := rows.Scan(&document, &rank); err != nil {
			return nil, err
		}
		var cve model.CVE
		if err := json.Unmarshal([]byte(document), &cve); err != nil {
			return nil, fmt.Errorf("解析记录失败: %w", err)
		}
		cves = append(cves, cve)
	}
	return cves, rows.Err()
}

// GetCveCount 获取CVE总数
func (cd *CVEDatabase) GetCveCount(ctx context.Context) (int, error) {
	var count int
	err := cd.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cves").Scan(&count)
	return count, err
}

// GetUpdateHistory 获取最近的更新历史
func (cd *CVEDatabase) GetUpdateHistory(ctx context.Context, limit int) ([]model.UpdateHistory, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := cd.db.QueryContext(ctx, `
		SELECT id, run_id, last_update, source, records_added, kev_count, partial
		FROM update_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []model.UpdateHistory
	for rows.Next() {
		var h model.UpdateHistory
		if err := rows.Scan(&h.ID, &h.RunID, &h.LastUpdate, &h.Source, &h.Records, &h.KEVCount, &h.Partial); err != nil {
			cd.logger.Debug("读取更新历史失败: %v", err)
			continue
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

func (cd *CVEDatabase) Close() error {
	return cd.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

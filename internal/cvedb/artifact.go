package cvedb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"CveDash/internal/model"
)

const DefaultOutputPath = "public/api/cves.json"

// WriteArtifact 将记录写入临时文件后重命名，读者不会看到写了一半的文件。
// 失败时原文件保持不变。
func WriteArtifact(path string, records []model.CVE) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if records == nil {
		records = []model.CVE{}
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("写入JSON失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("同步文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("替换输出文件失败: %w", err)
	}

	committed = true
	return nil
}

// ReadArtifact 读取输出文件
func ReadArtifact(path string) ([]model.CVE, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []model.CVE
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return records, nil
}

package cvedb

import (
	"context"
	"os"
	"sync"
	"time"

	"CveDash/internal/model"
	"CveDash/internal/utils"
)

// Source 看板读取CVE列表的数据源
type Source interface {
	List(ctx context.Context) ([]model.CVE, error)
	Get(ctx context.Context, id string) (model.CVE, error)
}

var (
	_ Source = (*MemStore)(nil)
	_ Source = (*ArtifactSource)(nil)
	_ Source = (*CVEDatabase)(nil)
	_ Source = (*ShodanClient)(nil)
)

// ArtifactSource 读取抓取任务生成的JSON文件，文件修改后自动重新加载
type ArtifactSource struct {
	path   string
	logger *utils.Logger

	mu      sync.RWMutex
	modTime time.Time
	cves    []model.CVE
}

func NewArtifactSource(path string) *ArtifactSource {
	return &ArtifactSource{
		path:   path,
		logger: utils.NewLogger("artifact"),
	}
}

func (a *ArtifactSource) List(ctx context.Context) ([]model.CVE, error) {
	cves, err := a.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.CVE, len(cves))
	copy(out, cves)
	return out, nil
}

func (a *ArtifactSource) Get(ctx context.Context, id string) (model.CVE, error) {
	cves, err := a.load()
	if err != nil {
		return model.CVE{}, err
	}
	for _, cve := range cves {
		if cve.ID == id {
			return cve, nil
		}
	}
	return model.CVE{}, ErrNotFound
}

func (a *ArtifactSource) load() ([]model.CVE, error) {
	info, err := os.Stat(a.path)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	if a.cves != nil && info.ModTime().Equal(a.modTime) {
		cves := a.cves
		a.mu.RUnlock()
		return cves, nil
	}
	a.mu.RUnlock()

	cves, err := ReadArtifact(a.path)
	if err != nil {
		return nil, err
	}
	if cves == nil {
		cves = []model.CVE{}
	}

	a.mu.Lock()
	a.cves = cves
	a.modTime = info.ModTime()
	a.mu.Unlock()

	a.logger.Info("加载 %s: %d 条记录", a.path, len(cves))
	return cves, nil
}

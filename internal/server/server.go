package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"CveDash/internal/cvedb"
	"CveDash/internal/search"
	"CveDash/internal/utils"

	"github.com/gorilla/mux"
)

// 错误响应体与前端约定保持一致
const (
	msgListFailed = "Failed to fetch CVEs"
	msgNotFound   = "CVE not found"
	msgInternal   = "Internal Server Error"
)

type Server struct {
	source  cvedb.Source
	metrics *Metrics
	router  *mux.Router
	logger  *utils.Logger
}

func New(source cvedb.Source, metrics *Metrics) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Server{
		source:  source,
		metrics: metrics,
		router:  mux.NewRouter(),
		logger:  utils.NewLogger("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.metrics.Middleware)
	s.router.HandleFunc("/api/cves", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/api/cves/{id}", s.handleGet).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe 阻塞直到ctx取消，然后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("看板服务监听 %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("正在关闭看板服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleList 返回完整列表。支持可选的 q、kev、exploit、minYear、critical 查询参数
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	cves, err := s.source.List(r.Context())
	if err != nil {
		s.writeSourceError(w, err, msgListFailed)
		return
	}

	query := r.URL.Query()
	filters := search.Filters{
		InKEV:        parseBool(query.Get("kev")),
		HasExploit:   parseBool(query.Get("exploit")),
		CriticalOnly: parseBool(query.Get("critical")),
	}
	if year, ok := utils.ParseYear(query.Get("minYear")); ok {
		filters.MinYear = year
	}
	if q := query.Get("q"); q != "" || filters != (search.Filters{}) {
		cves = search.Apply(cves, q, filters)
	}

	s.metrics.RecordsServed.Add(float64(len(cves)))
	writeJSON(w, http.StatusOK, cves)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cve, err := s.source.Get(r.Context(), id)
	if err != nil {
		s.writeSourceError(w, err, msgNotFound)
		return
	}

	s.metrics.RecordsServed.Inc()
	writeJSON(w, http.StatusOK, cve)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeSourceError 上游非2xx时透传状态码，找不到记录返回404，其余返回500
func (s *Server) writeSourceError(w http.ResponseWriter, err error, upstreamMessage string) {
	var upstream *cvedb.UpstreamError
	switch {
	case errors.Is(err, cvedb.ErrNotFound):
		s.metrics.SourceErrors.WithLabelValues("not_found").Inc()
		writeMessage(w, http.StatusNotFound, msgNotFound)
	case errors.As(err, &upstream):
		s.metrics.SourceErrors.WithLabelValues("upstream").Inc()
		s.logger.Warn("上游返回错误: %v", err)
		status := upstream.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeMessage(w, status, upstreamMessage)
	default:
		s.metrics.SourceErrors.WithLabelValues("internal").Inc()
		s.logger.Error("读取数据源失败: %v", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

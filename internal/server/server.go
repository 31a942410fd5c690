package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/service"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Server 仪表盘的 HTTP 入口
type Server struct {
	svc  *service.DashboardService
	hub  *Hub
	mux  *http.ServeMux
	topN int
}

// New 注册全部路由。数据集更新时会通过 WebSocket 通知所有客户端。
func New(svc *service.DashboardService, topN int) *Server {
	s := &Server{
		svc:  svc,
		hub:  NewHub(svc, topN),
		mux:  http.NewServeMux(),
		topN: topN,
	}
	svc.OnReplace(s.hub.BroadcastReload)

	s.mux.HandleFunc("/", s.index)
	s.mux.HandleFunc("/api/v1/options", s.options)
	s.mux.HandleFunc("/api/v1/repos", s.repos)
	s.mux.HandleFunc("/api/v1/overview", s.overview)
	s.mux.HandleFunc("/api/v1/rank", s.rank)
	s.mux.HandleFunc("/api/v1/rank/export.xlsx", s.exportXLSX)
	s.mux.HandleFunc("/api/v1/search", s.search)
	s.mux.Handle("/ws", s.hub)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub 返回 WebSocket 连接管理器
func (s *Server) Hub() *Hub {
	return s.hub
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] ⚠️ 写响应失败: %v", err)
	}
}

func jsonErr(w http.ResponseWriter, status int, msg string) {
	jsonResp(w, status, map[string]string{"error": msg})
}

// statusOf 把错误码映射为 HTTP 状态码
func statusOf(err error) int {
	switch common.CodeOf(err) {
	case common.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case common.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("[Server] ❌ %v", err)
	}
	jsonErr(w, status, err.Error())
}

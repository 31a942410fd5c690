package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"
	"oss-impact-radar/internal/service"
)

// OptionsResponse 页面控件的选项
type OptionsResponse struct {
	Categories []domain.CategoryPreset `json:"categories"`
	Presets    []domain.WeightPreset   `json:"presets"`
	Slider     SliderRange             `json:"slider"`
	TopN       int                     `json:"top_n"`
}

// SliderRange 滑块的取值范围
type SliderRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

type indexData struct {
	Categories []domain.CategoryPreset
	Presets    []domain.WeightPreset
	Default    domain.Weights
	Slider     SliderRange
	TopN       int
}

func sliderRange() SliderRange {
	return SliderRange{Min: domain.WeightMin, Max: domain.WeightMax, Step: domain.WeightStep}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	def, _ := domain.LookupWeightPreset(domain.DefaultWeightPreset)
	data := indexData{
		Categories: domain.CategoryPresets(),
		Presets:    domain.WeightPresets(),
		Default:    def.Weights,
		Slider:     sliderRange(),
		TopN:       s.topN,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		writeError(w, common.WrapError(common.ErrCodeInternal, "渲染页面失败", err))
	}
}

// options returns GET /api/v1/options
func (s *Server) options(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, OptionsResponse{
		Categories: domain.CategoryPresets(),
		Presets:    domain.WeightPresets(),
		Slider:     sliderRange(),
		TopN:       s.topN,
	})
}

// repos returns GET /api/v1/repos
func (s *Server) repos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, s.svc.Repos())
}

// overview returns GET /api/v1/overview
func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, s.svc.Overview())
}

// rank returns GET /api/v1/rank?category=&preset=&stars=&forks=&age=&top=
func (s *Server) rank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, err := s.rankFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// exportXLSX returns GET /api/v1/rank/export.xlsx，参数与 /api/v1/rank 相同
func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp, err := s.rankFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ranking.xlsx"`)
	if err := writeRankingWorkbook(w, resp); err != nil {
		log.Printf("[Server] ❌ 导出 Excel 失败: %v", err)
	}
}

// search returns GET /api/v1/search?q=
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	repos, err := s.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResp(w, http.StatusOK, repos)
}

func (s *Server) rankFromQuery(r *http.Request) (*service.RankResponse, error) {
	req, err := parseRankRequest(r)
	if err != nil {
		return nil, err
	}
	if req.Top == 0 {
		req.Top = s.topN
	}
	return s.svc.Rank(req)
}

// parseRankRequest 解析查询参数，空参数表示沿用默认值
func parseRankRequest(r *http.Request) (service.RankRequest, error) {
	q := r.URL.Query()
	req := service.RankRequest{
		Category: q.Get("category"),
		Preset:   q.Get("preset"),
	}

	weights := []struct {
		key string
		dst **float64
	}{
		{"stars", &req.Stars},
		{"forks", &req.Forks},
		{"age", &req.Age},
	}
	for _, wt := range weights {
		raw := strings.TrimSpace(q.Get(wt.key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, common.WrapError(common.ErrCodeInvalidInput, fmt.Sprintf("参数 %s 不是数字", wt.key), err)
		}
		*wt.dst = &v
	}

	if raw := strings.TrimSpace(q.Get("top")); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil {
			return req, common.WrapError(common.ErrCodeInvalidInput, "参数 top 不是整数", err)
		}
		req.Top = top
	}
	return req, nil
}

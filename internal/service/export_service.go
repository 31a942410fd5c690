package service

import (
	"context"
	"fmt"
	"log"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"
	"oss-impact-radar/internal/port"
)

// ExportService 抓取一页 GitHub 搜索结果，补全指标和分类后写成数据集
type ExportService struct {
	searcher    port.Searcher
	analyzer    port.Analyzer
	writer      port.DatasetWriter
	repoStore   port.Repository // 可以为 nil
	concurrency int
}

// NewExportService 创建导出服务，repoStore 为 nil 时只写 CSV
func NewExportService(
	searcher port.Searcher,
	analyzer port.Analyzer,
	writer port.DatasetWriter,
	repoStore port.Repository,
	concurrency int,
) *ExportService {
	return &ExportService{
		searcher:    searcher,
		analyzer:    analyzer,
		writer:      writer,
		repoStore:   repoStore,
		concurrency: concurrency,
	}
}

// Run 执行一次导出：搜索 -> 派生指标 -> LLM 分类 -> 写 CSV -> 存库
func (s *ExportService) Run(ctx context.Context, q port.SearchQuery, outPath string) ([]*domain.Repo, error) {
	if outPath == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "输出路径为空")
	}
	s.analyzer.SetMaxGoroutines(s.concurrency)

	// 1. 数据源
	fmt.Printf("📥 正在搜索 GitHub: %q (sort=%s, order=%s, per_page=%d)\n", q.Query, q.Sort, q.Order, q.PerPage)
	result, err := s.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	fmt.Printf("✅ 共匹配 %d 个项目，本页取回 %d 个\n", result.Total, len(result.Repos))

	// 2. 派生指标
	repos := s.analyzer.DeriveMetrics(result.Repos)
	fmt.Printf("📐 已计算 %d 个项目的年龄和日均增长\n", len(repos))

	// 3. 分类，失败的项目保持 Unknown，不影响导出
	repos, err = s.analyzer.CategorizeWithLLM(ctx, repos)
	if err != nil {
		log.Printf("⚠️ LLM分类出错: %v", err)
	}

	// 4. 写数据集
	if err := s.writer.Write(outPath, repos); err != nil {
		return nil, err
	}

	// 5. 可选：写入快照库
	if s.repoStore == nil {
		return repos, nil
	}

	fresh := 0
	for _, repo := range repos {
		exists, err := s.repoStore.Exists(ctx, repo.ID)
		if err != nil {
			log.Printf("❌ 检查项目 %s 是否存在时出错: %v", repo.Name, err)
			continue
		}
		if !exists {
			fresh++
		}
	}

	if err := s.repoStore.SaveAll(ctx, repos); err != nil {
		return repos, err
	}
	fmt.Printf("💾 已写入数据库 %d 个项目，其中新项目 %d 个\n", len(repos), fresh)
	return repos, nil
}

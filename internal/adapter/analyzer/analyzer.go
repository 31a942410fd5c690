package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"oss-impact-radar/internal/domain"
	"oss-impact-radar/internal/port"
)

// RepoAnalyzer 实现了 port.Analyzer 接口
type RepoAnalyzer struct {
	categorizer   port.Categorizer
	maxGoroutines int // 最大并发数
	nowFunc       func() time.Time
}

// NewRepoAnalyzer 创建新的分析器实例，categorizer 可以为 nil
func NewRepoAnalyzer(categorizer port.Categorizer) *RepoAnalyzer {
	return &RepoAnalyzer{
		categorizer:   categorizer,
		maxGoroutines: 3,        // 默认并发数为3
		nowFunc:       time.Now, // 便于测试注入当前时间
	}
}

// SetMaxGoroutines 设置最大并发数
func (a *RepoAnalyzer) SetMaxGoroutines(max int) {
	if max > 0 {
		a.maxGoroutines = max
	}
}

// DeriveMetrics 计算项目年龄(天)以及日均 star / fork
func (a *RepoAnalyzer) DeriveMetrics(repos []*domain.Repo) []*domain.Repo {
	current := time.Now()
	if a != nil && a.nowFunc != nil {
		current = a.nowFunc()
	}

	for _, repo := range repos {
		days := int(current.Sub(repo.CreatedAt).Hours() / 24)
		if days < 0 {
			days = 0
		}
		repo.DaysSinceCreated = days

		if days == 0 {
			repo.AvgDailyStars = 0
			repo.AvgDailyForks = 0
			continue
		}
		repo.AvgDailyStars = float64(repo.Stars) / float64(days)
		repo.AvgDailyForks = float64(repo.Forks) / float64(days)
	}
	return repos
}

// categorizeWorker 工作协程，处理单个 repo 的分类
func (a *RepoAnalyzer) categorizeWorker(
	ctx context.Context,
	jobs <-chan *domain.Repo,
	errs chan<- error,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for repo := range jobs {
		// 每个项目最多等 30 秒
		repoCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		category, err := a.categorizer.Categorize(repoCtx, repo)
		cancel()

		if err != nil {
			fmt.Printf("   [Worker-%d] ❌ %s 分类失败: %v\n", workerID, repo.Name, err)
			repo.Category = domain.CategoryUnknown
			errs <- fmt.Errorf("分类 %s 失败: %w", repo.Name, err)
			continue
		}

		repo.Category = category
		fmt.Printf("   [Worker-%d] ✅ %s -> %s\n", workerID, repo.Name, category)
	}
}

// CategorizeWithLLM 并发地给项目打分类标签。
// 没有配置 categorizer 时全部标为 Unknown；单个项目失败不会中断整体流程。
func (a *RepoAnalyzer) CategorizeWithLLM(ctx context.Context, repos []*domain.Repo) ([]*domain.Repo, error) {
	if a.categorizer == nil {
		for _, repo := range repos {
			repo.Category = domain.CategoryUnknown
		}
		return repos, nil
	}

	fmt.Printf("🤖 开始LLM分类，共 %d 个项目，最大并发数: %d\n", len(repos), a.maxGoroutines)

	jobs := make(chan *domain.Repo, len(repos))
	errs := make(chan error, len(repos))

	var wg sync.WaitGroup
	for i := 0; i < a.maxGoroutines; i++ {
		wg.Add(1)
		go a.categorizeWorker(ctx, jobs, errs, &wg, i+1)
	}

	for _, repo := range repos {
		jobs <- repo
	}
	close(jobs)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		fmt.Println("⏰ LLM分类因超时或取消而中断")
		// worker 拿到已取消的 ctx 会很快退出
		<-done
		return repos, ctx.Err()
	}

	close(errs)
	if len(errs) > 0 {
		fmt.Printf("⚠️  共有 %d 个分类错误:\n", len(errs))
		for err := range errs {
			fmt.Printf("   错误: %v\n", err)
		}
	}

	fmt.Println("✅ LLM分类完成")
	return repos, nil
}

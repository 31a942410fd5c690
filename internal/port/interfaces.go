package port

import (
	"context"

	"oss-impact-radar/internal/domain"
)

// SearchQuery GitHub 搜索参数，只取一页
type SearchQuery struct {
	Query   string // 例如 "stars:>=500"
	Sort    string // stars / forks / updated
	Order   string // desc / asc
	PerPage int
}

// SearchResult 一次搜索的结果
type SearchResult struct {
	Total int
	Repos []*domain.Repo
}

// Searcher (侦察兵): 负责调 GitHub 搜索 API
type Searcher interface {
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
}

// Categorizer (分类员): 负责给项目打上封闭集合里的分类标签
type Categorizer interface {
	Categorize(ctx context.Context, repo *domain.Repo) (domain.Category, error)
}

// Analyzer (分析师): 负责派生指标和并发打标签
type Analyzer interface {
	DeriveMetrics(repos []*domain.Repo) []*domain.Repo
	CategorizeWithLLM(ctx context.Context, repos []*domain.Repo) ([]*domain.Repo, error)
	SetMaxGoroutines(max int)
}

// Notifier (信使): 负责把排名推送到飞书
type Notifier interface {
	NotifyRanking(ctx context.Context, title string, ranked []domain.RankedRepo) error
}

// DatasetWriter 负责把快照写成 CSV
type DatasetWriter interface {
	Write(path string, repos []*domain.Repo) error
}

// Repository (仓库管理员): 负责快照的存储和查询
type Repository interface {
	SaveAll(ctx context.Context, repos []*domain.Repo) error
	Exists(ctx context.Context, repoID string) (bool, error)
	All(ctx context.Context) ([]*domain.Repo, error)
	Search(ctx context.Context, query string) ([]*domain.Repo, error)
}

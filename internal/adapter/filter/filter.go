package filter

import (
	"time"

	"oss-impact-radar/internal/domain"
)

// RepoFilter 负责在排名前对数据集做初筛
type RepoFilter struct {
	nowFunc func() time.Time
}

// NewRepoFilter 创建新的过滤器实例
func NewRepoFilter() *RepoFilter {
	return &RepoFilter{nowFunc: time.Now}
}

// FilterByCategories 只保留分类在 categories 中的项目，保持输入顺序。
// categories 为空时结果为空；CSV 中不在封闭集合内的标签不会命中任何选项。
func (f *RepoFilter) FilterByCategories(repos []*domain.Repo, categories []domain.Category) []*domain.Repo {
	filtered := make([]*domain.Repo, 0, len(repos))
	if len(categories) == 0 {
		return filtered
	}

	allowed := make(map[domain.Category]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}

	for _, repo := range repos {
		if _, ok := allowed[repo.Category]; ok {
			filtered = append(filtered, repo)
		}
	}
	return filtered
}

// FilterByCreatedAt 过滤掉创建时间超过指定天数的项目，maxDaysOld <= 0 表示不过滤。
// 没有创建时间(零值)的项目无法判断年龄，原样保留。
func (f *RepoFilter) FilterByCreatedAt(repos []*domain.Repo, maxDaysOld int) []*domain.Repo {
	if maxDaysOld <= 0 {
		cloned := make([]*domain.Repo, len(repos))
		copy(cloned, repos)
		return cloned
	}

	maxAge := time.Duration(maxDaysOld) * 24 * time.Hour
	current := time.Now()
	if f != nil && f.nowFunc != nil {
		current = f.nowFunc()
	}

	filtered := make([]*domain.Repo, 0, len(repos))
	for _, repo := range repos {
		if repo.CreatedAt.IsZero() || current.Sub(repo.CreatedAt) <= maxAge {
			filtered = append(filtered, repo)
		}
	}
	return filtered
}

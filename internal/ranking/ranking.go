// Package ranking 按用户给定的权重对项目打分排序。
//
// 加权分 = stars*w_stars + forks*w_forks + days_since_created*w_age，
// 直接使用原始值，不做归一化，所以量级大的指标(通常是 star)会主导排名。
// 这里不做任何 I/O，Rank 对同一输入总是给出同样的结果。
package ranking

import (
	"fmt"
	"sort"

	"oss-impact-radar/internal/adapter/filter"
	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"
)

// DefaultTopN 排名默认展示的行数，同时也是上限
const DefaultTopN = 30

var repoFilter = filter.NewRepoFilter()

// Rank 过滤、打分并返回前 limit 个项目。
// 分数相同时保持输入顺序；limit <= 0 或超过 DefaultTopN 时使用 DefaultTopN。
func Rank(repos []*domain.Repo, categories []domain.Category, weights domain.Weights, limit int) []domain.RankedRepo {
	if limit <= 0 || limit > DefaultTopN {
		limit = DefaultTopN
	}

	candidates := repoFilter.FilterByCategories(repos, categories)
	ranked := make([]domain.RankedRepo, 0, len(candidates))
	for _, repo := range candidates {
		ranked = append(ranked, domain.RankedRepo{Repo: repo, Score: weights.Score(repo)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// RankPreset 与 Rank 相同，但分类按下拉框选项名称解析
func RankPreset(repos []*domain.Repo, categoryPreset string, weights domain.Weights, limit int) ([]domain.RankedRepo, error) {
	preset, ok := domain.LookupCategoryPreset(categoryPreset)
	if !ok {
		return nil, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("unknown category preset %q", categoryPreset))
	}
	return Rank(repos, preset.Categories, weights, limit), nil
}

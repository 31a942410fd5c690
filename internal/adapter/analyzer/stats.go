package analyzer

import (
	"sort"
	"time"

	"oss-impact-radar/internal/domain"
)

// AgePoint 散点图中的一个点 (x=年龄, y=star)
type AgePoint struct {
	Name  string `json:"name"`
	Days  int    `json:"days_since_created"`
	Stars int    `json:"stargazers_count"`
}

// TrendLine 最小二乘拟合的直线 y = Slope*x + Intercept
type TrendLine struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At 返回 x 处的拟合值
func (l TrendLine) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// AgeStarsChart 图 1：star 数随项目年龄的变化
type AgeStarsChart struct {
	Points []AgePoint `json:"points"`
	Trend  TrendLine  `json:"trend"`
}

// DailyCount 图 2：某一天创建的项目数
type DailyCount struct {
	Date  string `json:"date"` // 2006-01-02 (UTC)
	Count int    `json:"repos_count"`
}

// LicenseCount 图 3：许可证分布中的一项
type LicenseCount struct {
	License string `json:"license"`
	Count   int    `json:"count"`
}

// ImpactPoint 图 4：排名结果散点 (x=fork, y=star, 点大小=年龄)
type ImpactPoint struct {
	Name    string  `json:"name"`
	License string  `json:"license"`
	Forks   int     `json:"forks_count"`
	Stars   int     `json:"stargazers_count"`
	Size    int     `json:"days_since_created"`
	Score   float64 `json:"weighted_score"`
}

// Summary 数据集概要
type Summary struct {
	Records    int     `json:"records"`
	TotalStars int     `json:"total_stars"`
	TotalForks int     `json:"total_forks"`
	MedianAge  float64 `json:"median_age_days"`
	Oldest     string  `json:"oldest,omitempty"`
	Newest     string  `json:"newest,omitempty"`
}

// AgeStarsTrend 计算图 1 的散点和 OLS 趋势线。
// 所有点的 x 相同(或不足两个点)时斜率为 0，截距取 y 的均值。
func AgeStarsTrend(repos []*domain.Repo) AgeStarsChart {
	chart := AgeStarsChart{Points: make([]AgePoint, 0, len(repos))}
	if len(repos) == 0 {
		return chart
	}

	var sumX, sumY float64
	for _, r := range repos {
		chart.Points = append(chart.Points, AgePoint{Name: r.Name, Days: r.DaysSinceCreated, Stars: r.Stars})
		sumX += float64(r.DaysSinceCreated)
		sumY += float64(r.Stars)
	}
	n := float64(len(repos))
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy float64
	for _, r := range repos {
		dx := float64(r.DaysSinceCreated) - meanX
		sxx += dx * dx
		sxy += dx * (float64(r.Stars) - meanY)
	}

	if sxx == 0 {
		chart.Trend = TrendLine{Slope: 0, Intercept: meanY}
		return chart
	}
	slope := sxy / sxx
	chart.Trend = TrendLine{Slope: slope, Intercept: meanY - slope*meanX}
	return chart
}

// CreationsOverTime 按创建日期(UTC 自然日)统计项目数，日期升序。
// 同一天内不同时刻创建的项目合并为一个点，不按完整时间戳分组。
func CreationsOverTime(repos []*domain.Repo) []DailyCount {
	counts := make(map[string]int)
	for _, r := range repos {
		if r.CreatedAt.IsZero() {
			continue
		}
		counts[r.CreatedAt.UTC().Format(time.DateOnly)]++
	}

	out := make([]DailyCount, 0, len(counts))
	for date, c := range counts {
		out = append(out, DailyCount{Date: date, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TopLicenses 统计最常见的 n 个许可证；空许可证不计入。
// 按数量降序，数量相同按名称升序。
func TopLicenses(repos []*domain.Repo, n int) []LicenseCount {
	counts := make(map[string]int)
	for _, r := range repos {
		if r.License == "" {
			continue
		}
		counts[r.License]++
	}

	out := make([]LicenseCount, 0, len(counts))
	for license, c := range counts {
		out = append(out, LicenseCount{License: license, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].License < out[j].License
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ImpactPoints 把排名结果转换成图 4 的散点
func ImpactPoints(ranked []domain.RankedRepo) []ImpactPoint {
	points := make([]ImpactPoint, 0, len(ranked))
	for _, r := range ranked {
		points = append(points, ImpactPoint{
			Name:    r.Repo.Name,
			License: r.Repo.License,
			Forks:   r.Repo.Forks,
			Stars:   r.Repo.Stars,
			Size:    r.Repo.DaysSinceCreated,
			Score:   r.Score,
		})
	}
	return points
}

// Summarize 汇总数据集的基本信息
func Summarize(repos []*domain.Repo) Summary {
	s := Summary{Records: len(repos)}
	if len(repos) == 0 {
		return s
	}

	ages := make([]int, 0, len(repos))
	var oldest, newest *domain.Repo
	for _, r := range repos {
		s.TotalStars += r.Stars
		s.TotalForks += r.Forks
		ages = append(ages, r.DaysSinceCreated)

		if r.CreatedAt.IsZero() {
			continue
		}
		if oldest == nil || r.CreatedAt.Before(oldest.CreatedAt) {
			oldest = r
		}
		if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
			newest = r
		}
	}

	sort.Ints(ages)
	mid := len(ages) / 2
	if len(ages)%2 == 1 {
		s.MedianAge = float64(ages[mid])
	} else {
		s.MedianAge = float64(ages[mid-1]+ages[mid]) / 2
	}

	if oldest != nil {
		s.Oldest = oldest.Name
	}
	if newest != nil {
		s.Newest = newest.Name
	}
	return s
}

package domain

import "time"

// Repo 代表数据集中的一条开源项目记录
type Repo struct {
	// 基础信息 (来自 GitHub)
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"` // 例如 "langchain-ai/langchain"
	URL         string    `json:"html_url"`
	Description string    `json:"description" gorm:"type:text"`
	Language    string    `json:"language"`
	License     string    `json:"license"` // SPDX 标识，例如 "MIT"
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime:false"` // 保留 GitHub 的时间戳
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	// 原始指标，排名直接使用这些值，不做归一化
	Stars            int `json:"stargazers_count"`
	Forks            int `json:"forks_count"`
	DaysSinceCreated int `json:"days_since_created"`

	// 派生指标：日均增长
	AvgDailyStars float64 `json:"avg_daily_stars"`
	AvgDailyForks float64 `json:"avg_daily_forks"`

	// 分类标签，取值见 AllCategories
	Category Category `json:"categories" gorm:"index"`
}

// RankedRepo 是排名结果中的一行，Score 只在本次计算中有效，不会回写
type RankedRepo struct {
	Rank  int     `json:"rank"`
	Score float64 `json:"weighted_score"`
	Repo  *Repo   `json:"repo"`
}

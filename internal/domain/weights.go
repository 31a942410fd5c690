package domain

import (
	"fmt"
	"math"
)

// 滑块的取值范围与步长
const (
	WeightMin  = 0.0
	WeightMax  = 1.0
	WeightStep = 0.1
)

// Weights 三个指标的权重
type Weights struct {
	Stars float64 `json:"stargazers_count" yaml:"stars"`
	Forks float64 `json:"forks_count" yaml:"forks"`
	Age   float64 `json:"days_since_created" yaml:"age"`
}

// Score 计算加权分：直接对原始值做线性组合
func (w Weights) Score(r *Repo) float64 {
	return w.Stars*float64(r.Stars) + w.Forks*float64(r.Forks) + w.Age*float64(r.DaysSinceCreated)
}

// Validate 检查权重是否满足滑块约束：[0, 1] 且为 0.1 的整数倍
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"stars", w.Stars},
		{"forks", w.Forks},
		{"age", w.Age},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || f.value < WeightMin || f.value > WeightMax {
			return fmt.Errorf("weight %s=%v out of range [%.1f, %.1f]", f.name, f.value, WeightMin, WeightMax)
		}
		steps := f.value / WeightStep
		if math.Abs(steps-math.Round(steps)) > 1e-9 {
			return fmt.Errorf("weight %s=%v is not a multiple of %.1f", f.name, f.value, WeightStep)
		}
	}
	return nil
}

// WeightPreset 权重预设
type WeightPreset struct {
	Name    string  `json:"name"`
	Weights Weights `json:"weights"`
}

// 预设名称
const (
	PresetBalanced            = "Balanced"
	PresetPopularityFocused   = "Popularity Focused"
	PresetContributionFocused = "Contribution Focused"

	DefaultWeightPreset = PresetBalanced
)

// WeightPresets 按界面展示顺序返回权重预设
func WeightPresets() []WeightPreset {
	return []WeightPreset{
		{Name: PresetBalanced, Weights: Weights{Stars: 0.5, Forks: 0.5, Age: 0.5}},
		{Name: PresetPopularityFocused, Weights: Weights{Stars: 0.9, Forks: 0.3, Age: 0.5}},
		{Name: PresetContributionFocused, Weights: Weights{Stars: 0.3, Forks: 0.9, Age: 0.5}},
	}
}

// LookupWeightPreset 按名称查找权重预设
func LookupWeightPreset(name string) (WeightPreset, bool) {
	for _, p := range WeightPresets() {
		if p.Name == name {
			return p, true
		}
	}
	return WeightPreset{}, false
}

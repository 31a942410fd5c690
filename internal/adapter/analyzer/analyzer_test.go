package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"oss-impact-radar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCategorizer 模拟Categorizer接口
type MockCategorizer struct {
	mock.Mock
}

func (m *MockCategorizer) Categorize(ctx context.Context, repo *domain.Repo) (domain.Category, error) {
	args := m.Called(ctx, repo)
	return args.Get(0).(domain.Category), args.Error(1)
}

func TestRepoAnalyzer_DeriveMetrics(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := NewRepoAnalyzer(nil)
	a.nowFunc = func() time.Time { return now }

	tests := []struct {
		name   string
		repo   *domain.Repo
		verify func(*testing.T, *domain.Repo)
	}{
		{
			name: "正常计算日均值",
			repo: &domain.Repo{Name: "test-repo", Stars: 100, Forks: 20, CreatedAt: now.AddDate(0, 0, -5)},
			verify: func(t *testing.T, r *domain.Repo) {
				assert.Equal(t, 5, r.DaysSinceCreated)
				assert.InDelta(t, 20.0, r.AvgDailyStars, 1e-9)
				assert.InDelta(t, 4.0, r.AvgDailyForks, 1e-9)
			},
		},
		{
			name: "不足一天向下取整为 0",
			repo: &domain.Repo{Name: "new-repo", Stars: 10, Forks: 1, CreatedAt: now.Add(-20 * time.Hour)},
			verify: func(t *testing.T, r *domain.Repo) {
				assert.Equal(t, 0, r.DaysSinceCreated)
				assert.Equal(t, 0.0, r.AvgDailyStars)
				assert.Equal(t, 0.0, r.AvgDailyForks)
			},
		},
		{
			name: "创建时间在未来",
			repo: &domain.Repo{Name: "clock-skew", Stars: 10, CreatedAt: now.Add(48 * time.Hour)},
			verify: func(t *testing.T, r *domain.Repo) {
				assert.Equal(t, 0, r.DaysSinceCreated)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.DeriveMetrics([]*domain.Repo{tt.repo})
			assert.Len(t, result, 1)
			tt.verify(t, result[0])
		})
	}
}

func TestRepoAnalyzer_CategorizeWithLLM(t *testing.T) {
	t.Run("分类并处理失败项", func(t *testing.T) {
		ok := &domain.Repo{Name: "ok/repo"}
		bad := &domain.Repo{Name: "bad/repo", Category: domain.CategoryLists}

		categorizer := new(MockCategorizer)
		categorizer.On("Categorize", mock.Anything, ok).Return(domain.CategoryInfrastructure, nil)
		categorizer.On("Categorize", mock.Anything, bad).Return(domain.CategoryUnknown, errors.New("quota exceeded"))

		// 单个 worker，mock 打印参数时不会和写 Category 并发
		a := NewRepoAnalyzer(categorizer)
		a.SetMaxGoroutines(1)

		result, err := a.CategorizeWithLLM(context.Background(), []*domain.Repo{ok, bad})
		assert.NoError(t, err)
		assert.Len(t, result, 2)
		assert.Equal(t, domain.CategoryInfrastructure, ok.Category)
		assert.Equal(t, domain.CategoryUnknown, bad.Category)
		categorizer.AssertExpectations(t)
	})

	t.Run("未配置分类器时全部为 Unknown", func(t *testing.T) {
		repos := []*domain.Repo{{Name: "a", Category: domain.CategoryTutorials}, {Name: "b"}}

		result, err := NewRepoAnalyzer(nil).CategorizeWithLLM(context.Background(), repos)
		assert.NoError(t, err)
		for _, r := range result {
			assert.Equal(t, domain.CategoryUnknown, r.Category)
		}
	})

	t.Run("上下文已取消", func(t *testing.T) {
		categorizer := new(MockCategorizer)
		categorizer.On("Categorize", mock.Anything, mock.Anything).Return(domain.CategoryUnknown, context.Canceled).Maybe()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewRepoAnalyzer(categorizer).CategorizeWithLLM(ctx, []*domain.Repo{{Name: "a"}})
		// worker 可能先于 select 完成，两种结果都可以接受
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	})
}

func TestRepoAnalyzer_SetMaxGoroutines(t *testing.T) {
	a := NewRepoAnalyzer(nil)
	a.SetMaxGoroutines(8)
	assert.Equal(t, 8, a.maxGoroutines)
	a.SetMaxGoroutines(0)
	assert.Equal(t, 8, a.maxGoroutines)
}

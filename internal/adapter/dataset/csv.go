package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"
)

// 必需列
const (
	ColName        = "name"
	ColDescription = "description"
	ColCreatedAt   = "created_at"
	ColDays        = "days_since_created"
	ColStars       = "stargazers_count"
	ColForks       = "forks_count"
	ColLicense     = "license"
	ColCategories  = "categories"
)

// 可选列
const (
	ColURL           = "html_url"
	ColLanguage      = "language"
	ColAvgDailyStars = "avg_daily_stars"
	ColAvgDailyForks = "avg_daily_forks"
)

// RequiredColumns 数据集至少要包含的列
var RequiredColumns = []string{
	ColName, ColDescription, ColCreatedAt, ColDays,
	ColStars, ColForks, ColLicense, ColCategories,
}

// header Write 输出的列顺序
var header = []string{
	ColName, ColDescription, ColCreatedAt, ColDays,
	ColStars, ColForks, ColLicense, ColCategories,
	ColURL, ColLanguage, ColAvgDailyStars, ColAvgDailyForks,
}

// timeLayouts created_at 可接受的格式；pandas 导出时常用带空格的格式
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// CSVStore 读写 CSV 快照，实现了 port.DatasetWriter
type CSVStore struct{}

// NewCSVStore 创建 CSV 读写器
func NewCSVStore() *CSVStore {
	return &CSVStore{}
}

// Load 读取 path 指向的 CSV 文件
func (s *CSVStore) Load(path string) ([]*domain.Repo, error) {
	return Load(path)
}

// Write 把 repos 写入 path
func (s *CSVStore) Write(path string, repos []*domain.Repo) error {
	return Write(path, repos)
}

// Load 读取 path 指向的 CSV 文件
func Load(path string) ([]*domain.Repo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDataset, "打开数据集失败", err)
	}
	defer f.Close()

	repos, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return repos, nil
}

// Read 按列名解析 CSV，列的顺序无关紧要
func Read(r io.Reader) ([]*domain.Repo, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.NewError(common.ErrCodeDataset, "数据集为空，缺少表头")
		}
		return nil, common.WrapError(common.ErrCodeDataset, "读取表头失败", err)
	}

	index := make(map[string]int, len(head))
	for i, col := range head {
		// 去掉 BOM 和首尾空白
		index[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, common.NewError(common.ErrCodeDataset, "缺少必需列: "+strings.Join(missing, ", "))
	}

	var repos []*domain.Repo
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, common.WrapError(common.ErrCodeDataset, fmt.Sprintf("第 %d 行格式错误", line), err)
		}

		repo, err := parseRow(record, index)
		if err != nil {
			return nil, common.WrapError(common.ErrCodeDataset, fmt.Sprintf("第 %d 行解析失败", line), err)
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func parseRow(record []string, index map[string]int) (*domain.Repo, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	repo := &domain.Repo{
		Name:        get(ColName),
		Description: get(ColDescription),
		License:     get(ColLicense),
		Category:    domain.Category(get(ColCategories)),
		URL:         get(ColURL),
		Language:    get(ColLanguage),
	}
	repo.ID = repo.Name

	var err error
	if repo.CreatedAt, err = parseTime(get(ColCreatedAt)); err != nil {
		return nil, fmt.Errorf("%s: %w", ColCreatedAt, err)
	}
	if repo.DaysSinceCreated, err = parseCount(get(ColDays)); err != nil {
		return nil, fmt.Errorf("%s: %w", ColDays, err)
	}
	if repo.Stars, err = parseCount(get(ColStars)); err != nil {
		return nil, fmt.Errorf("%s: %w", ColStars, err)
	}
	if repo.Forks, err = parseCount(get(ColForks)); err != nil {
		return nil, fmt.Errorf("%s: %w", ColForks, err)
	}
	if repo.AvgDailyStars, err = parseOptionalFloat(get(ColAvgDailyStars)); err != nil {
		return nil, fmt.Errorf("%s: %w", ColAvgDailyStars, err)
	}
	if repo.AvgDailyForks, err = parseOptionalFloat(get(ColAvgDailyForks)); err != nil {
		return nil, fmt.Errorf("%s: %w", ColAvgDailyForks, err)
	}
	return repo, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法识别的时间格式 %q", s)
}

// parseCount 解析整数列；pandas 可能写成 "123.0"
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("不是整数: %q", s)
	}
	return int(f), nil
}

func parseOptionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Write 把 repos 写入 path，必要时创建目录
func Write(path string, repos []*domain.Repo) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.WrapError(common.ErrCodeDataset, "创建输出目录失败", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return common.WrapError(common.ErrCodeDataset, "创建 CSV 失败", err)
	}
	if err := Encode(f, repos); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return common.WrapError(common.ErrCodeDataset, "关闭 CSV 失败", err)
	}

	fmt.Printf("💾 CSV saved to %s (%d records)\n", path, len(repos))
	return nil
}

// Encode 以 header 的列顺序写出 CSV
func Encode(w io.Writer, repos []*domain.Repo) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return common.WrapError(common.ErrCodeDataset, "写入表头失败", err)
	}

	for _, r := range repos {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			r.Name,
			r.Description,
			created,
			strconv.Itoa(r.DaysSinceCreated),
			strconv.Itoa(r.Stars),
			strconv.Itoa(r.Forks),
			r.License,
			string(r.Category),
			r.URL,
			r.Language,
			strconv.FormatFloat(r.AvgDailyStars, 'f', -1, 64),
			strconv.FormatFloat(r.AvgDailyForks, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return common.WrapError(common.ErrCodeDataset, "写入数据行失败", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return common.WrapError(common.ErrCodeDataset, "写入 CSV 失败", err)
	}
	return nil
}

package domain

// Category 项目分类标签，是一个封闭集合
type Category string

const (
	CategoryTutorials        Category = "Tutorials"
	CategoryApplications     Category = "Applications"
	CategoryAIEngineering    Category = "AI engineering"
	CategoryModelDevelopment Category = "Model development"
	CategoryModelRepo        Category = "Model repo"
	CategoryInfrastructure   Category = "Infrastructure"
	CategoryLists            Category = "Lists"
	CategoryUnknown          Category = "Unknown"
)

// CategoryPresetAll 选择全部分类
const CategoryPresetAll = "All"

// AllCategories 返回全部 8 个分类标签
func AllCategories() []Category {
	return []Category{
		CategoryTutorials,
		CategoryApplications,
		CategoryAIEngineering,
		CategoryModelDevelopment,
		CategoryModelRepo,
		CategoryInfrastructure,
		CategoryLists,
		CategoryUnknown,
	}
}

// ParseCategory 精确匹配标签，匹配不上时返回 Unknown 和 false
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryUnknown, false
}

// CategoryPreset 分类下拉框中的一个选项
type CategoryPreset struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// CategoryPresets 按界面展示顺序返回分类选项。
// "Unknown" 只能通过 All 选中，没有单独的选项。
func CategoryPresets() []CategoryPreset {
	presets := []CategoryPreset{{Name: CategoryPresetAll, Categories: AllCategories()}}
	for _, c := range AllCategories() {
		if c == CategoryUnknown {
			continue
		}
		presets = append(presets, CategoryPreset{Name: string(c), Categories: []Category{c}})
	}
	return presets
}

// LookupCategoryPreset 按名称查找分类选项
func LookupCategoryPreset(name string) (CategoryPreset, bool) {
	for _, p := range CategoryPresets() {
		if p.Name == name {
			return p, true
		}
	}
	return CategoryPreset{}, false
}

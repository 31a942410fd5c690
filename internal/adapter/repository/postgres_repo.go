package repository

import (
	"context"
	"strings"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresRepo 实现了 port.Repository 接口，保存数据集快照
type PostgresRepo struct {
	db *gorm.DB
}

// NewPostgresRepo 初始化数据库连接并自动迁移表结构
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}

	// 自动在数据库里创建 repos 表，字段变了也会自动更新
	if err := db.AutoMigrate(&domain.Repo{}); err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}

	return &PostgresRepo{db: db}, nil
}

// SaveAll 在一个事务里批量 upsert 整个快照
func (r *PostgresRepo) SaveAll(ctx context.Context, repos []*domain.Repo) error {
	if len(repos) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(repos, 500).Error
	})
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, "批量保存快照失败", err)
	}
	return nil
}

// Exists 检查项目是否存在
func (r *PostgresRepo) Exists(ctx context.Context, repoID string) (bool, error) {
	var count int64
	// SELECT count(*) FROM repos WHERE id = ?
	err := r.db.WithContext(ctx).Model(&domain.Repo{}).Where("id = ?", repoID).Count(&count).Error
	if err != nil {
		return false, common.WrapError(common.ErrCodeDatabase, "查询项目失败", err)
	}
	return count > 0, nil
}

// All 取出整个快照，按 star 数降序，供仪表盘加载
func (r *PostgresRepo) All(ctx context.Context) ([]*domain.Repo, error) {
	var repos []*domain.Repo
	err := r.db.WithContext(ctx).
		Order("stars DESC").
		Order("id"). // star 相同时保证顺序稳定
		Find(&repos).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "读取快照失败", err)
	}
	return repos, nil
}

// likeEscaper 转义 LIKE 通配符，Postgres 默认的转义字符是反斜杠
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search 根据关键词搜索名字或描述。关键词按字面匹配，其中的 % 和 _ 不作为通配符。
func (r *PostgresRepo) Search(ctx context.Context, query string) ([]*domain.Repo, error) {
	var repos []*domain.Repo
	likeQuery := "%" + likeEscaper.Replace(query) + "%"
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR description ILIKE ?", likeQuery, likeQuery).
		Order("stars DESC").
		Limit(10).
		Find(&repos).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "搜索项目失败", err)
	}
	return repos, nil
}

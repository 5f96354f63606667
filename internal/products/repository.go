package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"

	"gorm.io/gorm"
)

// ErrNotFound 商品不存在或已下架
var ErrNotFound = errors.New("products: not found")

// Repository 商品仓储，同时服务 API 层和检索回退链
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建商品仓储
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 新建商品
func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("创建商品失败: %w", err)
	}
	return nil
}

// GetByID 按主键取在售商品
func (r *Repository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询商品失败: %w", err)
	}
	return &p, nil
}

// Update 全量更新商品
func (r *Repository) Update(ctx context.Context, p *models.Product) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND is_active = ?", p.ID, true).
		Select("name", "description", "price", "category", "color", "size",
			"brand", "image_url", "stock_quantity", "tags").
		Updates(p)
	if result.Error != nil {
		return fmt.Errorf("更新商品失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除商品
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("删除商品失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List 按筛选条件分页列出在售商品，返回本页数据与总数
func (r *Repository) List(ctx context.Context, filter *search.Filter, limit, offset int) ([]models.Product, int64, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计商品总数失败: %w", err)
	}

	var items []models.Product
	err := query.Order("id").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询商品列表失败: %w", err)
	}
	return items, total, nil
}

// ListActive 取全部在售商品，用于启动时重建检索索引
func (r *Repository) ListActive(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("查询在售商品失败: %w", err)
	}
	return items, nil
}

// Categories 去重后的在售商品分类
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	return r.distinctColumn(ctx, "category")
}

// Brands 去重后的在售商品品牌
func (r *Repository) Brands(ctx context.Context) ([]string, error) {
	return r.distinctColumn(ctx, "brand")
}

func (r *Repository) distinctColumn(ctx context.Context, column string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Where(column+" <> ''").
		Distinct(column).
		Order(column).
		Pluck(column, &values).Error
	if err != nil {
		return nil, fmt.Errorf("查询 %s 去重列表失败: %w", column, err)
	}
	return values, nil
}

// FindByIDs 按 id 批量取在售商品行并套用结构化筛选，顺序不保证
func (r *Repository) FindByIDs(ctx context.Context, ids []uint, filter *search.Filter) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := applyFilter(r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("is_active = ?", true), filter)

	var items []models.Product
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("按 id 批量查询商品失败: %w", err)
	}
	return items, nil
}

// FindByText 关键词 OR 匹配 name/description（大小写不敏感包含），
// 同时套用结构化筛选
func (r *Repository) FindByText(ctx context.Context, tokens []string, filter *search.Filter, limit int) ([]models.Product, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	query := applyFilter(r.db.WithContext(ctx).Where("is_active = ?", true), filter)

	var conditions []string
	var args []any
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		pattern := "%" + strings.ToLower(token) + "%"
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if len(conditions) == 0 {
		return nil, nil
	}
	query = query.Where(strings.Join(conditions, " OR "), args...)

	var items []models.Product
	if err := query.Order("id").Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("文本回捞查询失败: %w", err)
	}
	return items, nil
}

// Count 在售商品总数
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("统计商品总数失败: %w", err)
	}
	return total, nil
}

// applyFilter 把结构化筛选翻译成 SQL 条件。字符串字段大小写不敏感包含，
// 价格为闭区间，所有条件取交集。
func applyFilter(query *gorm.DB, filter *search.Filter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.Category != "" {
		query = query.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(filter.Category)+"%")
	}
	if filter.Color != "" {
		query = query.Where("LOWER(color) LIKE ?", "%"+strings.ToLower(filter.Color)+"%")
	}
	if filter.Brand != "" {
		query = query.Where("LOWER(brand) LIKE ?", "%"+strings.ToLower(filter.Brand)+"%")
	}
	if filter.Size != "" {
		query = query.Where("LOWER(size) LIKE ?", "%"+strings.ToLower(filter.Size)+"%")
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	return query
}

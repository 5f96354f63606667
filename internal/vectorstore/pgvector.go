package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Surya-Chinnathambi/FashionChat/internal/search"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductEmbedding 商品向量表，embedding 维度在建表时固定
type ProductEmbedding struct {
	ProductID uint            `gorm:"primaryKey"`
	Document  string          `gorm:"type:text"`
	Metadata  datatypes.JSON  `gorm:"type:jsonb"`
	Embedding pgvector.Vector `gorm:"type:vector(1536)"`
}

// TableName gorm 表名
func (ProductEmbedding) TableName() string {
	return "product_embeddings"
}

// PGVectorStore 基于 PostgreSQL pgvector 扩展的向量存储实现。
// 与业务数据同库，部署上少一个外部组件。
type PGVectorStore struct {
	db *gorm.DB
}

// NewPGVectorStore 创建 pgvector 存储实例并确保扩展与表就绪
func NewPGVectorStore(db *gorm.DB) (*PGVectorStore, error) {
	store := &PGVectorStore{db: db}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("确保 pgvector 扩展失败: %w", err)
	}
	if err := db.AutoMigrate(&ProductEmbedding{}); err != nil {
		return nil, fmt.Errorf("迁移 product_embeddings 表失败: %w", err)
	}

	return store, nil
}

// Upsert 写入或更新一批商品向量
func (s *PGVectorStore) Upsert(ctx context.Context, items []search.VectorItem) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]ProductEmbedding, 0, len(items))
	for _, item := range items {
		metadata, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("序列化向量元数据失败: %w", err)
		}
		rows = append(rows, ProductEmbedding{
			ProductID: item.ID,
			Document:  item.Document,
			Metadata:  metadata,
			Embedding: pgvector.NewVector(item.Embedding),
		})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("写入商品向量失败: %w", err)
	}
	return nil
}

// Query 余弦距离检索，返回按距离升序的候选
func (s *PGVectorStore) Query(ctx context.Context, embedding []float32, topK int, filter *search.Filter) ([]search.Candidate, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if topK <= 0 {
		topK = 5
	}

	// <=> 是 pgvector 的余弦距离操作符。结构化筛选留给上层的
	// 权威合并做，这里只负责近邻召回。
	var rows []struct {
		ProductID uint           `gorm:"column:product_id"`
		Metadata  datatypes.JSON `gorm:"column:metadata"`
		Distance  float64        `gorm:"column:distance"`
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			product_id,
			metadata,
			embedding <=> ? AS distance
		FROM product_embeddings
		ORDER BY embedding <=> ?
		LIMIT ?
	`, pgvector.NewVector(embedding), pgvector.NewVector(embedding), topK).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	candidates := make([]search.Candidate, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]any
		if len(row.Metadata) > 0 {
			_ = json.Unmarshal(row.Metadata, &metadata)
		}
		candidates = append(candidates, search.Candidate{
			ID:       row.ProductID,
			Distance: row.Distance,
			Metadata: metadata,
		})
	}
	return candidates, nil
}

// Delete 按商品 id 删除向量
func (s *PGVectorStore) Delete(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("product_id IN ?", ids).
		Delete(&ProductEmbedding{}).Error
	if err != nil {
		return fmt.Errorf("删除商品向量失败: %w", err)
	}
	return nil
}

// Count 向量总数
func (s *PGVectorStore) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&ProductEmbedding{}).Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("统计商品向量失败: %w", err)
	}
	return total, nil
}

package search

import (
	"context"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

// Query 一次检索的查询状态。向量化由编排器做一次，各层共享。
type Query struct {
	Text      string
	Embedding []float32 // 向量化失败或未配置时为空
}

// Producer 候选商品生产者。回退链按顺序执行多个 Producer，
// exclude 为前面层已产出的商品 id，limit 为当前还差的数量。
// 层内故障就地消化，返回空结果即可，不向上抛致命错误。
type Producer interface {
	Name() string
	Produce(ctx context.Context, q *Query, filter *Filter, limit int, exclude map[uint]struct{}) ([]*ScoredProduct, error)
}

// ProductRepository 关系库侧的商品读取能力
type ProductRepository interface {
	// FindByIDs 按 id 批量取权威商品行，服务端套用结构化筛选。
	// 返回顺序不保证与入参一致。
	FindByIDs(ctx context.Context, ids []uint, filter *Filter) ([]models.Product, error)
	// FindByText 关键词 OR 匹配（name/description 大小写不敏感包含），
	// 同时套用结构化筛选
	FindByText(ctx context.Context, tokens []string, filter *Filter, limit int) ([]models.Product, error)
	// Count 在售商品总数
	Count(ctx context.Context) (int64, error)
}

// Candidate 向量召回的单个候选
type Candidate struct {
	ID       uint
	Distance float64
	Metadata map[string]any
}

// VectorItem 写入向量存储的单条数据
type VectorItem struct {
	ID        uint
	Document  string
	Metadata  map[string]any
	Embedding []float32
}

// VectorStore 外部向量存储能力。随时可能不可用，调用方必须把
// 失败降级为该层空结果。
type VectorStore interface {
	Upsert(ctx context.Context, items []VectorItem) error
	Query(ctx context.Context, embedding []float32, topK int, filter *Filter) ([]Candidate, error)
	Delete(ctx context.Context, ids []uint) error
	Count(ctx context.Context) (int64, error)
}

// EmbeddingProvider 文本向量化能力，输出维度固定，同输入结果确定
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

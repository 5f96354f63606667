package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"

	"go.uber.org/zap"
)

// vectorProducer 向量层：召回候选后优先从关系库取权威行并恢复召回顺序，
// 没有关系库句柄或取行失败时退回用召回元数据重建结果。
type vectorProducer struct {
	store      VectorStore
	repo       ProductRepository // 可为 nil
	multiplier int
	floor      int
}

func (p *vectorProducer) Name() string { return "vector" }

func (p *vectorProducer) Produce(ctx context.Context, q *Query, filter *Filter, limit int, exclude map[uint]struct{}) ([]*ScoredProduct, error) {
	if p.store == nil || len(q.Embedding) == 0 {
		return nil, nil
	}

	// 下游过滤和去重会淘汰候选，召回量必须富余
	topK := limit * p.multiplier
	if topK < p.floor {
		topK = p.floor
	}

	candidates, err := p.store.Query(ctx, q.Embedding, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("向量召回失败: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if _, seen := exclude[c.ID]; seen {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	if p.repo != nil {
		results, err := p.authoritativeMerge(ctx, kept, filter, limit)
		if err == nil {
			return results, nil
		}
		// 关系库不可用，降级为元数据重建，接受可能的陈旧字段
		logger.Warn("权威合并失败，退回召回元数据", zap.Error(err))
	}

	return p.reconstructFromMetadata(kept, filter, limit), nil
}

// authoritativeMerge 批量取权威行、服务端复筛，再按原始召回顺序重排。
// 关系库返回顺序与入参无关，相关性顺序必须用候选列表恢复。
func (p *vectorProducer) authoritativeMerge(ctx context.Context, candidates []Candidate, filter *Filter, limit int) ([]*ScoredProduct, error) {
	ids := make([]uint, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	rows, err := p.repo.FindByIDs(ctx, ids, filter)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	results := make([]*ScoredProduct, 0, len(candidates))
	for _, c := range candidates {
		row, ok := byID[c.ID]
		if !ok {
			continue
		}
		results = append(results, NewScoredProduct(row, DistanceToSimilarity(c.Distance)))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// reconstructFromMetadata 没有权威行可用时，直接用向量库存的元数据拼结果
func (p *vectorProducer) reconstructFromMetadata(candidates []Candidate, filter *Filter, limit int) []*ScoredProduct {
	results := make([]*ScoredProduct, 0, len(candidates))
	for _, c := range candidates {
		product, ok := productFromMetadata(c.ID, c.Metadata)
		if !ok {
			continue
		}
		if !filter.Matches(&product) {
			continue
		}
		results = append(results, NewScoredProduct(product, DistanceToSimilarity(c.Distance)))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// productFromMetadata 从召回元数据重建商品，字段可能不全或陈旧
func productFromMetadata(id uint, meta map[string]any) (models.Product, bool) {
	if id == 0 || meta == nil {
		return models.Product{}, false
	}
	return models.Product{
		ID:            id,
		Name:          metaString(meta, "name"),
		Description:   metaString(meta, "description"),
		Category:      metaString(meta, "category"),
		Brand:         metaString(meta, "brand"),
		Color:         metaString(meta, "color"),
		Size:          metaString(meta, "size"),
		Price:         metaFloat(meta, "price"),
		StockQuantity: int(metaFloat(meta, "stock_quantity")),
		IsActive:      true,
	}, true
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

func metaFloat(meta map[string]any, key string) float64 {
	switch v := meta[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// backfillProducer 关系库文本回填层：用查询关键词在 name/description 上
// 做 OR 包含匹配，补足前面层的缺口。该层没有可比较的相似度分。
type backfillProducer struct {
	repo ProductRepository
}

func (p *backfillProducer) Name() string { return "relational" }

func (p *backfillProducer) Produce(ctx context.Context, q *Query, filter *Filter, limit int, exclude map[uint]struct{}) ([]*ScoredProduct, error) {
	if p.repo == nil || limit <= 0 {
		return nil, nil
	}

	tokens := QueryTokens(q.Text)
	if len(tokens) == 0 {
		return nil, nil
	}

	// 多取一些，排除已见 id 后再裁剪
	rows, err := p.repo.FindByText(ctx, tokens, filter, limit+len(exclude))
	if err != nil {
		return nil, fmt.Errorf("关系库文本检索失败: %w", err)
	}

	results := make([]*ScoredProduct, 0, limit)
	for _, row := range rows {
		if _, seen := exclude[row.ID]; seen {
			continue
		}
		results = append(results, NewUnscoredProduct(row))
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// memoryScanProducer 内存兜底层：全量扫描索引打分。查询和条目都有向量时
// 用余弦相似度做基础分，否则退回词法打分，两种基础分的收录阈值不同。
// 词法阈值由装配方注入：作为前面各层的兜底时收紧到 MinScoreLexicalFallback，
// 纯词法检索（本层是唯一一层）时放宽到 MinScore。
type memoryScanProducer struct {
	index        *Index
	scorer       LexicalScorer
	lexicalFloor float64
}

func (p *memoryScanProducer) Name() string { return "memory" }

func (p *memoryScanProducer) Produce(ctx context.Context, q *Query, filter *Filter, limit int, exclude map[uint]struct{}) ([]*ScoredProduct, error) {
	if p.index == nil || limit <= 0 {
		return nil, nil
	}

	results := make([]*ScoredProduct, 0, limit)
	for _, entry := range p.index.Snapshot() {
		if _, seen := exclude[entry.Product.ID]; seen {
			continue
		}
		if !filter.Matches(&entry.Product) {
			continue
		}

		var score, threshold float64
		if len(q.Embedding) > 0 && len(entry.Embedding) > 0 {
			score = CosineSimilarity(q.Embedding, entry.Embedding)
			threshold = MinScoreCosineFallback
		} else {
			score = p.scorer.Score(q.Text, entry)
			threshold = p.lexicalFloor
		}

		if score <= threshold {
			continue
		}
		results = append(results, NewScoredProduct(entry.Product, score))
	}

	// 先按分数挑最好的，再裁剪到缺口数量
	sort.Slice(results, func(i, j int) bool {
		return *results[i].SimilarityScore > *results[j].SimilarityScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

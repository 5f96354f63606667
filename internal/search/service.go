package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/metrics"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"

	"go.uber.org/zap"
)

const defaultLimit = 10

// Service 混合检索服务：按 向量召回 -> 关系库回捞 -> 内存扫描 的顺序
// 逐层补齐候选，最终统一按相似度排序。任何一层失败都只降级，不对外报错。
type Service struct {
	index     *Index
	scorer    LexicalScorer
	store     VectorStore       // 可为 nil
	repo      ProductRepository // 可为 nil
	embedder  EmbeddingProvider // 可为 nil
	producers []Producer
	syncBatch int
}

// Options 检索服务的装配参数
type Options struct {
	Store               VectorStore
	Repo                ProductRepository
	Embedder            EmbeddingProvider
	CandidateMultiplier int
	CandidateFloor      int
	SyncBatchSize       int
}

// NewService 创建检索服务并按可用依赖装配各降级层
func NewService(opts Options) *Service {
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = 3
	}
	if opts.CandidateFloor <= 0 {
		opts.CandidateFloor = 24
	}
	if opts.SyncBatchSize <= 0 {
		opts.SyncBatchSize = 96
	}

	s := &Service{
		index:     NewIndex(),
		store:     opts.Store,
		repo:      opts.Repo,
		embedder:  opts.Embedder,
		syncBatch: opts.SyncBatchSize,
	}

	if opts.Store != nil {
		s.producers = append(s.producers, &vectorProducer{
			store:      opts.Store,
			repo:       opts.Repo,
			multiplier: opts.CandidateMultiplier,
			floor:      opts.CandidateFloor,
		})
	}
	if opts.Repo != nil {
		s.producers = append(s.producers, &backfillProducer{repo: opts.Repo})
	}
	// 内存扫描层永远在线，保证无外部依赖时仍可检索
	memoryFloor := MinScoreLexicalFallback
	if len(s.producers) == 0 {
		memoryFloor = MinScore
	}
	s.producers = append(s.producers, &memoryScanProducer{index: s.index, scorer: s.scorer, lexicalFloor: memoryFloor})

	return s
}

// Search 执行混合检索。空查询返回空结果；limit<=0 使用默认值。
// 该方法从不返回错误：单层失败记日志并继续下一层。
func (s *Service) Search(ctx context.Context, text string, filter *Filter, limit int) []*ScoredProduct {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*ScoredProduct{}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if filter == nil {
		filter = &Filter{}
	}

	start := time.Now()

	q := &Query{Text: text}
	if s.embedder != nil {
		embedding, err := s.embedder.Embed(ctx, text)
		if err != nil {
			logger.Warn("查询向量化失败，退化为文本检索", zap.Error(err))
		} else {
			NormalizeL2(embedding)
			q.Embedding = embedding
		}
	}

	seen := make(map[uint]struct{})
	collected := make([]*ScoredProduct, 0, limit)

	for _, producer := range s.producers {
		shortfall := limit - len(collected)
		if shortfall <= 0 {
			break
		}

		batch, err := producer.Produce(ctx, q, filter, shortfall, seen)
		if err != nil {
			logger.Warn("检索层执行失败，继续降级",
				zap.String("tier", producer.Name()),
				zap.Error(err))
			metrics.SearchesTotal.WithLabelValues(producer.Name(), "error").Inc()
			continue
		}

		added := 0
		for _, sp := range batch {
			if _, ok := seen[sp.ID]; ok {
				continue
			}
			seen[sp.ID] = struct{}{}
			collected = append(collected, sp)
			added++
		}
		metrics.SearchesTotal.WithLabelValues(producer.Name(), "ok").Inc()
		if added > 0 {
			logger.Debug("检索层产出候选",
				zap.String("tier", producer.Name()),
				zap.Int("added", added))
		}
	}

	results := rankResults(collected, limit)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchResults.Observe(float64(len(results)))
	return results
}

// Index 批量索引商品：写内存索引，并分块同步到向量库。
// 向量化失败只影响向量层，内存索引仍然更新。
func (s *Service) Index(ctx context.Context, products []models.Product) error {
	valid := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.ID == 0 {
			logger.Warn("跳过缺少主键的商品索引请求", zap.String("name", p.Name))
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return nil
	}

	texts := make([]string, len(valid))
	for i := range valid {
		texts[i] = BuildDocument(&valid[i])
	}

	var embeddings [][]float32
	if s.embedder != nil {
		var err error
		embeddings, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			logger.Warn("批量向量化失败，仅更新内存索引", zap.Error(err))
			embeddings = nil
		} else if len(embeddings) != len(valid) {
			logger.Warn("向量化结果数量不匹配，仅更新内存索引",
				zap.Int("expected", len(valid)),
				zap.Int("got", len(embeddings)))
			embeddings = nil
		}
	}

	entries := make([]*Entry, len(valid))
	for i := range valid {
		var embedding []float32
		if embeddings != nil {
			embedding = embeddings[i]
		}
		entry := NewEntry(valid[i], embedding)
		entries[i] = entry
		s.index.Upsert(entry)
	}
	metrics.IndexedProducts.Set(float64(s.index.Len()))

	if s.store == nil || embeddings == nil {
		return nil
	}

	items := make([]VectorItem, 0, len(entries))
	for i, entry := range entries {
		items = append(items, VectorItem{
			ID:        entry.Product.ID,
			Document:  texts[i],
			Metadata:  buildMetadata(&entry.Product),
			Embedding: entry.Embedding,
		})
	}

	var errs error
	for offset := 0; offset < len(items); offset += s.syncBatch {
		end := offset + s.syncBatch
		if end > len(items) {
			end = len(items)
		}
		chunk := items[offset:end]
		if err := s.store.Upsert(ctx, chunk); err != nil {
			logger.Warn("向量库分块同步失败，跳过该块",
				zap.Int("offset", offset),
				zap.Int("size", len(chunk)),
				zap.Error(err))
			errs = errors.Join(errs, fmt.Errorf("同步分块 [%d:%d] 失败: %w", offset, end, err))
		}
	}
	return errs
}

// Remove 从内存索引和向量库移除商品
func (s *Service) Remove(ctx context.Context, id uint) {
	s.index.Delete(id)
	metrics.IndexedProducts.Set(float64(s.index.Len()))
	if s.store != nil {
		if err := s.store.Delete(ctx, []uint{id}); err != nil {
			logger.Warn("向量库删除失败", zap.Uint("product_id", id), zap.Error(err))
		}
	}
}

// Stats 返回检索子系统概况
func (s *Service) Stats(ctx context.Context) map[string]any {
	total := int64(s.index.Len())
	if s.repo != nil {
		if count, err := s.repo.Count(ctx); err == nil {
			total = count
		}
	}

	tiers := make([]string, 0, len(s.producers))
	for _, p := range s.producers {
		tiers = append(tiers, p.Name())
	}

	return map[string]any{
		"total_products": total,
		"indexed":        s.index.Len(),
		"tiers_enabled":  tiers,
	}
}

// buildMetadata 组装与向量条目同存的扁平元数据，供召回重建使用
func buildMetadata(p *models.Product) map[string]any {
	return map[string]any{
		"product_id":     float64(p.ID),
		"name":           p.Name,
		"category":       p.Category,
		"price":          p.Price,
		"brand":          p.Brand,
		"color":          p.Color,
		"size":           p.Size,
		"stock_quantity": float64(p.StockQuantity),
	}
}

package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

func TestVectorProducerAuthoritativeMerge(t *testing.T) {
	store := &fakeStore{candies: []Candidate{
		{ID: 2, Distance: 0.1},
		{ID: 1, Distance: 0.3},
		{ID: 3, Distance: 0.5},
	}}
	repo := &fakeRepo{products: []models.Product{
		{ID: 1, Name: "A", IsActive: true},
		{ID: 2, Name: "B", IsActive: true},
		{ID: 3, Name: "C", IsActive: true},
	}}
	p := &vectorProducer{store: store, repo: repo, multiplier: 3, floor: 24}

	q := &Query{Text: "shirt", Embedding: []float32{1, 0}}
	results, err := p.Produce(context.Background(), q, &Filter{}, 10, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("召回失败: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("结果数不符: %d", len(results))
	}
	// 关系库返回顺序无关，结果必须恢复召回顺序
	if results[0].ID != 2 || results[1].ID != 1 || results[2].ID != 3 {
		t.Fatalf("召回顺序未恢复: %d %d %d", results[0].ID, results[1].ID, results[2].ID)
	}
	// 距离转相似度
	if math.Abs(*results[0].SimilarityScore-0.9) > 1e-9 {
		t.Fatalf("相似度换算错误: %v", *results[0].SimilarityScore)
	}
}

func TestVectorProducerDropsRowsMissingFromDB(t *testing.T) {
	store := &fakeStore{candies: []Candidate{
		{ID: 1, Distance: 0.1},
		{ID: 7, Distance: 0.2}, // 向量库有但关系库已删除
	}}
	repo := &fakeRepo{products: []models.Product{{ID: 1, Name: "A", IsActive: true}}}
	p := &vectorProducer{store: store, repo: repo, multiplier: 3, floor: 24}

	q := &Query{Text: "shirt", Embedding: []float32{1, 0}}
	results, err := p.Produce(context.Background(), q, &Filter{}, 10, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("召回失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("权威行缺失的候选应被丢弃: %v", results)
	}
}

func TestVectorProducerMetadataFallback(t *testing.T) {
	store := &fakeStore{candies: []Candidate{
		{ID: 5, Distance: 0.2, Metadata: map[string]any{
			"name": "Recovered Dress", "category": "dresses", "price": 155.0,
		}},
	}}
	repo := &fakeRepo{findErr: errors.New("db down")}
	p := &vectorProducer{store: store, repo: repo, multiplier: 3, floor: 24}

	q := &Query{Text: "dress", Embedding: []float32{1, 0}}
	results, err := p.Produce(context.Background(), q, &Filter{}, 10, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("元数据降级不应报错: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("应从元数据重建结果: %v", results)
	}
	if results[0].Name != "Recovered Dress" || results[0].Price != 155.0 {
		t.Fatalf("重建字段不符: %+v", results[0].Product)
	}
}

func TestVectorProducerMetadataFallbackAppliesFilter(t *testing.T) {
	store := &fakeStore{candies: []Candidate{
		{ID: 5, Distance: 0.2, Metadata: map[string]any{"name": "Dress", "category": "dresses", "price": 155.0}},
		{ID: 6, Distance: 0.3, Metadata: map[string]any{"name": "Shirt", "category": "shirts", "price": 89.99}},
	}}
	p := &vectorProducer{store: store, repo: nil, multiplier: 3, floor: 24}

	q := &Query{Text: "clothes", Embedding: []float32{1, 0}}
	results, err := p.Produce(context.Background(), q, &Filter{Category: "shirts"}, 10, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("召回失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != 6 {
		t.Fatalf("元数据重建也要套用筛选: %v", results)
	}
}

func TestVectorProducerSkipsWithoutEmbedding(t *testing.T) {
	p := &vectorProducer{store: &fakeStore{}, multiplier: 3, floor: 24}

	results, err := p.Produce(context.Background(), &Query{Text: "shirt"}, &Filter{}, 10, map[uint]struct{}{})
	if err != nil || results != nil {
		t.Fatalf("无查询向量时该层应静默跳过: %v %v", results, err)
	}
}

func TestVectorProducerExcludesSeen(t *testing.T) {
	store := &fakeStore{candies: []Candidate{
		{ID: 1, Distance: 0.1},
		{ID: 2, Distance: 0.2},
	}}
	repo := &fakeRepo{products: []models.Product{
		{ID: 1, Name: "A", IsActive: true},
		{ID: 2, Name: "B", IsActive: true},
	}}
	p := &vectorProducer{store: store, repo: repo, multiplier: 3, floor: 24}

	q := &Query{Text: "shirt", Embedding: []float32{1, 0}}
	results, err := p.Produce(context.Background(), q, &Filter{}, 10, map[uint]struct{}{1: {}})
	if err != nil {
		t.Fatalf("召回失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != 2 {
		t.Fatalf("已见 id 未排除: %v", results)
	}
}

func TestBackfillProducerUnscored(t *testing.T) {
	repo := &fakeRepo{textHits: []models.Product{
		{ID: 1, Name: "Hit One", IsActive: true},
		{ID: 2, Name: "Hit Two", IsActive: true},
	}}
	p := &backfillProducer{repo: repo}

	results, err := p.Produce(context.Background(), &Query{Text: "hit"}, &Filter{}, 5, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("回填失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("结果数不符: %d", len(results))
	}
	// 关系库回填没有可比较的分数
	if results[0].SimilarityScore != nil {
		t.Fatalf("回填结果不应带分数: %v", *results[0].SimilarityScore)
	}
}

func TestBackfillProducerExcludesSeen(t *testing.T) {
	repo := &fakeRepo{textHits: []models.Product{
		{ID: 1, Name: "Seen", IsActive: true},
		{ID: 2, Name: "Fresh", IsActive: true},
	}}
	p := &backfillProducer{repo: repo}

	results, err := p.Produce(context.Background(), &Query{Text: "hit"}, &Filter{}, 5, map[uint]struct{}{1: {}})
	if err != nil {
		t.Fatalf("回填失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != 2 {
		t.Fatalf("已见 id 未排除: %v", results)
	}
}

func TestMemoryProducerPicksBestBeforeTruncating(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(NewEntry(models.Product{ID: 1, Name: "White Shirt", Category: "shirts", Color: "white", IsActive: true}, nil))
	ix.Upsert(NewEntry(models.Product{ID: 2, Name: "White Shirt Deluxe", Category: "shirts", Color: "white", IsActive: true}, nil))
	ix.Upsert(NewEntry(models.Product{ID: 3, Name: "Garden Hose", Category: "outdoor", IsActive: true}, nil))

	p := &memoryScanProducer{index: ix, scorer: LexicalScorer{}, lexicalFloor: MinScoreLexicalFallback}

	results, err := p.Produce(context.Background(), &Query{Text: "white shirt"}, &Filter{}, 1, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("结果未裁剪到缺口: %d", len(results))
	}
	if results[0].ID == 3 {
		t.Fatal("裁剪应保留高分候选")
	}
}

func TestMemoryProducerLexicalFloor(t *testing.T) {
	// "abcdef" 对 "zzzzaz" 只有一个公共字符，序列比率 2/12≈0.167，
	// 落在 MinScore 和 MinScoreLexicalFallback 之间
	ix := NewIndex()
	ix.Upsert(NewEntry(models.Product{ID: 1, Name: "zzzzaz", IsActive: true}, nil))

	q := &Query{Text: "abcdef"}

	strict := &memoryScanProducer{index: ix, scorer: LexicalScorer{}, lexicalFloor: MinScoreLexicalFallback}
	results, err := strict.Produce(context.Background(), q, &Filter{}, 10, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("兜底阈值应淘汰弱相关候选: %v", results)
	}

	loose := &memoryScanProducer{index: ix, scorer: LexicalScorer{}, lexicalFloor: MinScore}
	results, err = loose.Produce(context.Background(), q, &Filter{}, 10, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("纯词法阈值应收录弱相关候选: %v", results)
	}
}

func TestMemoryProducerCosineThreshold(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(NewEntry(models.Product{ID: 1, Name: "Near"}, []float32{1, 0}))
	ix.Upsert(NewEntry(models.Product{ID: 2, Name: "Far"}, []float32{0, 1}))

	p := &memoryScanProducer{index: ix, scorer: LexicalScorer{}, lexicalFloor: MinScoreLexicalFallback}

	q := &Query{Text: "anything", Embedding: []float32{1, 0}}
	results, err := p.Produce(context.Background(), q, &Filter{}, 10, map[uint]struct{}{})
	if err != nil {
		t.Fatalf("扫描失败: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("余弦阈值应淘汰正交向量: %v", results)
	}
	if *results[0].SimilarityScore < 0.99 {
		t.Fatalf("同向向量相似度应接近 1: %v", *results[0].SimilarityScore)
	}
}

package search

import (
	"sort"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

// ScoredProduct 检索结果：商品字段加相似度分与最终名次。
// SimilarityScore 为 nil 表示来源层没有可比较的分数（如关系库回填）。
// RelevanceRank 只在最终排序裁剪后赋值，1 起始。
type ScoredProduct struct {
	models.Product
	SimilarityScore *float64 `json:"similarity_score"`
	RelevanceRank   int      `json:"relevance_rank"`
}

// NewScoredProduct 构造带分数的结果
func NewScoredProduct(p models.Product, score float64) *ScoredProduct {
	return &ScoredProduct{Product: p, SimilarityScore: &score}
}

// NewUnscoredProduct 构造无分数的结果
func NewUnscoredProduct(p models.Product) *ScoredProduct {
	return &ScoredProduct{Product: p}
}

// scoreOrZero 缺失的分数按 0 参与排序
func (r *ScoredProduct) scoreOrZero() float64 {
	if r.SimilarityScore == nil {
		return 0
	}
	return *r.SimilarityScore
}

// rankResults 合并后的最终排序：按分数降序（nil 视为 0），裁剪到 limit，
// 然后按位置赋名次。排序只看分数，不看来源层——后层的高词法分
// 可以排在前层的低向量分之前，这是有意为之。
func rankResults(results []*ScoredProduct, limit int) []*ScoredProduct {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].scoreOrZero() > results[j].scoreOrZero()
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i, r := range results {
		r.RelevanceRank = i + 1
	}
	return results
}

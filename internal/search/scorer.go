package search

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// 打分相关常量。阈值和加成都是经验值，来自线上调参，无推导公式。
const (
	// SubstringBase 查询是文本子串时的基础分
	SubstringBase = 0.8

	// 关键词重合加成权重
	keywordBonusWeight = 0.3

	// 字段精确命中加成
	categoryBonus = 0.4
	brandBonus    = 0.3
	colorBonus    = 0.2
	nameBonus     = 0.5

	// MinScore 纯词法检索的最低收录分
	MinScore = 0.1
	// MinScoreLexicalFallback 内存兜底层使用词法打分时的收录阈值
	MinScoreLexicalFallback = 0.2
	// MinScoreCosineFallback 内存兜底层使用余弦相似度时的收录阈值。
	// 归一化向量的余弦相似度比词法启发式更严格、标定更好，阈值相应更高。
	MinScoreCosineFallback = 0.3
)

// LexicalScorer 词法相似度打分器，输出范围 [0,1]
type LexicalScorer struct{}

// Score 计算查询与索引条目的词法相似度。
// 基础分：子串直达 0.8，否则用序列匹配比率；短查询对长文档天然吃亏，
// 额外补偿；再叠加关键词重合与字段精确命中加成，最后收敛到 1.0。
func (LexicalScorer) Score(query string, entry *Entry) float64 {
	q := strings.ToLower(query)
	if q == "" {
		return 0
	}

	var base float64
	if strings.Contains(entry.Text, q) {
		base = SubstringBase
	} else {
		base = sequenceRatio(q, entry.Text)

		if len(q) <= 3 && base < 0.3 {
			base += 0.25
		} else if len(q) <= 5 && base < 0.4 {
			base += 0.15
		}
	}

	// 关键词重合加成
	queryWords := wordPattern.FindAllString(q, -1)
	matched := 0
	seen := make(map[string]struct{}, len(queryWords))
	uniqueWords := 0
	for _, w := range queryWords {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		uniqueWords++
		if _, ok := entry.Keywords[w]; ok {
			matched++
		}
	}
	divisor := uniqueWords
	if divisor < 1 {
		divisor = 1
	}
	keywordBonus := float64(matched) / float64(divisor) * keywordBonusWeight

	// 字段精确命中加成，各项独立可叠加
	var exactBonus float64
	p := &entry.Product
	if p.Category != "" && strings.Contains(strings.ToLower(p.Category), q) {
		exactBonus += categoryBonus
	}
	if p.Brand != "" && strings.Contains(strings.ToLower(p.Brand), q) {
		exactBonus += brandBonus
	}
	if p.Color != "" && strings.Contains(strings.ToLower(p.Color), q) {
		exactBonus += colorBonus
	}
	if p.Name != "" && strings.Contains(strings.ToLower(p.Name), q) {
		exactBonus += nameBonus
	}

	return math.Min(base+keywordBonus+exactBonus, 1.0)
}

// sequenceRatio 基于最长匹配块的序列相似度，等价于 difflib 的 ratio
func sequenceRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// CosineSimilarity 计算两个向量的余弦相似度，维度不一致或零向量返回 0
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeL2 原地把向量归一化到单位长度，零向量保持不变
func NormalizeL2(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// DistanceToSimilarity 把余弦距离转换为相似度。
// 假设距离落在 [0,2]，浮点误差或非余弦度量导致的负值收敛到 0。
func DistanceToSimilarity(distance float64) float64 {
	return math.Max(0, 1-distance)
}

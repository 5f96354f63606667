package search

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

var wordPattern = regexp.MustCompile(`\w+`)

// stopWords 提取关键词时剔除的冠词、连词和常见动词
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// BuildDocument 把商品拼接成可检索文本，字段顺序固定：
// name, description, category, brand, color, size, tags。
// 该文本同时用于词法打分和向量化。
func BuildDocument(p *models.Product) string {
	parts := make([]string, 0, 8)

	appendPart := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	appendPart(p.Name)
	appendPart(p.Description)
	appendPart(p.Category)
	appendPart(p.Brand)
	appendPart(p.Color)
	appendPart(p.Size)
	parts = append(parts, TagValues(p.Tags)...)

	return strings.Join(parts, " ")
}

// TagValues 把 tags 字段展开为字符串列表。
// 数组逐个展开，对象取值拼接，其余类型原样字符串化。
func TagValues(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return []string{string(raw)}
	}

	switch v := decoded.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		// 按键名排序遍历：同一份 tags 必须产出同一份文档文本，
		// 否则重新索引会生成不同的向量
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(v))
		for _, k := range keys {
			if s := stringify(v[k]); s != "" {
				out = append(out, s)
			}
		}
		return out
	case nil:
		return nil
	default:
		if s := stringify(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ExtractKeywords 从文本提取关键词集合：小写、按词边界切分、
// 去停用词、丢弃长度 ≤2 的词、去重。
func ExtractKeywords(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	keywords := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords[w] = struct{}{}
	}
	return keywords
}

// QueryTokens 把查询切分为有序去重的关键词列表，供关系库回填检索使用。
// 提取不到关键词时退化为整个查询串。
func QueryTokens(query string) []string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	if len(tokens) == 0 {
		if q := strings.TrimSpace(strings.ToLower(query)); q != "" {
			tokens = append(tokens, q)
		}
	}
	return tokens
}

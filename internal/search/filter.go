package search

import (
	"strings"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

// Filter 结构化筛选条件。零值字段表示该维度不限制。
// 文本维度为大小写不敏感的子串匹配，容忍用户只输入一部分；
// 价格为闭区间边界。min > max 时不报错，结果自然为空。
type Filter struct {
	Category string   `json:"category,omitempty"`
	Color    string   `json:"color,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	Size     string   `json:"size,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
}

// IsZero 是否没有任何有效条件
func (f *Filter) IsZero() bool {
	if f == nil {
		return true
	}
	return f.Category == "" && f.Color == "" && f.Brand == "" &&
		f.Size == "" && f.MinPrice == nil && f.MaxPrice == nil
}

// Matches 判断商品是否满足全部条件。条件之间为与关系，
// 商品缺失被筛选的字段视为不匹配（宁可漏掉，不可放过）。
func (f *Filter) Matches(p *models.Product) bool {
	if f.IsZero() {
		return true
	}
	if p == nil {
		return false
	}

	if !fieldContains(p.Category, f.Category) {
		return false
	}
	if !fieldContains(p.Color, f.Color) {
		return false
	}
	if !fieldContains(p.Brand, f.Brand) {
		return false
	}
	if !fieldContains(p.Size, f.Size) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}

	return true
}

// fieldContains 大小写不敏感的子串判断。want 为空表示不限制；
// 有限制但商品字段为空时判为不匹配。
func fieldContains(have, want string) bool {
	if want == "" {
		return true
	}
	if have == "" {
		return false
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(want))
}

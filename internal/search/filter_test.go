package search

import (
	"testing"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestFilterIsZero(t *testing.T) {
	var nilFilter *Filter
	if !nilFilter.IsZero() {
		t.Fatal("nil 筛选应视为无条件")
	}
	if !(&Filter{}).IsZero() {
		t.Fatal("空筛选应视为无条件")
	}
	if (&Filter{Category: "shirts"}).IsZero() {
		t.Fatal("带条件的筛选不应为零值")
	}
}

func TestFilterMatchesSubstringCaseInsensitive(t *testing.T) {
	p := whiteShirt()

	f := &Filter{Category: "SHIRT"}
	if !f.Matches(&p) {
		t.Fatal("类目子串匹配应大小写不敏感")
	}

	f = &Filter{Brand: "style"}
	if !f.Matches(&p) {
		t.Fatal("品牌子串匹配失败")
	}

	f = &Filter{Color: "black"}
	if f.Matches(&p) {
		t.Fatal("颜色不匹配的商品不应通过")
	}
}

func TestFilterPriceBoundsInclusive(t *testing.T) {
	p := whiteShirt() // 89.99

	if !(&Filter{MinPrice: ptr(89.99), MaxPrice: ptr(89.99)}).Matches(&p) {
		t.Fatal("价格区间边界应为闭区间")
	}
	if (&Filter{MaxPrice: ptr(50)}).Matches(&p) {
		t.Fatal("超出上限的价格不应通过")
	}
	if (&Filter{MinPrice: ptr(100)}).Matches(&p) {
		t.Fatal("低于下限的价格不应通过")
	}
}

func TestFilterInvertedPriceRange(t *testing.T) {
	p := whiteShirt()

	// min > max 不报错，结果自然为空
	f := &Filter{MinPrice: ptr(200), MaxPrice: ptr(100)}
	if f.Matches(&p) {
		t.Fatal("倒置价格区间不应匹配任何商品")
	}
}

func TestFilterMissingFieldFailsClosed(t *testing.T) {
	p := models.Product{ID: 3, Name: "Mystery Item", Price: 10}

	// 商品缺失被筛选的字段时判为不匹配
	if (&Filter{Color: "red"}).Matches(&p) {
		t.Fatal("缺失颜色字段的商品不应通过颜色筛选")
	}
}

func TestFilterNilProduct(t *testing.T) {
	if (&Filter{Category: "shirts"}).Matches(nil) {
		t.Fatal("nil 商品不应通过有条件的筛选")
	}
	if !(&Filter{}).Matches(nil) {
		t.Fatal("无条件筛选应放行任何输入")
	}
}

package ai

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExtractJSONPlainObject(t *testing.T) {
	raw := extractJSON(`{"intent": "general", "confidence": 0.9}`)
	if raw == nil {
		t.Fatal("合法 JSON 对象未被抽取")
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("抽取结果不可解析: %v", err)
	}
	if parsed["intent"] != "general" {
		t.Fatalf("抽取内容不符: %v", parsed)
	}
}

func TestExtractJSONCodeFence(t *testing.T) {
	text := "```json\n{\"intent\": \"product_search\", \"confidence\": 0.8}\n```"
	raw := extractJSON(text)
	if raw == nil {
		t.Fatal("围栏内的 JSON 未被抽取")
	}
	if !json.Valid(raw) {
		t.Fatalf("抽取结果非法: %s", raw)
	}
}

func TestExtractJSONTrailingComma(t *testing.T) {
	raw := extractJSON(`{"intent": "general", "confidence": 0.5,}`)
	if raw == nil {
		t.Fatal("尾随逗号应被修复")
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("修复后仍不可解析: %v", err)
	}
}

func TestExtractJSONNestedObject(t *testing.T) {
	// 嵌套对象走整段兜底解析
	text := `{"intent": "product_search", "confidence": 0.9, "extracted_info": {"keywords": ["dress"]}}`
	raw := extractJSON(text)
	if raw == nil {
		t.Fatal("嵌套 JSON 未被抽取")
	}
	var parsed rawClassification
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("嵌套结果不可解析: %v", err)
	}
	if parsed.Intent != "product_search" {
		t.Fatalf("抽取内容不符: %+v", parsed)
	}
}

func TestExtractJSONGarbage(t *testing.T) {
	if raw := extractJSON("sorry, I cannot help with that"); raw != nil {
		t.Fatalf("无 JSON 文本应返回 nil: %s", raw)
	}
	if raw := extractJSON(""); raw != nil {
		t.Fatal("空输入应返回 nil")
	}
}

func TestStripCodeFence(t *testing.T) {
	if got := stripCodeFence("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("围栏未剥除: %q", got)
	}
	if got := stripCodeFence("```\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("无语言标记的围栏未剥除: %q", got)
	}
	if got := stripCodeFence(`{"a":1}`); got != `{"a":1}` {
		t.Fatalf("无围栏文本应原样返回: %q", got)
	}
}

func TestParseClassification(t *testing.T) {
	content := `{
		"intent": "product_search",
		"confidence": 0.92,
		"extracted_info": {
			"keywords": ["summer", "dress"],
			"category": "dresses",
			"color": "color_if_mentioned",
			"price_range": "under $200",
			"order_number": "none"
		}
	}`
	got := parseClassification(content)
	if got == nil {
		t.Fatal("合法分类输出解析失败")
	}
	if got.Intent != IntentProductSearch || got.Confidence != 0.92 {
		t.Fatalf("意图或置信度不符: %+v", got)
	}
	if !reflect.DeepEqual(got.Keywords, []string{"summer", "dress"}) {
		t.Fatalf("关键词不符: %v", got.Keywords)
	}
	if got.Category != "dresses" {
		t.Fatalf("类目不符: %q", got.Category)
	}
	// 模型占位符应被清洗为空
	if got.Color != "" || got.OrderNumber != "" {
		t.Fatalf("占位符未过滤: color=%q order=%q", got.Color, got.OrderNumber)
	}
	if got.PriceRange != "under $200" {
		t.Fatalf("价格区间不符: %q", got.PriceRange)
	}
}

func TestParseClassificationInvalidIntent(t *testing.T) {
	if got := parseClassification(`{"intent": "world_domination", "confidence": 1}`); got != nil {
		t.Fatalf("非法意图值应判定解析失败: %+v", got)
	}
	if got := parseClassification("not json at all"); got != nil {
		t.Fatalf("非 JSON 输出应判定解析失败: %+v", got)
	}
}

func TestFallbackClassifyOrder(t *testing.T) {
	got := FallbackClassify("Where is my order? I want to track the shipping")
	if got.Intent != IntentOrderInquiry {
		t.Fatalf("订单关键词应命中 order_inquiry: %+v", got)
	}
	if len(got.Keywords) == 0 {
		t.Fatal("命中的关键词应回填")
	}
}

func TestFallbackClassifyProduct(t *testing.T) {
	got := FallbackClassify("I'm looking for a red dress")
	if got.Intent != IntentProductSearch {
		t.Fatalf("商品关键词应命中 product_search: %+v", got)
	}
}

func TestFallbackClassifyOrderBeatsProduct(t *testing.T) {
	// 同时含两类关键词时订单优先
	got := FallbackClassify("I want to return the shirt I bought")
	if got.Intent != IntentOrderInquiry {
		t.Fatalf("订单意图应优先: %+v", got)
	}
}

func TestFallbackClassifyGeneral(t *testing.T) {
	got := FallbackClassify("hello there")
	if got.Intent != IntentGeneral {
		t.Fatalf("无关键词应落到 general: %+v", got)
	}
	if got.Confidence != 0.5 {
		t.Fatalf("general 兜底置信度不符: %v", got.Confidence)
	}
}

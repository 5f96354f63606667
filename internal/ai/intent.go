package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"

	"go.uber.org/zap"
)

// Intent 消息意图
type Intent string

const (
	IntentProductSearch Intent = "product_search"
	IntentOrderInquiry  Intent = "order_inquiry"
	IntentGeneral       Intent = "general"
)

// Classification 意图分类结果，附带从消息中抽取的槽位
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`

	Keywords    []string `json:"keywords"`
	Category    string   `json:"category"`
	Color       string   `json:"color"`
	PriceRange  string   `json:"price_range"`
	OrderNumber string   `json:"order_number"`
}

const intentPromptTemplate = `You are an AI assistant for a fashion e-commerce platform. Analyze the user's message and classify the intent.

Available intents:
1. "product_search" - User is looking for products (clothes, shoes, accessories)
2. "order_inquiry" - User asking about their orders, order status, tracking
3. "general" - General questions, greetings, or other topics

User message: "%s"

Respond with JSON in this exact format:
{
    "intent": "product_search|order_inquiry|general",
    "confidence": 0.0-1.0,
    "extracted_info": {
        "keywords": ["keyword1", "keyword2"],
        "category": "category_if_applicable",
        "color": "color_if_mentioned",
        "price_range": "price_if_mentioned",
        "order_number": "order_number_if_mentioned"
    }
}`

// ClassifyIntent 用 LLM 分类消息意图。模型不可用或输出无法解析时
// 退回规则分类，该方法不返回错误。
func (c *Client) ClassifyIntent(ctx context.Context, message string) *Classification {
	prompt := fmt.Sprintf(intentPromptTemplate, message)

	content, err := c.complete(ctx, c.intentModel, "intent", prompt, 300)
	if err != nil {
		logger.Warn("意图分类调用失败，使用规则分类", zap.Error(err))
		return FallbackClassify(message)
	}

	parsed := parseClassification(content)
	if parsed == nil {
		logger.Debug("LLM 输出无法解析为意图 JSON，使用规则分类",
			zap.String("content", content))
		return FallbackClassify(message)
	}
	return parsed
}

// rawClassification LLM 输出的原始结构
type rawClassification struct {
	Intent        string         `json:"intent"`
	Confidence    float64        `json:"confidence"`
	ExtractedInfo map[string]any `json:"extracted_info"`
}

// parseClassification 解析 LLM 输出，非法意图值返回 nil
func parseClassification(content string) *Classification {
	obj := extractJSON(content)
	if obj == nil {
		return nil
	}

	var raw rawClassification
	if err := json.Unmarshal(obj, &raw); err != nil {
		return nil
	}

	intent := Intent(raw.Intent)
	switch intent {
	case IntentProductSearch, IntentOrderInquiry, IntentGeneral:
	default:
		return nil
	}

	result := &Classification{
		Intent:     intent,
		Confidence: raw.Confidence,
	}
	if info := raw.ExtractedInfo; info != nil {
		if kws, ok := info["keywords"].([]any); ok {
			for _, kw := range kws {
				if s, ok := kw.(string); ok && s != "" {
					result.Keywords = append(result.Keywords, s)
				}
			}
		}
		result.Category = infoString(info, "category")
		result.Color = infoString(info, "color")
		result.PriceRange = infoString(info, "price_range")
		result.OrderNumber = infoString(info, "order_number")
	}
	return result
}

func infoString(info map[string]any, key string) string {
	s, _ := info[key].(string)
	// 模型常用占位符表达"未提及"
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "not_mentioned", "category_if_applicable",
		"color_if_mentioned", "price_if_mentioned", "order_number_if_mentioned":
		return ""
	}
	return s
}

var (
	orderKeywords   = []string{"order", "track", "shipping", "delivery", "status", "cancel", "return"}
	productKeywords = []string{"shirt", "dress", "shoes", "jacket", "jeans", "top", "pants", "buy", "find", "looking for"}
)

// FallbackClassify 规则意图分类，作为 LLM 不可用时的兜底
func FallbackClassify(message string) *Classification {
	lower := strings.ToLower(message)

	if matched := containedKeywords(lower, orderKeywords); len(matched) > 0 {
		return &Classification{
			Intent:     IntentOrderInquiry,
			Confidence: 0.7,
			Keywords:   matched,
		}
	}
	if matched := containedKeywords(lower, productKeywords); len(matched) > 0 {
		return &Classification{
			Intent:     IntentProductSearch,
			Confidence: 0.7,
			Keywords:   matched,
		}
	}
	return &Classification{
		Intent:     IntentGeneral,
		Confidence: 0.5,
	}
}

func containedKeywords(lower string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

var (
	fencedPattern        = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```$")
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{.*?\}`)
	greedyObjectPattern  = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaObject  = regexp.MustCompile(`,\s*}`)
	trailingCommaArray   = regexp.MustCompile(`,\s*]`)
)

// stripCodeFence 去掉 ```json ... ``` 这类围栏，返回内部内容
func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return t
	}
	if m := fencedPattern.FindStringSubmatch(t); m != nil {
		return m[1]
	}
	if strings.HasPrefix(t, "```") && strings.HasSuffix(t, "```") {
		return strings.TrimSpace(t[3 : len(t)-3])
	}
	t = strings.ReplaceAll(t, "```json", "")
	return strings.ReplaceAll(t, "```", "")
}

// extractJSON 从 LLM 输出中尽力抽取一个 JSON 对象。
// 先剥代码围栏，再按非贪婪/贪婪两种方式找花括号块，
// 解析失败时清理尾随逗号重试。找不到返回 nil。
func extractJSON(text string) json.RawMessage {
	if text == "" {
		return nil
	}
	stripped := stripCodeFence(text)

	candidates := jsonObjectPattern.FindAllString(stripped, -1)
	if len(candidates) == 0 {
		if greedy := greedyObjectPattern.FindString(stripped); greedy != "" {
			candidates = append(candidates, greedy)
		}
	}

	for _, candidate := range candidates {
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate)
		}
		cleaned := trailingCommaObject.ReplaceAllString(candidate, "}")
		cleaned = trailingCommaArray.ReplaceAllString(cleaned, "]")
		if json.Valid([]byte(cleaned)) {
			return json.RawMessage(cleaned)
		}
	}

	trimmed := strings.TrimSpace(stripped)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return nil
}

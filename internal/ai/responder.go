package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"

	"go.uber.org/zap"
)

// 模型不可用时的兜底话术
const (
	fallbackResponse      = "I'm here to help you with your fashion needs! How can I assist you today?"
	fallbackShortResponse = "I'm here to help! Let me know what you're looking for."
)

// ProductContext 用于生成回复的商品摘要
type ProductContext struct {
	Name     string
	Price    float64
	Category string
	Color    string
}

// OrderContext 用于生成回复的订单摘要
type OrderContext struct {
	OrderNumber string
	Status      string
	TotalAmount float64
}

// ResponseContext 回复生成所需的业务上下文
type ResponseContext struct {
	Products []ProductContext
	Orders   []OrderContext
}

// GenerateResponse 按意图生成回复。LLM 调用失败时返回兜底话术，
// 该方法不返回错误。
func (c *Client) GenerateResponse(ctx context.Context, intent Intent, message string, rc *ResponseContext) string {
	if rc == nil {
		rc = &ResponseContext{}
	}

	var prompt string
	switch intent {
	case IntentProductSearch:
		prompt = productPrompt(message, rc.Products)
	case IntentOrderInquiry:
		prompt = orderPrompt(message, rc.Orders)
	default:
		prompt = generalPrompt(message)
	}

	content, err := c.complete(ctx, c.chatModel, "chat", prompt, 150)
	if err != nil {
		logger.Warn("回复生成调用失败，使用兜底话术", zap.Error(err))
		return fallbackShortResponse
	}

	reply := strings.TrimSpace(stripCodeFence(content))
	if reply == "" {
		return fallbackResponse
	}
	return reply
}

func productPrompt(message string, products []ProductContext) string {
	if len(products) == 0 {
		return fmt.Sprintf(`The user searched for products but no matches were found.
User message: "%s"

Generate a helpful response suggesting:
1. Alternative search terms
2. Popular categories we have
3. Encouraging them to browse our collection

Keep it friendly and helpful, under 100 words.`, message)
	}

	if len(products) > 3 {
		products = products[:3]
	}
	var summaries []string
	for _, p := range products {
		color := p.Color
		if color == "" {
			color = "N/A"
		}
		summaries = append(summaries, fmt.Sprintf("• %s - $%.2f (%s, %s)", p.Name, p.Price, p.Category, color))
	}

	return fmt.Sprintf(`User searched for: "%s"

Found products:
%s

Generate a helpful response that:
1. Confirms we found great matches
2. Briefly highlights the products
3. Asks if they need more details or have preferences

Keep it conversational and under 100 words.`, message, strings.Join(summaries, "\n"))
}

func orderPrompt(message string, orders []OrderContext) string {
	if len(orders) == 0 {
		return fmt.Sprintf(`User is asking about orders but we couldn't find any orders for them.
User message: "%s"

Generate a helpful response that:
1. Explains we couldn't find orders
2. Suggests they check their email or order number
3. Offers to help them place a new order

Keep it helpful and under 75 words.`, message)
	}

	if len(orders) > 2 {
		orders = orders[:2]
	}
	var summaries []string
	for _, o := range orders {
		summaries = append(summaries, fmt.Sprintf("• Order #%s - %s ($%.2f)", o.OrderNumber, o.Status, o.TotalAmount))
	}

	return fmt.Sprintf(`User asked: "%s"

Their recent orders:
%s

Generate a helpful response about their order status.
Keep it clear and under 75 words.`, message, strings.Join(summaries, "\n"))
}

func generalPrompt(message string) string {
	return fmt.Sprintf(`User said: "%s"

You are a helpful fashion e-commerce assistant. Generate a friendly response that:
1. Addresses their message appropriately
2. Offers to help with shopping or orders
3. Keeps the conversation engaging

Keep it under 75 words and conversational.`, message)
}

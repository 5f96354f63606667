package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Surya-Chinnathambi/FashionChat/internal/ai"
	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/metrics"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxResponseProducts = 5
	maxInquiryOrders    = 5
	errorResponse       = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment."
)

// IntentClassifier 消息意图分类能力
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, message string) *ai.Classification
}

// ResponseGenerator 按意图生成回复的能力
type ResponseGenerator interface {
	GenerateResponse(ctx context.Context, intent ai.Intent, message string, rc *ai.ResponseContext) string
}

// Assistant 同时具备分类与回复能力，*ai.Client 满足该接口
type Assistant interface {
	IntentClassifier
	ResponseGenerator
}

// Response 一次对话的完整结果
type Response struct {
	Response  string                  `json:"response"`
	Intent    string                  `json:"intent"`
	SessionID string                  `json:"session_id"`
	Products  []*search.ScoredProduct `json:"products,omitempty"`
	Orders    []OrderSummary          `json:"orders,omitempty"`
}

// OrderSummary 订单查询意图返回的订单摘要
type OrderSummary struct {
	ID          uint      `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	ItemCount   int       `json:"item_count"`
}

// HistoryEntry 聊天历史的单条记录，user 与 assistant 交替
type HistoryEntry struct {
	Type      string    `json:"type"` // user, assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Intent    string    `json:"intent,omitempty"`
}

// Service 对话服务：会话管理、意图路由、回复生成与消息持久化
type Service struct {
	db        *gorm.DB
	assistant Assistant
	searcher  *search.Service
}

// NewService 创建对话服务
func NewService(db *gorm.DB, assistant Assistant, searcher *search.Service) *Service {
	return &Service{
		db:        db,
		assistant: assistant,
		searcher:  searcher,
	}
}

// ProcessMessage 处理一条用户消息。userID 为空表示匿名用户。
// 该方法从不返回错误：内部故障统一转为道歉话术。
func (s *Service) ProcessMessage(ctx context.Context, message, sessionID string, userID *uint) *Response {
	start := time.Now()

	session, err := s.ensureSession(ctx, sessionID, userID)
	if err != nil {
		logger.Error("获取或创建会话失败", zap.Error(err))
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		return &Response{Response: errorResponse, Intent: "error", SessionID: sessionID}
	}
	sessionID = session.SessionID

	classification := s.assistant.ClassifyIntent(ctx, message)
	logger.Info("意图分类完成",
		zap.String("session_id", sessionID),
		zap.String("intent", string(classification.Intent)),
		zap.Float64("confidence", classification.Confidence))

	var (
		responseCtx ai.ResponseContext
		products    []*search.ScoredProduct
		orders      []OrderSummary
	)

	switch {
	case classification.Intent == ai.IntentProductSearch:
		products = s.handleProductSearch(ctx, message, classification)
		for _, p := range products {
			responseCtx.Products = append(responseCtx.Products, ai.ProductContext{
				Name:     p.Name,
				Price:    p.Price,
				Category: p.Category,
				Color:    p.Color,
			})
		}
	case classification.Intent == ai.IntentOrderInquiry && userID != nil:
		orders = s.handleOrderInquiry(ctx, *userID, classification)
		for _, o := range orders {
			responseCtx.Orders = append(responseCtx.Orders, ai.OrderContext{
				OrderNumber: o.OrderNumber,
				Status:      o.Status,
				TotalAmount: o.TotalAmount,
			})
		}
	case classification.Intent == ai.IntentOrderInquiry:
		// 匿名用户查订单，让模型引导登录，不暴露任何订单数据
	}

	responseText := s.assistant.GenerateResponse(ctx, classification.Intent, message, &responseCtx)

	record := models.ChatMessage{
		SessionID: sessionID,
		Message:   message,
		Response:  responseText,
		Intent:    string(classification.Intent),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		// 持久化失败不影响本次回复
		logger.Error("保存聊天记录失败", zap.String("session_id", sessionID), zap.Error(err))
	}

	if len(products) > maxResponseProducts {
		products = products[:maxResponseProducts]
	}

	metrics.ChatMessagesTotal.WithLabelValues(string(classification.Intent)).Inc()
	metrics.ChatMessageDuration.Observe(time.Since(start).Seconds())

	return &Response{
		Response:  responseText,
		Intent:    string(classification.Intent),
		SessionID: sessionID,
		Products:  products,
		Orders:    orders,
	}
}

// GetChatHistory 按时间顺序返回会话历史，一问一答展开为两条记录
func (s *Service) GetChatHistory(ctx context.Context, sessionID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	history := make([]HistoryEntry, 0, len(messages)*2)
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		history = append(history,
			HistoryEntry{
				Type:      "user",
				Content:   msg.Message,
				Timestamp: msg.CreatedAt,
			},
			HistoryEntry{
				Type:      "assistant",
				Content:   msg.Response,
				Timestamp: msg.CreatedAt,
				Intent:    msg.Intent,
			},
		)
	}
	return history, nil
}

// ensureSession 取出或创建会话。sessionID 为空时生成新会话。
func (s *Service) ensureSession(ctx context.Context, sessionID string, userID *uint) (*models.ChatSession, error) {
	if sessionID == "" {
		session := &models.ChatSession{
			SessionID: uuid.NewString(),
			UserID:    userID,
		}
		if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
			return nil, err
		}
		return session, nil
	}

	var session models.ChatSession
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session = models.ChatSession{SessionID: sessionID, UserID: userID}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// handleProductSearch 带槽位筛选的商品检索，失败返回空结果
func (s *Service) handleProductSearch(ctx context.Context, message string, c *ai.Classification) []*search.ScoredProduct {
	filter := &search.Filter{
		Category: strings.ToLower(c.Category),
		Color:    strings.ToLower(c.Color),
	}
	if c.PriceRange != "" {
		applyPriceRange(filter, c.PriceRange)
	}

	return s.searcher.Search(ctx, message, filter, 10)
}

// handleOrderInquiry 查询用户最近订单，可按订单号模糊过滤
func (s *Service) handleOrderInquiry(ctx context.Context, userID uint, c *ai.Classification) []OrderSummary {
	query := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID)

	if c.OrderNumber != "" {
		query = query.Where("LOWER(order_number) LIKE ?", "%"+strings.ToLower(c.OrderNumber)+"%")
	}

	var orders []models.Order
	err := query.Order("created_at DESC").Limit(maxInquiryOrders).Find(&orders).Error
	if err != nil {
		logger.Error("查询订单失败", zap.Uint("user_id", userID), zap.Error(err))
		return nil
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, OrderSummary{
			ID:          order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			TotalAmount: order.TotalAmount,
			CreatedAt:   order.CreatedAt,
			ItemCount:   len(order.Items),
		})
	}
	return summaries
}

// applyPriceRange 解析 "under $100" / "over 50" 这类价格表述。
// 只抽取数字部分，解释不了的表述静默忽略。
func applyPriceRange(filter *search.Filter, priceRange string) {
	text := strings.ToLower(priceRange)

	var digits strings.Builder
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return
	}
	value, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return
	}

	switch {
	case strings.Contains(text, "under") || strings.Contains(text, "less than"):
		filter.MaxPrice = &value
	case strings.Contains(text, "over") || strings.Contains(text, "more than"):
		filter.MinPrice = &value
	}
}

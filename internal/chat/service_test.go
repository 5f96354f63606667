package chat

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/Surya-Chinnathambi/FashionChat/internal/ai"
	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stderr"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func setupChatTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// fakeAssistant 返回预置分类与固定话术
type fakeAssistant struct {
	classification *ai.Classification
	reply          string
	lastCtx        *ai.ResponseContext
}

func (f *fakeAssistant) ClassifyIntent(ctx context.Context, message string) *ai.Classification {
	if f.classification != nil {
		return f.classification
	}
	return ai.FallbackClassify(message)
}

func (f *fakeAssistant) GenerateResponse(ctx context.Context, intent ai.Intent, message string, rc *ai.ResponseContext) string {
	f.lastCtx = rc
	if f.reply != "" {
		return f.reply
	}
	return "ok"
}

func newChatService(t *testing.T, db *gorm.DB, assistant Assistant) *Service {
	t.Helper()
	searcher := search.NewService(search.Options{})
	return NewService(db, assistant, searcher)
}

func seedSearchIndex(t *testing.T, svc *Service, products ...models.Product) {
	t.Helper()
	require.NoError(t, svc.searcher.Index(context.Background(), products))
}

func TestProcessMessageCreatesSession(t *testing.T) {
	db := setupChatTestDB(t)
	svc := newChatService(t, db, &fakeAssistant{reply: "hello!"})

	resp := svc.ProcessMessage(context.Background(), "hi", "", nil)

	require.NotEmpty(t, resp.SessionID)
	require.Equal(t, "hello!", resp.Response)

	var session models.ChatSession
	require.NoError(t, db.Where("session_id = ?", resp.SessionID).First(&session).Error)
	require.Nil(t, session.UserID)
}

func TestProcessMessageReusesSession(t *testing.T) {
	db := setupChatTestDB(t)
	svc := newChatService(t, db, &fakeAssistant{})

	first := svc.ProcessMessage(context.Background(), "hi", "", nil)
	second := svc.ProcessMessage(context.Background(), "hi again", first.SessionID, nil)

	require.Equal(t, first.SessionID, second.SessionID)

	var count int64
	require.NoError(t, db.Model(&models.ChatSession{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestProcessMessagePersistsChatMessage(t *testing.T) {
	db := setupChatTestDB(t)
	assistant := &fakeAssistant{
		classification: &ai.Classification{Intent: ai.IntentGeneral, Confidence: 0.9},
		reply:          "sure thing",
	}
	svc := newChatService(t, db, assistant)

	resp := svc.ProcessMessage(context.Background(), "what are your hours", "", nil)

	var record models.ChatMessage
	require.NoError(t, db.Where("session_id = ?", resp.SessionID).First(&record).Error)
	require.Equal(t, "what are your hours", record.Message)
	require.Equal(t, "sure thing", record.Response)
	require.Equal(t, "general", record.Intent)
}

func TestProcessMessageProductSearch(t *testing.T) {
	db := setupChatTestDB(t)
	assistant := &fakeAssistant{
		classification: &ai.Classification{
			Intent:     ai.IntentProductSearch,
			Confidence: 0.95,
			Category:   "Shirts",
		},
	}
	svc := newChatService(t, db, assistant)
	seedSearchIndex(t, svc,
		models.Product{ID: 1, Name: "Classic White Shirt", Category: "shirts", Color: "white", Price: 89.99, IsActive: true},
		models.Product{ID: 2, Name: "Summer Dress", Category: "dresses", Color: "yellow", Price: 155, IsActive: true},
	)

	resp := svc.ProcessMessage(context.Background(), "show me a white shirt", "", nil)

	require.Equal(t, "product_search", resp.Intent)
	require.NotEmpty(t, resp.Products)
	for _, p := range resp.Products {
		require.Equal(t, "shirts", p.Category)
	}
	// 检索结果要进回复上下文供模型引用
	require.NotNil(t, assistant.lastCtx)
	require.NotEmpty(t, assistant.lastCtx.Products)
	require.Equal(t, "Classic White Shirt", assistant.lastCtx.Products[0].Name)
}

func TestProcessMessageAnonymousOrderInquiry(t *testing.T) {
	db := setupChatTestDB(t)
	assistant := &fakeAssistant{
		classification: &ai.Classification{Intent: ai.IntentOrderInquiry, Confidence: 0.9},
	}
	svc := newChatService(t, db, assistant)

	resp := svc.ProcessMessage(context.Background(), "where is my order", "", nil)

	// 匿名用户不暴露任何订单数据
	require.Empty(t, resp.Orders)
	require.NotNil(t, assistant.lastCtx)
	require.Empty(t, assistant.lastCtx.Orders)
}

func TestProcessMessageOrderInquiry(t *testing.T) {
	db := setupChatTestDB(t)
	user := models.User{Email: "a@b.com", Username: "a", HashedPassword: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	orders := []models.Order{
		{UserID: user.ID, OrderNumber: "ORD-AAA", Status: "shipped", TotalAmount: 100},
		{UserID: user.ID, OrderNumber: "ORD-BBB", Status: "pending", TotalAmount: 50},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}
	other := models.User{Email: "c@d.com", Username: "c", HashedPassword: "x", IsActive: true}
	require.NoError(t, db.Create(&other).Error)
	require.NoError(t, db.Create(&models.Order{UserID: other.ID, OrderNumber: "ORD-ZZZ", Status: "pending", TotalAmount: 9}).Error)

	assistant := &fakeAssistant{
		classification: &ai.Classification{Intent: ai.IntentOrderInquiry, Confidence: 0.9},
	}
	svc := newChatService(t, db, assistant)

	resp := svc.ProcessMessage(context.Background(), "my orders", "", &user.ID)

	require.Len(t, resp.Orders, 2)
	for _, o := range resp.Orders {
		require.NotEqual(t, "ORD-ZZZ", o.OrderNumber, "不能看到其他用户的订单")
	}
}

func TestProcessMessageOrderInquiryByNumber(t *testing.T) {
	db := setupChatTestDB(t)
	user := models.User{Email: "a@b.com", Username: "a", HashedPassword: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.Order{UserID: user.ID, OrderNumber: "ORD-12345", Status: "shipped", TotalAmount: 100}).Error)
	require.NoError(t, db.Create(&models.Order{UserID: user.ID, OrderNumber: "ORD-99999", Status: "pending", TotalAmount: 50}).Error)

	assistant := &fakeAssistant{
		classification: &ai.Classification{
			Intent:      ai.IntentOrderInquiry,
			Confidence:  0.9,
			OrderNumber: "12345",
		},
	}
	svc := newChatService(t, db, assistant)

	resp := svc.ProcessMessage(context.Background(), "track ORD-12345", "", &user.ID)

	require.Len(t, resp.Orders, 1)
	require.Equal(t, "ORD-12345", resp.Orders[0].OrderNumber)
}

func TestGetChatHistoryExpandsPairs(t *testing.T) {
	db := setupChatTestDB(t)
	svc := newChatService(t, db, &fakeAssistant{})

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.ChatMessage{
			SessionID: "s1",
			Message:   fmt.Sprintf("q%d", i),
			Response:  fmt.Sprintf("a%d", i),
			Intent:    "general",
		}).Error)
	}

	history, err := svc.GetChatHistory(context.Background(), "s1", 20)
	require.NoError(t, err)
	require.Len(t, history, 6)

	// 一问一答交替，时间顺序
	require.Equal(t, "user", history[0].Type)
	require.Equal(t, "q0", history[0].Content)
	require.Equal(t, "assistant", history[1].Type)
	require.Equal(t, "a0", history[1].Content)
	require.Equal(t, "general", history[1].Intent)
	require.Equal(t, "q2", history[4].Content)
}

func TestGetChatHistoryEmptySession(t *testing.T) {
	db := setupChatTestDB(t)
	svc := newChatService(t, db, &fakeAssistant{})

	history, err := svc.GetChatHistory(context.Background(), "missing", 20)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestApplyPriceRange(t *testing.T) {
	var f search.Filter
	applyPriceRange(&f, "under $100")
	require.NotNil(t, f.MaxPrice)
	require.Equal(t, 100.0, *f.MaxPrice)
	require.Nil(t, f.MinPrice)

	f = search.Filter{}
	applyPriceRange(&f, "more than 50 dollars")
	require.NotNil(t, f.MinPrice)
	require.Equal(t, 50.0, *f.MinPrice)

	f = search.Filter{}
	applyPriceRange(&f, "cheap stuff please")
	require.Nil(t, f.MinPrice)
	require.Nil(t, f.MaxPrice)
}

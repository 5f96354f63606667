package chat

import (
	"net/http"
	"strconv"

	"github.com/Surya-Chinnathambi/FashionChat/internal/auth"
	"github.com/Surya-Chinnathambi/FashionChat/internal/chat"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	service *chat.Service
	db      *gorm.DB
}

// NewChatHandler 创建对话处理器
func NewChatHandler(service *chat.Service, db *gorm.DB) *ChatHandler {
	return &ChatHandler{
		service: service,
		db:      db,
	}
}

// MessageRequest 发送消息请求
type MessageRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// SessionInfo 会话概要
type SessionInfo struct {
	SessionID string  `json:"session_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// SendMessage 发送消息
// @Summary 发送对话消息
// @Description 处理一条用户消息：意图分类、业务路由、生成回复。支持匿名访问。
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body MessageRequest true "消息内容"
// @Success 200 {object} chat.Response
// @Failure 400 {object} map[string]string "参数错误"
// @Router /chat/message [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	var userID *uint
	if id, ok := auth.UserIDFromContext(c); ok {
		userID = &id
	}

	resp := h.service.ProcessMessage(c.Request.Context(), req.Message, req.SessionID, userID)
	c.JSON(http.StatusOK, resp)
}

// History 会话历史
// @Summary 获取会话历史
// @Tags Chat
// @Produce json
// @Param session_id path string true "会话 id"
// @Param limit query int false "返回的问答轮数" default(20)
// @Success 200 {array} chat.HistoryEntry
// @Router /chat/history/{session_id} [get]
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Param("session_id")

	limit := 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	history, err := h.service.GetChatHistory(c.Request.Context(), sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询会话历史失败"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// Sessions 当前用户的会话列表
// @Summary 获取当前用户的会话列表
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} SessionInfo
// @Failure 401 {object} map[string]string "未认证"
// @Router /chat/sessions [get]
func (h *ChatHandler) Sessions(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return
	}

	var sessions []models.ChatSession
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(10).
		Find(&sessions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询会话列表失败"})
		return
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		info := SessionInfo{
			SessionID: s.SessionID,
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if s.UpdatedAt != nil {
			formatted := s.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")
			info.UpdatedAt = &formatted
		}
		infos = append(infos, info)
	}
	c.JSON(http.StatusOK, infos)
}

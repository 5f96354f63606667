package models

import (
	"time"

	"gorm.io/datatypes"
)

// User 注册用户
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Username       string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"size:255;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	// 不能带 gorm default 标签：Create 时零值 false 会被省略写成默认值，
	// 停用状态就落不了库。创建方必须显式赋值。
	IsActive bool `json:"is_active" gorm:"not null"`

	Orders []Order `json:"-" gorm:"foreignKey:UserID"`
}

// Product 商品记录。检索核心只读取该实体，不修改它。
type Product struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name" gorm:"size:255;not null;index"`
	Description   string         `json:"description" gorm:"type:text"`
	Price         float64        `json:"price" gorm:"not null"`
	Category      string         `json:"category" gorm:"size:100;not null;index"`
	Color         string         `json:"color" gorm:"size:50;index"`
	Size          string         `json:"size" gorm:"size:50;index"`
	Brand         string         `json:"brand" gorm:"size:100;index"`
	ImageURL      string         `json:"image_url" gorm:"size:500"`
	StockQuantity int            `json:"stock_quantity" gorm:"default:0"`
	Tags          datatypes.JSON `json:"tags" gorm:"type:jsonb"` // 附加可检索属性，数组或对象
	CreatedAt     time.Time      `json:"created_at" gorm:"not null;autoCreateTime"`
	IsActive      bool           `json:"is_active" gorm:"not null"` // 同 User.IsActive，创建方显式赋值
}

// Order 订单
type Order struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	UserID          uint           `json:"user_id" gorm:"not null;index"`
	OrderNumber     string         `json:"order_number" gorm:"size:64;uniqueIndex;not null"`
	Status          string         `json:"status" gorm:"size:50;default:pending"` // pending, processing, shipped, delivered, cancelled
	TotalAmount     float64        `json:"total_amount" gorm:"not null"`
	ShippingAddress datatypes.JSON `json:"shipping_address" gorm:"type:jsonb"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`

	User  *User       `json:"-" gorm:"foreignKey:UserID"`
	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem 订单明细，价格为下单时快照
type OrderItem struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	OrderID   uint    `json:"order_id" gorm:"not null;index"`
	ProductID uint    `json:"product_id" gorm:"not null;index"`
	Quantity  int     `json:"quantity" gorm:"not null"`
	Price     float64 `json:"price" gorm:"not null"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// ChatSession 聊天会话，匿名用户 UserID 为空
type ChatSession struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    *uint      `json:"user_id" gorm:"index"`
	SessionID string     `json:"session_id" gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ChatMessage 一问一答的聊天记录
type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"size:64;not null;index"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Response  string    `json:"response" gorm:"type:text;not null"`
	Intent    string    `json:"intent" gorm:"size:50"` // product_search, order_inquiry, general
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}

// AllModels 返回需要自动迁移的全部模型
func AllModels() []any {
	return []any{
		&User{},
		&Product{},
		&Order{},
		&OrderItem{},
		&ChatSession{},
		&ChatMessage{},
	}
}

package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Surya-Chinnathambi/FashionChat/internal/auth"
	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run 写入示例商品、演示用户和示例订单。
// 库里已有商品时直接跳过，可以安全地在每次启动时调用。
func Run(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("检查商品数量失败: %w", err)
	}
	if count > 0 {
		logger.Info("示例数据已存在，跳过初始化")
		return nil
	}

	logger.Info("开始写入示例数据...")

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := sampleProducts()
		if err := tx.Create(&products).Error; err != nil {
			return fmt.Errorf("写入示例商品失败: %w", err)
		}

		user, err := demoUser(tx)
		if err != nil {
			return err
		}

		if err := demoOrder(tx, user, products); err != nil {
			return err
		}

		logger.Info("示例数据写入完成")
		return nil
	})
}

func demoUser(tx *gorm.DB) (*models.User, error) {
	hashed, err := auth.HashPassword("demo123")
	if err != nil {
		return nil, fmt.Errorf("生成演示用户密码失败: %w", err)
	}

	user := &models.User{
		Email:          "demo@fashionstore.com",
		Username:       "demouser",
		HashedPassword: hashed,
		IsActive:       true,
	}
	err = tx.Where("email = ?", user.Email).FirstOrCreate(user).Error
	if err != nil {
		return nil, fmt.Errorf("创建演示用户失败: %w", err)
	}
	return user, nil
}

func demoOrder(tx *gorm.DB, user *models.User, products []models.Product) error {
	address, _ := json.Marshal(map[string]string{
		"street":  "123 Fashion Ave",
		"city":    "Style City",
		"state":   "CA",
		"zip":     "90210",
		"country": "USA",
	})

	shortID := strings.ToUpper(uuid.NewString()[:8])
	order := &models.Order{
		UserID:          user.ID,
		OrderNumber:     "ORD-" + shortID,
		Status:          "processing",
		ShippingAddress: address,
	}
	if err := tx.Create(order).Error; err != nil {
		return fmt.Errorf("创建示例订单失败: %w", err)
	}

	// 白衬衫和黑色牛仔裤各一件
	items := []models.OrderItem{
		{OrderID: order.ID, ProductID: products[0].ID, Quantity: 1, Price: products[0].Price},
		{OrderID: order.ID, ProductID: products[1].ID, Quantity: 1, Price: products[1].Price},
	}
	if err := tx.Create(&items).Error; err != nil {
		return fmt.Errorf("创建示例订单明细失败: %w", err)
	}

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	if err := tx.Model(order).Update("total_amount", total).Error; err != nil {
		return fmt.Errorf("更新示例订单金额失败: %w", err)
	}
	return nil
}

func tags(values ...string) datatypes.JSON {
	raw, _ := json.Marshal(values)
	return raw
}

func sampleProducts() []models.Product {
	return []models.Product{
		{
			Name:          "Classic White Button-Down Shirt",
			Description:   "Timeless white cotton button-down shirt perfect for office or casual wear. Premium cotton blend with a tailored fit.",
			Price:         89.99,
			Category:      "shirts",
			Color:         "white",
			Size:          "M",
			Brand:         "StyleCo",
			StockQuantity: 50,
			Tags:          tags("cotton", "business", "classic", "versatile"),
			IsActive:      true,
		},
		{
			Name:          "High-Waisted Black Jeans",
			Description:   "Comfortable high-waisted black skinny jeans made from stretch denim. Flattering fit with premium finishing.",
			Price:         125.00,
			Category:      "jeans",
			Color:         "black",
			Size:          "M",
			Brand:         "DenimPro",
			StockQuantity: 35,
			Tags:          tags("denim", "skinny", "stretch", "high-waisted"),
			IsActive:      true,
		},
		{
			Name:          "Floral Summer Dress",
			Description:   "Light and airy floral dress perfect for summer occasions. Features a flattering A-line silhouette with flutter sleeves.",
			Price:         155.00,
			Category:      "dresses",
			Color:         "floral",
			Size:          "L",
			Brand:         "FloralFashion",
			StockQuantity: 25,
			Tags:          tags("summer", "floral", "a-line", "lightweight"),
			IsActive:      true,
		},
		{
			Name:          "Leather Ankle Boots",
			Description:   "Premium genuine leather ankle boots with a 2-inch heel. Perfect for both casual and professional settings.",
			Price:         189.99,
			Category:      "shoes",
			Color:         "brown",
			Size:          "8",
			Brand:         "BootCraft",
			StockQuantity: 20,
			Tags:          tags("leather", "ankle", "professional", "heel"),
			IsActive:      true,
		},
		{
			Name:          "Cozy Knit Sweater",
			Description:   "Soft merino wool sweater with a relaxed fit. Ideal for layering during cooler weather.",
			Price:         98.50,
			Category:      "sweaters",
			Color:         "gray",
			Size:          "S",
			Brand:         "WoolWorks",
			StockQuantity: 40,
			Tags:          tags("wool", "knit", "cozy", "layering"),
			IsActive:      true,
		},
		{
			Name:          "Designer Handbag",
			Description:   "Elegant leather handbag with gold hardware. Features multiple compartments and adjustable strap.",
			Price:         299.99,
			Category:      "accessories",
			Color:         "black",
			Size:          "medium",
			Brand:         "LuxBags",
			StockQuantity: 15,
			Tags:          tags("leather", "designer", "elegant", "versatile"),
			IsActive:      true,
		},
		{
			Name:          "Athletic Running Shoes",
			Description:   "High-performance running shoes with advanced cushioning and breathable mesh upper.",
			Price:         139.99,
			Category:      "shoes",
			Color:         "blue",
			Size:          "9",
			Brand:         "SportTech",
			StockQuantity: 60,
			Tags:          tags("athletic", "running", "performance", "breathable"),
			IsActive:      true,
		},
		{
			Name:          "Silk Scarf",
			Description:   "Luxurious silk scarf with vibrant geometric print. Perfect accent piece for any outfit.",
			Price:         75.00,
			Category:      "accessories",
			Color:         "multicolor",
			Size:          "standard",
			Brand:         "SilkStyle",
			StockQuantity: 30,
			Tags:          tags("silk", "luxury", "geometric", "accent"),
			IsActive:      true,
		},
	}
}

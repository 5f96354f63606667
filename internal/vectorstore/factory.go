package vectorstore

import (
	"fmt"

	"github.com/Surya-Chinnathambi/FashionChat/internal/config"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"

	"gorm.io/gorm"
)

// New 按配置创建向量存储。type 为 none 或空时返回 nil，
// 检索服务会自动跳过向量层。
func New(cfg config.VectorStoreConfig, db *gorm.DB) (search.VectorStore, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "chroma":
		return NewChromaStore(ChromaOptions{
			Endpoint:       cfg.Chroma.Endpoint,
			Collection:     cfg.Chroma.Collection,
			TimeoutSeconds: cfg.Chroma.TimeoutSeconds,
		})
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("pgvector 存储需要数据库连接")
		}
		return NewPGVectorStore(db)
	default:
		return nil, fmt.Errorf("不支持的向量存储类型: %s", cfg.Type)
	}
}

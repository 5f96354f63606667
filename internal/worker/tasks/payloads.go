package tasks

// Task Types
const (
	TypeSyncProducts  = "search:sync_products"
	TypeRemoveProduct = "search:remove_product"
)

// SyncProductsPayload 商品向量同步任务载荷。
// ProductIDs 为空表示全量重建索引。
type SyncProductsPayload struct {
	ProductIDs []uint `json:"product_ids"`
}

// RemoveProductPayload 商品索引移除任务载荷
type RemoveProductPayload struct {
	ProductID uint `json:"product_id"`
}

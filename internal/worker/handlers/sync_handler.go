package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Surya-Chinnathambi/FashionChat/internal/metrics"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
	"github.com/Surya-Chinnathambi/FashionChat/internal/products"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"
	"github.com/Surya-Chinnathambi/FashionChat/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// SyncHandler 商品向量索引同步处理器
type SyncHandler struct {
	repo     *products.Repository
	searcher *search.Service
	logger   *zap.Logger
}

func NewSyncHandler(repo *products.Repository, searcher *search.Service, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		repo:     repo,
		searcher: searcher,
		logger:   logger,
	}
}

// HandleSyncProducts 同步指定商品（或全量）到检索索引
func (h *SyncHandler) HandleSyncProducts(ctx context.Context, t *asynq.Task) error {
	var p tasks.SyncProductsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	var (
		items []models.Product
		err   error
	)
	if len(p.ProductIDs) == 0 {
		h.logger.Info("开始全量重建商品索引")
		items, err = h.repo.ListActive(ctx)
	} else {
		h.logger.Info("开始同步商品索引", zap.Uints("product_ids", p.ProductIDs))
		items, err = h.repo.FindByIDs(ctx, p.ProductIDs, nil)
	}
	if err != nil {
		metrics.VectorSyncTotal.WithLabelValues("error").Inc()
		h.logger.Error("读取待同步商品失败", zap.Error(err))
		return err
	}

	// 指定 id 中已不在售的商品，顺手从索引移除
	if len(p.ProductIDs) > 0 {
		found := make(map[uint]struct{}, len(items))
		for _, item := range items {
			found[item.ID] = struct{}{}
		}
		for _, id := range p.ProductIDs {
			if _, ok := found[id]; !ok {
				h.searcher.Remove(ctx, id)
			}
		}
	}

	if err := h.searcher.Index(ctx, items); err != nil {
		metrics.VectorSyncTotal.WithLabelValues("partial").Inc()
		h.logger.Error("商品索引同步部分失败", zap.Error(err))
		return err
	}

	metrics.VectorSyncTotal.WithLabelValues("ok").Inc()
	metrics.VectorSyncBatchSize.Observe(float64(len(items)))
	h.logger.Info("商品索引同步完成", zap.Int("count", len(items)))
	return nil
}

// HandleRemoveProduct 从检索索引移除商品
func (h *SyncHandler) HandleRemoveProduct(ctx context.Context, t *asynq.Task) error {
	var p tasks.RemoveProductPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	h.searcher.Remove(ctx, p.ProductID)
	h.logger.Info("商品已从索引移除", zap.Uint("product_id", p.ProductID))
	return nil
}

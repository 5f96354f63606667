package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
	"github.com/Surya-Chinnathambi/FashionChat/internal/products"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"
	"github.com/Surya-Chinnathambi/FashionChat/internal/worker/tasks"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stderr"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func setupSyncTest(t *testing.T) (*SyncHandler, *search.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))

	repo := products.NewRepository(db)
	searcher := search.NewService(search.Options{Repo: repo})
	return NewSyncHandler(repo, searcher, zap.NewNop()), searcher, db
}

func syncTask(t *testing.T, ids []uint) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(tasks.SyncProductsPayload{ProductIDs: ids})
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeSyncProducts, payload)
}

func TestHandleSyncProductsFullRebuild(t *testing.T) {
	handler, searcher, db := setupSyncTest(t)

	for _, p := range []models.Product{
		{Name: "A", Price: 1, Category: "x", IsActive: true},
		{Name: "B", Price: 2, Category: "x", IsActive: true},
		{Name: "C", Price: 3, Category: "x", IsActive: false},
	} {
		require.NoError(t, db.Create(&p).Error)
	}

	// 空 id 列表表示全量重建，下架商品不入索引
	require.NoError(t, handler.HandleSyncProducts(context.Background(), syncTask(t, nil)))

	stats := searcher.Stats(context.Background())
	require.EqualValues(t, 2, stats["indexed"])
}

func TestHandleSyncProductsByID(t *testing.T) {
	handler, searcher, db := setupSyncTest(t)

	p := models.Product{Name: "Only", Price: 1, Category: "x", IsActive: true}
	require.NoError(t, db.Create(&p).Error)

	require.NoError(t, handler.HandleSyncProducts(context.Background(), syncTask(t, []uint{p.ID})))
	require.EqualValues(t, 1, searcher.Stats(context.Background())["indexed"])
}

func TestHandleSyncProductsRemovesMissing(t *testing.T) {
	handler, searcher, db := setupSyncTest(t)

	p := models.Product{Name: "Gone Soon", Price: 1, Category: "x", IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, handler.HandleSyncProducts(context.Background(), syncTask(t, []uint{p.ID})))
	require.EqualValues(t, 1, searcher.Stats(context.Background())["indexed"])

	// 商品删除后重新同步同一 id，索引条目应被回收
	require.NoError(t, db.Delete(&models.Product{}, p.ID).Error)
	require.NoError(t, handler.HandleSyncProducts(context.Background(), syncTask(t, []uint{p.ID})))
	require.EqualValues(t, 0, searcher.Stats(context.Background())["indexed"])
}

func TestHandleSyncProductsBadPayload(t *testing.T) {
	handler, _, _ := setupSyncTest(t)

	task := asynq.NewTask(tasks.TypeSyncProducts, []byte("not json"))
	require.Error(t, handler.HandleSyncProducts(context.Background(), task))
}

func TestHandleRemoveProduct(t *testing.T) {
	handler, searcher, db := setupSyncTest(t)

	p := models.Product{Name: "Removable", Price: 1, Category: "x", IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, handler.HandleSyncProducts(context.Background(), syncTask(t, []uint{p.ID})))

	payload, err := json.Marshal(tasks.RemoveProductPayload{ProductID: p.ID})
	require.NoError(t, err)
	require.NoError(t, handler.HandleRemoveProduct(context.Background(), asynq.NewTask(tasks.TypeRemoveProduct, payload)))

	require.EqualValues(t, 0, searcher.Stats(context.Background())["indexed"])
}

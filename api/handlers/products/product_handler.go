package products

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Surya-Chinnathambi/FashionChat/internal/infra/queue"
	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
	"github.com/Surya-Chinnathambi/FashionChat/internal/products"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ProductHandler 商品处理器
type ProductHandler struct {
	repo     *products.Repository
	searcher *search.Service
	queue    queue.Client // 可为 nil，此时跳过异步索引同步
}

// NewProductHandler 创建商品处理器
func NewProductHandler(repo *products.Repository, searcher *search.Service, q queue.Client) *ProductHandler {
	return &ProductHandler{
		repo:     repo,
		searcher: searcher,
		queue:    q,
	}
}

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Name          string         `json:"name" binding:"required,max=255"`
	Description   string         `json:"description"`
	Price         float64        `json:"price" binding:"required,gt=0"`
	Category      string         `json:"category" binding:"required,max=100"`
	Color         string         `json:"color" binding:"max=50"`
	Size          string         `json:"size" binding:"max=50"`
	Brand         string         `json:"brand" binding:"max=100"`
	ImageURL      string         `json:"image_url" binding:"max=500"`
	StockQuantity int            `json:"stock_quantity" binding:"gte=0"`
	Tags          datatypes.JSON `json:"tags"`
}

// ListResponse 商品列表响应
type ListResponse struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
}

// List 商品列表
// @Summary 商品列表
// @Description 按结构化条件分页查询在售商品
// @Tags Products
// @Produce json
// @Param category query string false "分类（包含匹配）"
// @Param color query string false "颜色（包含匹配）"
// @Param brand query string false "品牌（包含匹配）"
// @Param min_price query number false "最低价"
// @Param max_price query number false "最高价"
// @Param limit query int false "分页大小，最大 100" default(20)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} ListResponse
// @Router /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	filter := filterFromQuery(c)

	limit := intQuery(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := intQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.repo.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询商品列表失败"})
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: items, Total: total})
}

// Search 混合检索商品
// @Summary 商品检索
// @Description 向量召回 + 关系库回捞 + 内存扫描的混合检索，结果按相似度排序
// @Tags Products
// @Produce json
// @Param q query string true "查询文本"
// @Param category query string false "分类（包含匹配）"
// @Param color query string false "颜色（包含匹配）"
// @Param brand query string false "品牌（包含匹配）"
// @Param size query string false "尺码（包含匹配）"
// @Param min_price query number false "最低价"
// @Param max_price query number false "最高价"
// @Param limit query int false "返回数量，最大 50" default(10)
// @Success 200 {array} search.ScoredProduct
// @Failure 400 {object} map[string]string "缺少查询文本"
// @Router /products/search [get]
func (h *ProductHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "查询文本不能为空"})
		return
	}

	limit := intQuery(c, "limit", 10)
	if limit > 50 {
		limit = 50
	}

	results := h.searcher.Search(c.Request.Context(), q, filterFromQuery(c), limit)
	c.JSON(http.StatusOK, results)
}

// SearchStats 检索子系统概况
// @Summary 检索统计
// @Tags Products
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /products/search/stats [get]
func (h *ProductHandler) SearchStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.searcher.Stats(c.Request.Context()))
}

// Get 商品详情
// @Summary 商品详情
// @Tags Products
// @Produce json
// @Param id path int true "商品 id"
// @Success 200 {object} models.Product
// @Failure 404 {object} map[string]string "商品不存在"
// @Router /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "商品不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询商品失败"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// Categories 分类列表
// @Summary 商品分类列表
// @Tags Products
// @Produce json
// @Success 200 {array} string
// @Router /products/categories/list [get]
func (h *ProductHandler) Categories(c *gin.Context) {
	values, err := h.repo.Categories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询分类失败"})
		return
	}
	c.JSON(http.StatusOK, values)
}

// Brands 品牌列表
// @Summary 商品品牌列表
// @Tags Products
// @Produce json
// @Success 200 {array} string
// @Router /products/brands/list [get]
func (h *ProductHandler) Brands(c *gin.Context) {
	values, err := h.repo.Brands(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询品牌失败"})
		return
	}
	c.JSON(http.StatusOK, values)
}

// Create 新建商品
// @Summary 新建商品
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProductRequest true "商品信息"
// @Success 201 {object} models.Product
// @Failure 400 {object} map[string]string "参数错误"
// @Router /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	product := req.toModel()
	product.IsActive = true
	if err := h.repo.Create(c.Request.Context(), &product); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建商品失败"})
		return
	}

	h.enqueueSync(product.ID)
	c.JSON(http.StatusCreated, product)
}

// Update 更新商品
// @Summary 更新商品
// @Tags Products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 id"
// @Param request body ProductRequest true "商品信息"
// @Success 200 {object} models.Product
// @Failure 404 {object} map[string]string "商品不存在"
// @Router /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	product := req.toModel()
	product.ID = id
	if err := h.repo.Update(c.Request.Context(), &product); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "商品不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新商品失败"})
		return
	}

	h.enqueueSync(id)

	updated, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusOK, product)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete 删除商品
// @Summary 删除商品
// @Tags Products
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "商品不存在"
// @Router /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, products.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "商品不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除商品失败"})
		return
	}

	if h.queue != nil {
		if err := h.queue.EnqueueRemoveProduct(id); err != nil {
			logger.Warn("索引移除任务入队失败", zap.Uint("product_id", id), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "商品已删除"})
}

func (req *ProductRequest) toModel() models.Product {
	return models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Category:      req.Category,
		Color:         req.Color,
		Size:          req.Size,
		Brand:         req.Brand,
		ImageURL:      req.ImageURL,
		StockQuantity: req.StockQuantity,
		Tags:          req.Tags,
	}
}

// enqueueSync 索引同步任务入队，失败只记日志
func (h *ProductHandler) enqueueSync(id uint) {
	if h.queue == nil {
		return
	}
	if err := h.queue.EnqueueSyncProducts([]uint{id}); err != nil {
		logger.Warn("索引同步任务入队失败", zap.Uint("product_id", id), zap.Error(err))
	}
}

func filterFromQuery(c *gin.Context) *search.Filter {
	filter := &search.Filter{
		Category: c.Query("category"),
		Color:    c.Query("color"),
		Brand:    c.Query("brand"),
		Size:     c.Query("size"),
	}
	if v, err := strconv.ParseFloat(c.Query("min_price"), 64); err == nil {
		filter.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil {
		filter.MaxPrice = &v
	}
	return filter
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "非法的商品 id"})
		return 0, false
	}
	return uint(id), true
}

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Surya-Chinnathambi/FashionChat/internal/search"
)

// ChromaOptions 初始化 Chroma 向量存储的配置
type ChromaOptions struct {
	Endpoint       string
	Collection     string
	TimeoutSeconds int
	HTTPClient     *http.Client
}

// ChromaStore 基于 Chroma HTTP API 的向量存储实现。
// 集合在首次使用时按 get_or_create 方式创建，距离度量为余弦。
type ChromaStore struct {
	client     *http.Client
	baseURL    string
	collection string

	ensureOnce   sync.Once
	ensureErr    error
	collectionID string
}

// NewChromaStore 创建 Chroma 向量存储实例
func NewChromaStore(opts ChromaOptions) (*ChromaStore, error) {
	baseURL := strings.TrimSpace(opts.Endpoint)
	if baseURL == "" {
		return nil, fmt.Errorf("chroma endpoint 不能为空")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	collection := opts.Collection
	if collection == "" {
		collection = "fashion_products"
	}

	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	return &ChromaStore{
		client:     client,
		baseURL:    baseURL,
		collection: collection,
	}, nil
}

// Upsert 写入或更新一批商品向量
func (s *ChromaStore) Upsert(ctx context.Context, items []search.VectorItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, 0, len(items)),
		Embeddings: make([][]float32, 0, len(items)),
		Metadatas:  make([]map[string]any, 0, len(items)),
		Documents:  make([]string, 0, len(items)),
	}
	for _, item := range items {
		req.IDs = append(req.IDs, pointID(item.ID))
		req.Embeddings = append(req.Embeddings, item.Embedding)
		req.Metadatas = append(req.Metadatas, item.Metadata)
		req.Documents = append(req.Documents, item.Document)
	}

	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/upsert"), req, nil); err != nil {
		return fmt.Errorf("chroma upsert 失败: %w", err)
	}
	return nil
}

// Query 相似度检索，返回按距离升序的候选
func (s *ChromaStore) Query(ctx context.Context, embedding []float32, topK int, filter *search.Filter) ([]search.Candidate, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("查询向量不能为空")
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	req := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Where:           whereClause(filter),
		Include:         []string{"metadatas", "distances"},
	}

	var resp chromaQueryResponse
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/query"), req, &resp); err != nil {
		return nil, fmt.Errorf("chroma query 失败: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	candidates := make([]search.Candidate, 0, len(ids))
	for i, rawID := range ids {
		var metadata map[string]any
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			metadata = resp.Metadatas[0][i]
		}

		id, ok := parsePointID(rawID, metadata)
		if !ok {
			continue
		}

		var distance float64
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			distance = resp.Distances[0][i]
		}

		candidates = append(candidates, search.Candidate{
			ID:       id,
			Distance: distance,
			Metadata: metadata,
		})
	}
	return candidates, nil
}

// Delete 按商品 id 删除向量
func (s *ChromaStore) Delete(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	pointIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}
	req := chromaDeleteRequest{IDs: pointIDs}
	if err := s.doRequest(ctx, http.MethodPost, s.collectionPath("/delete"), req, nil); err != nil {
		return fmt.Errorf("chroma delete 失败: %w", err)
	}
	return nil
}

// Count 集合内向量总数
func (s *ChromaStore) Count(ctx context.Context) (int64, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}

	var count int64
	if err := s.doRequest(ctx, http.MethodGet, s.collectionPath("/count"), nil, &count); err != nil {
		return 0, fmt.Errorf("chroma count 失败: %w", err)
	}
	return count, nil
}

// --- 内部辅助 ---

func (s *ChromaStore) collectionPath(path string) string {
	return fmt.Sprintf("/api/v1/collections/%s%s", url.PathEscape(s.collectionID), path)
}

// ensureCollection 以 get_or_create 方式解析集合 id，只做一次
func (s *ChromaStore) ensureCollection(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		req := chromaCreateCollectionRequest{
			Name:        s.collection,
			Metadata:    map[string]any{"hnsw:space": "cosine"},
			GetOrCreate: true,
		}
		var resp chromaCollection
		s.ensureErr = s.doRequest(ctx, http.MethodPost, "/api/v1/collections", req, &resp)
		if s.ensureErr == nil && resp.ID == "" {
			s.ensureErr = fmt.Errorf("创建 Chroma 集合失败: 响应缺少集合 id")
		}
		s.collectionID = resp.ID
	})
	return s.ensureErr
}

func (s *ChromaStore) doRequest(ctx context.Context, method, path string, payload any, dest any) error {
	var bodyReader *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("chroma API 错误: %v (%d)", errBody["error"], resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// pointID 商品主键到向量点 id 的映射
func pointID(id uint) string {
	return fmt.Sprintf("product_%d", id)
}

// parsePointID 解析向量点 id，无法解析时退回元数据里的 product_id
func parsePointID(raw string, metadata map[string]any) (uint, bool) {
	trimmed := strings.TrimPrefix(raw, "product_")
	if n, err := strconv.ParseUint(trimmed, 10, 64); err == nil && n > 0 {
		return uint(n), true
	}
	if metadata != nil {
		if v, ok := metadata["product_id"]; ok {
			switch n := v.(type) {
			case float64:
				if n > 0 {
					return uint(n), true
				}
			case string:
				if parsed, err := strconv.ParseUint(n, 10, 64); err == nil && parsed > 0 {
					return uint(parsed), true
				}
			}
		}
	}
	return 0, false
}

// whereClause 把结构化筛选翻译成 Chroma where 条件。
// 字符串字段按等值预筛（召回后的权威合并仍会做包含匹配），价格为闭区间。
func whereClause(filter *search.Filter) map[string]any {
	if filter == nil {
		return nil
	}

	var conditions []map[string]any
	if filter.Category != "" {
		conditions = append(conditions, map[string]any{"category": filter.Category})
	}
	if filter.Color != "" {
		conditions = append(conditions, map[string]any{"color": filter.Color})
	}
	if filter.Brand != "" {
		conditions = append(conditions, map[string]any{"brand": filter.Brand})
	}
	if filter.Size != "" {
		conditions = append(conditions, map[string]any{"size": filter.Size})
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, map[string]any{"price": map[string]any{"$gte": *filter.MinPrice}})
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, map[string]any{"price": map[string]any{"$lte": *filter.MaxPrice}})
	}

	switch len(conditions) {
	case 0:
		return nil
	case 1:
		return conditions[0]
	default:
		return map[string]any{"$and": conditions}
	}
}

// --- Chroma API 报文 ---

type chromaCreateCollectionRequest struct {
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GetOrCreate bool           `json:"get_or_create"`
}

type chromaCollection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type chromaUpsertRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Metadatas  []map[string]any `json:"metadatas"`
	Documents  []string         `json:"documents"`
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float32    `json:"query_embeddings"`
	NResults        int            `json:"n_results"`
	Where           map[string]any `json:"where,omitempty"`
	Include         []string       `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
}

type chromaDeleteRequest struct {
	IDs []string `json:"ids"`
}

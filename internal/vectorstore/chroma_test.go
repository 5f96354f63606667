package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Surya-Chinnathambi/FashionChat/internal/search"
)

// newChromaTestServer 模拟 Chroma HTTP API，按路径记录请求体
func newChromaTestServer(t *testing.T, handle func(path string, body []byte, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("读取请求体失败: %v", err)
		}
		if r.URL.Path == "/api/v1/collections" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"col-123","name":"fashion_products"}`)
			return
		}
		handle(r.URL.Path, body, w)
	}))
}

func TestChromaUpsertPayload(t *testing.T) {
	var captured chromaUpsertRequest
	srv := newChromaTestServer(t, func(path string, body []byte, w http.ResponseWriter) {
		if path != "/api/v1/collections/col-123/upsert" {
			t.Errorf("意外的请求路径: %s", path)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	store, err := NewChromaStore(ChromaOptions{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	items := []search.VectorItem{{
		ID:        7,
		Document:  "Floral Summer Dress dresses",
		Metadata:  map[string]any{"product_id": float64(7), "category": "dresses"},
		Embedding: []float32{0.1, 0.2},
	}}
	if err := store.Upsert(context.Background(), items); err != nil {
		t.Fatalf("upsert 失败: %v", err)
	}

	if len(captured.IDs) != 1 || captured.IDs[0] != "product_7" {
		t.Fatalf("点 id 不符: %v", captured.IDs)
	}
	if captured.Documents[0] != "Floral Summer Dress dresses" {
		t.Fatalf("文档不符: %v", captured.Documents)
	}
	if captured.Metadatas[0]["category"] != "dresses" {
		t.Fatalf("元数据不符: %v", captured.Metadatas)
	}
}

func TestChromaQueryParsesResponse(t *testing.T) {
	var captured chromaQueryRequest
	srv := newChromaTestServer(t, func(path string, body []byte, w http.ResponseWriter) {
		if path != "/api/v1/collections/col-123/query" {
			t.Errorf("意外的请求路径: %s", path)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"ids": [["product_3", "product_1", "garbage"]],
			"distances": [[0.1, 0.4, 0.5]],
			"metadatas": [[{"name":"Dress"},{"name":"Shirt"},{"product_id":9}]]
		}`)
	})
	defer srv.Close()

	store, err := NewChromaStore(ChromaOptions{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}

	candidates, err := store.Query(context.Background(), []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("query 失败: %v", err)
	}

	if captured.NResults != 10 {
		t.Fatalf("topK 未透传: %d", captured.NResults)
	}
	if len(candidates) != 3 {
		t.Fatalf("候选数不符: %d", len(candidates))
	}
	if candidates[0].ID != 3 || candidates[0].Distance != 0.1 {
		t.Fatalf("首个候选解析错误: %+v", candidates[0])
	}
	// 点 id 无法解析时退回元数据里的 product_id
	if candidates[2].ID != 9 {
		t.Fatalf("元数据兜底解析失败: %+v", candidates[2])
	}
	if candidates[0].Metadata["name"] != "Dress" {
		t.Fatalf("元数据未附带: %v", candidates[0].Metadata)
	}
}

func TestChromaDelete(t *testing.T) {
	var captured chromaDeleteRequest
	srv := newChromaTestServer(t, func(path string, body []byte, w http.ResponseWriter) {
		if path != "/api/v1/collections/col-123/delete" {
			t.Errorf("意外的请求路径: %s", path)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	store, err := NewChromaStore(ChromaOptions{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	if err := store.Delete(context.Background(), []uint{4, 5}); err != nil {
		t.Fatalf("delete 失败: %v", err)
	}

	if len(captured.IDs) != 2 || captured.IDs[0] != "product_4" || captured.IDs[1] != "product_5" {
		t.Fatalf("删除 id 不符: %v", captured.IDs)
	}
}

func TestChromaAPIError(t *testing.T) {
	srv := newChromaTestServer(t, func(path string, body []byte, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"collection exploded"}`)
	})
	defer srv.Close()

	store, err := NewChromaStore(ChromaOptions{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	if _, err := store.Query(context.Background(), []float32{1}, 5, nil); err == nil {
		t.Fatal("服务端 5xx 应返回错误")
	}
}

func TestWhereClause(t *testing.T) {
	if got := whereClause(nil); got != nil {
		t.Fatalf("nil 筛选应无 where: %v", got)
	}
	if got := whereClause(&search.Filter{}); got != nil {
		t.Fatalf("空筛选应无 where: %v", got)
	}

	// 单条件直接平铺
	got := whereClause(&search.Filter{Category: "shirts"})
	if got["category"] != "shirts" {
		t.Fatalf("单条件 where 不符: %v", got)
	}

	// 多条件用 $and 组合，价格为闭区间操作符
	max := 100.0
	got = whereClause(&search.Filter{Category: "shirts", MaxPrice: &max})
	and, ok := got["$and"].([]map[string]any)
	if !ok || len(and) != 2 {
		t.Fatalf("多条件应使用 $and: %v", got)
	}
	price, ok := and[1]["price"].(map[string]any)
	if !ok || price["$lte"] != 100.0 {
		t.Fatalf("价格条件不符: %v", and[1])
	}
}

func TestPointIDRoundTrip(t *testing.T) {
	if pointID(42) != "product_42" {
		t.Fatalf("点 id 格式不符: %s", pointID(42))
	}
	id, ok := parsePointID("product_42", nil)
	if !ok || id != 42 {
		t.Fatalf("点 id 解析失败: %d %v", id, ok)
	}
	if _, ok := parsePointID("junk", nil); ok {
		t.Fatal("无法解析且无元数据时应返回 false")
	}
	id, ok = parsePointID("junk", map[string]any{"product_id": "17"})
	if !ok || id != 17 {
		t.Fatalf("字符串 product_id 兜底失败: %d %v", id, ok)
	}
}

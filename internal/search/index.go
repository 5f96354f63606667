package search

import (
	"strings"
	"sync"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

// Entry 索引条目：商品本体加派生字段
type Entry struct {
	Product  models.Product
	Text     string              // 小写可检索文本
	Keywords map[string]struct{} // 去重关键词集合
	// Embedding 可选的查询向量，已做 L2 归一化；为空表示向量不可用
	Embedding []float32
}

// Index 内存商品索引。写入需要外部串行（Service 持有单写入方），
// 读与写之间用读写锁隔离，条目整体替换，扫描只会看到替换前或替换后的状态。
type Index struct {
	mu      sync.RWMutex
	entries map[uint]*Entry
}

// NewIndex 创建空索引
func NewIndex() *Index {
	return &Index{entries: make(map[uint]*Entry)}
}

// NewEntry 计算商品的派生字段，构造索引条目
func NewEntry(p models.Product, embedding []float32) *Entry {
	doc := BuildDocument(&p)
	if embedding != nil {
		NormalizeL2(embedding)
	}
	return &Entry{
		Product:   p,
		Text:      strings.ToLower(doc),
		Keywords:  ExtractKeywords(doc),
		Embedding: embedding,
	}
}

// Upsert 按 id 插入或整体替换条目。同 id 重复写入是更新语义，
// 索引中每个商品 id 始终只有一条。
func (ix *Index) Upsert(entry *Entry) {
	ix.mu.Lock()
	ix.entries[entry.Product.ID] = entry
	ix.mu.Unlock()
}

// Delete 删除条目，id 不存在时静默返回
func (ix *Index) Delete(id uint) {
	ix.mu.Lock()
	delete(ix.entries, id)
	ix.mu.Unlock()
}

// Get 按 id 查找条目
func (ix *Index) Get(id uint) (*Entry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[id]
	return e, ok
}

// Snapshot 返回当前全部条目的快照切片，用于全量扫描打分
func (ix *Index) Snapshot() []*Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e)
	}
	return out
}

// Len 条目数量
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

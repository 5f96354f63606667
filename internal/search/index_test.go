package search

import (
	"testing"

	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
)

func TestIndexUpsertReplaces(t *testing.T) {
	ix := NewIndex()

	ix.Upsert(NewEntry(models.Product{ID: 1, Name: "Old Name"}, nil))
	ix.Upsert(NewEntry(models.Product{ID: 1, Name: "New Name"}, nil))

	if ix.Len() != 1 {
		t.Fatalf("同 id 重复写入应为更新语义，条目数 %d", ix.Len())
	}
	entry, ok := ix.Get(1)
	if !ok || entry.Product.Name != "New Name" {
		t.Fatalf("条目未整体替换: %+v", entry)
	}
}

func TestIndexDeleteMissingIsNoop(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(NewEntry(models.Product{ID: 1, Name: "Keep"}, nil))

	ix.Delete(99)

	if ix.Len() != 1 {
		t.Fatalf("删除不存在的 id 不应影响其他条目: %d", ix.Len())
	}
}

func TestIndexSnapshot(t *testing.T) {
	ix := NewIndex()
	ix.Upsert(NewEntry(models.Product{ID: 1, Name: "A"}, nil))
	ix.Upsert(NewEntry(models.Product{ID: 2, Name: "B"}, nil))

	snap := ix.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("快照条目数不符: %d", len(snap))
	}

	// 快照后删除不影响已取出的切片
	ix.Delete(1)
	if len(snap) != 2 {
		t.Fatal("快照不应随索引变更收缩")
	}
}

func TestNewEntryDerivedFields(t *testing.T) {
	embedding := []float32{3, 4}
	entry := NewEntry(whiteShirt(), embedding)

	if entry.Text != "classic white button-down shirt timeless white cotton shirt perfect for office or casual wear shirts styleco white m" {
		t.Fatalf("可检索文本未小写化: %q", entry.Text)
	}
	if _, ok := entry.Keywords["shirt"]; !ok {
		t.Fatalf("关键词集合缺少 shirt: %v", entry.Keywords)
	}
	// 构造时就做 L2 归一化
	if entry.Embedding[0] != 0.6 || entry.Embedding[1] != 0.8 {
		t.Fatalf("向量未归一化: %v", entry.Embedding)
	}
}

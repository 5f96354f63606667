package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Surya-Chinnathambi/FashionChat/internal/config"
	"github.com/Surya-Chinnathambi/FashionChat/internal/metrics"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingProvider 基于 OpenRouter (OpenAI 兼容) 的文本向量化实现
type EmbeddingProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewEmbeddingProvider 创建向量化提供者
func NewEmbeddingProvider(cfg config.OpenRouterConfig) (*EmbeddingProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter api key 不能为空")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
		Transport: &attributionTransport{
			referer: cfg.HTTPReferer,
			title:   cfg.XTitle,
		},
	}

	model := cfg.EmbedModel
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	dimension := cfg.EmbedDim
	if dimension <= 0 {
		dimension = 1536
	}

	return &EmbeddingProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		dimension: dimension,
	}, nil
}

// Embed 将单条文本转换为向量
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("文本不能为空")
	}

	embeddings, err := p.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch 批量向量化文本。单次请求数量有上限，超出时分批。
func (p *EmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const batchSize = 2048
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		embeddings, err := p.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("批量向量化失败(batch %d-%d): %w", i, end, err)
		}
		all = append(all, embeddings...)
	}
	return all, nil
}

// Dimension 向量维度
func (p *EmbeddingProvider) Dimension() int {
	return p.dimension
}

func (p *EmbeddingProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	metrics.ModelCallDuration.WithLabelValues(p.model, "embedding").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(p.model, "embedding", "error").Inc()
		return nil, fmt.Errorf("调用 Embeddings API 失败: %w", err)
	}
	if len(resp.Data) != len(texts) {
		metrics.ModelCallsTotal.WithLabelValues(p.model, "embedding", "error").Inc()
		return nil, fmt.Errorf("Embeddings API 返回数量不匹配: 期望 %d 实际 %d", len(texts), len(resp.Data))
	}

	metrics.ModelCallsTotal.WithLabelValues(p.model, "embedding", "ok").Inc()
	embeddings := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("Embeddings API 返回非法下标: %d", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}
	return embeddings, nil
}

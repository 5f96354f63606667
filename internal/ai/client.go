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

// Client OpenRouter 客户端适配器。OpenRouter 与 OpenAI 接口兼容，
// 复用 go-openai，只替换 BaseURL 并补充归属头。
type Client struct {
	client      *openai.Client
	chatModel   string
	intentModel string
	maxRetries  int
}

// attributionTransport 给每个请求附加 OpenRouter 推荐的归属头
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewClient 创建 OpenRouter 客户端
func NewClient(cfg config.OpenRouterConfig) (*Client, error) {
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

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		chatModel:   cfg.ChatModel,
		intentModel: cfg.IntentModel,
		maxRetries:  maxRetries,
	}, nil
}

// complete 单轮对话补全（带指数退避重试）
func (c *Client) complete(ctx context.Context, model, kind, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	}

	start := time.Now()
	var resp openai.ChatCompletionResponse
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if i < c.maxRetries {
			backoff := time.Duration(1<<uint(i)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
		}
	}
	metrics.ModelCallDuration.WithLabelValues(model, kind).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(model, kind, "error").Inc()
		return "", fmt.Errorf("调用 OpenRouter API 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ModelCallsTotal.WithLabelValues(model, kind, "error").Inc()
		return "", fmt.Errorf("OpenRouter API 返回空响应")
	}

	metrics.ModelCallsTotal.WithLabelValues(model, kind, "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}

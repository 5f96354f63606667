package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fashionchat_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fashionchat_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 商品检索指标
var (
	// SearchesTotal 各检索层执行总数
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fashionchat_searches_total",
			Help: "商品检索各层执行总数",
		},
		[]string{"tier", "status"},
	)

	// SearchDuration 检索端到端耗时（秒）
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fashionchat_search_duration_seconds",
			Help:    "商品检索耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 2},
		},
	)

	// SearchResults 检索结果数量
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fashionchat_search_results",
			Help:    "商品检索返回结果数量分布",
			Buckets: []float64{1, 3, 5, 10, 20, 50},
		},
	)

	// IndexedProducts 当前已索引商品数
	IndexedProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fashionchat_indexed_products",
			Help: "内存索引中的商品数量",
		},
	)
)

// 对话指标
var (
	// ChatMessagesTotal 按意图统计的消息总数
	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fashionchat_chat_messages_total",
			Help: "按意图分类的对话消息总数",
		},
		[]string{"intent"},
	)

	// ChatMessageDuration 单条消息处理耗时（秒）
	ChatMessageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fashionchat_chat_message_duration_seconds",
			Help:    "对话消息处理耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		},
	)
)

// AI 模型调用指标
var (
	// ModelCallsTotal 模型调用总数
	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fashionchat_model_calls_total",
			Help: "AI 模型调用总数",
		},
		[]string{"model", "kind", "status"}, // kind: chat, intent, embedding
	)

	// ModelCallDuration 模型调用耗时（秒）
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fashionchat_model_call_duration_seconds",
			Help:    "AI 模型调用耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model", "kind"},
	)
)

// 向量库同步指标
var (
	// VectorSyncTotal 向量同步任务总数
	VectorSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fashionchat_vector_sync_total",
			Help: "向量库同步任务总数",
		},
		[]string{"status"},
	)

	// VectorSyncBatchSize 单次同步的商品数量
	VectorSyncBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fashionchat_vector_sync_batch_size",
			Help:    "向量库同步批量大小分布",
			Buckets: []float64{1, 8, 24, 48, 96, 192},
		},
	)
)

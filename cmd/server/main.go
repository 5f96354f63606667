package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Surya-Chinnathambi/FashionChat/api"
	"github.com/Surya-Chinnathambi/FashionChat/internal/ai"
	"github.com/Surya-Chinnathambi/FashionChat/internal/auth"
	"github.com/Surya-Chinnathambi/FashionChat/internal/chat"
	"github.com/Surya-Chinnathambi/FashionChat/internal/config"
	"github.com/Surya-Chinnathambi/FashionChat/internal/infra"
	"github.com/Surya-Chinnathambi/FashionChat/internal/infra/queue"
	"github.com/Surya-Chinnathambi/FashionChat/internal/logger"
	"github.com/Surya-Chinnathambi/FashionChat/internal/models"
	"github.com/Surya-Chinnathambi/FashionChat/internal/products"
	"github.com/Surya-Chinnathambi/FashionChat/internal/search"
	"github.com/Surya-Chinnathambi/FashionChat/internal/seed"
	"github.com/Surya-Chinnathambi/FashionChat/internal/vectorstore"
	"github.com/Surya-Chinnathambi/FashionChat/internal/worker"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title FashionChat API
// @version 1.0
// @description 时尚电商导购聊天机器人 API
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 0. 统一加载 .env，便于集中管理 APP_* 环境变量
	loadEnvFile()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 1. 加载配置
	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	// 3. 初始化数据库
	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase()

	// 4. 自动迁移
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("跳过自动迁移（配置已禁用）")
	}

	// 5. Redis（可选：拿不到连接时跳过令牌黑名单与任务队列）
	redisClient, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis 不可用，令牌黑名单与任务队列被禁用", zap.Error(err))
		redisClient = nil
	} else {
		defer infra.CloseRedis()
	}

	// 6. 装配核心服务
	jwtService := auth.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.ExpiryHours, redisClient)
	productRepo := products.NewRepository(db)

	store, err := vectorstore.New(cfg.Search.VectorStore, db)
	if err != nil {
		logger.Warn("向量存储初始化失败，检索退化为文本模式", zap.Error(err))
		store = nil
	}

	var embedder search.EmbeddingProvider
	if cfg.OpenRouter.APIKey != "" {
		provider, err := ai.NewEmbeddingProvider(cfg.OpenRouter)
		if err != nil {
			logger.Warn("向量化提供者初始化失败", zap.Error(err))
		} else {
			embedder = provider
		}
	}

	searchService := search.NewService(search.Options{
		Store:               store,
		Repo:                productRepo,
		Embedder:            embedder,
		CandidateMultiplier: cfg.Search.CandidateMultiplier,
		CandidateFloor:      cfg.Search.CandidateFloor,
		SyncBatchSize:       cfg.Search.SyncBatchSize,
	})

	assistant, err := ai.NewClient(cfg.OpenRouter)
	if err != nil {
		logger.Fatal("初始化 OpenRouter 客户端失败", zap.Error(err))
	}
	chatService := chat.NewService(db, assistant, searchService)

	// 7. 示例数据与启动索引
	if cfg.Seed.Enabled {
		if err := seed.Run(context.Background(), db); err != nil {
			logger.Error("写入示例数据失败", zap.Error(err))
		}
	}
	bootstrapIndex(db, productRepo, searchService)

	// 8. 任务队列
	var queueClient queue.Client
	var workerServer *worker.Server
	if redisClient != nil {
		queueClient = queue.NewClient(cfg.Redis)
		defer queueClient.Close()
		workerServer = worker.NewServer(cfg.Redis, productRepo, searchService, logger.Get())
	}

	// 9. 路由与 HTTP 服务器
	router := api.SetupRouter(&api.AppContainer{
		Config:        cfg,
		DB:            db,
		JWTService:    jwtService,
		ProductRepo:   productRepo,
		SearchService: searchService,
		ChatService:   chatService,
		Queue:         queueClient,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	if workerServer != nil {
		go func() {
			if err := workerServer.Run(); err != nil {
				logger.Fatal("Worker 服务器启动失败", zap.Error(err))
			}
		}()
	}

	gracefulShutdown(server, workerServer)
}

// bootstrapIndex 启动时把在售商品灌进检索索引，失败不阻塞启动
func bootstrapIndex(db *gorm.DB, repo *products.Repository, searcher *search.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	items, err := repo.ListActive(ctx)
	if err != nil {
		logger.Error("读取商品失败，跳过启动索引", zap.Error(err))
		return
	}
	if err := searcher.Index(ctx, items); err != nil {
		logger.Warn("启动索引部分失败", zap.Error(err))
	}
	logger.Info("启动索引完成", zap.Int("count", len(items)))
}

// loadEnvFile 依次尝试加载当前目录及上级目录的 .env 文件
func loadEnvFile() {
	if path := resolveEnvPath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("加载环境变量文件 %s 失败: %v\n", path, err)
		} else {
			fmt.Printf("已加载环境变量文件: %s\n", path)
		}
	} else {
		fmt.Println("未找到 .env 文件，将仅使用系统环境变量和 config/* 配置")
	}
}

// resolveEnvPath 从当前工作目录和可执行文件目录向上查找 .env
func resolveEnvPath() string {
	for _, path := range collectEnvCandidates() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func collectEnvCandidates() []string {
	seen := make(map[string]struct{})
	var candidates []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		candidates = append(candidates, path)
	}

	traverse := func(start string) {
		dir := filepath.Clean(start)
		for i := 0; i < 8; i++ {
			if dir == "" || dir == string(filepath.Separator) || dir == "." {
				break
			}
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if wd, err := os.Getwd(); err == nil {
		traverse(wd)
	}
	if exe, err := os.Executable(); err == nil {
		traverse(filepath.Dir(exe))
	}

	return candidates
}

// gracefulShutdown 优雅关闭
func gracefulShutdown(server *http.Server, workerServer *worker.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始优雅关闭...")

	if workerServer != nil {
		workerServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP 服务器关闭失败", zap.Error(err))
	}

	logger.Info("应用已退出")
}

package app

import (
	"context"
	"log"
	"net/http"
	"olp_backend/internal/config"
	"olp_backend/internal/controller"
	"olp_backend/internal/repository"
	"olp_backend/internal/service"
	"olp_backend/pkg/configwatcher"
	"olp_backend/pkg/database"
	"olp_backend/pkg/logger"
	"olp_backend/pkg/monitoring"
	"olp_backend/pkg/security"
	"olp_backend/pkg/tracing"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
	tracer   *sdktrace.TracerProvider

	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	quiz     *repository.QuizRepository
	question *repository.QuestionRepository
	attempt  *repository.QuizAttemptRepository
}

type services struct {
	storage   *service.StorageService
	quiz      *service.QuizService
	quizAdmin *service.QuizAdminService
}

type controllers struct {
	quiz      *controller.QuizController
	quizAdmin *controller.QuizAdminController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig hands a reloaded configuration to every registered callback.
func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()
	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		quiz:     repository.NewQuizRepository(db),
		question: repository.NewQuestionRepository(db, rdb, cfg.Quiz.QuestionCacheTTL()),
		attempt:  repository.NewQuizAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.quiz = service.NewQuizService(repos.quiz, repos.question, repos.attempt, cfg.Quiz)
	s.quizAdmin = service.NewQuizAdminService(repos.quiz, repos.question, s.quiz, s.storage)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.quiz.ApplyConfig(newCfg.Quiz)
		logger.Log.Info("quiz settings applied",
			zap.Int("finalQuestionCount", newCfg.Quiz.FinalQuestionCount),
			zap.Int("finalPassingScore", newCfg.Quiz.FinalPassingScore),
		)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		quiz:      controller.NewQuizController(s.quiz),
		quizAdmin: controller.NewQuizAdminController(s.quizAdmin, s.quiz),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New builds the application around an already opened database. Redis may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb, cfg)
	app.services = app.initServices(repos, cfg)
	ctrls := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("olp-quiz-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) Run(configDir string) {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := configwatcher.WatchConfig(watchCtx, filepath.Join(configDir, "config.yaml"), a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}

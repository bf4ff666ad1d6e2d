package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"splitbill_backend/internal/config"
	"splitbill_backend/internal/controller"
	"splitbill_backend/internal/repository"
	"splitbill_backend/internal/service"
	"splitbill_backend/pkg/configwatcher"
	"splitbill_backend/pkg/database"
	"splitbill_backend/pkg/events"
	"splitbill_backend/pkg/logger"
	"splitbill_backend/pkg/monitoring"
	"splitbill_backend/pkg/security"
	"splitbill_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Publisher       events.Publisher
	CORS            *security.CORSPolicy
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user           *repository.UserRepository
	friendship     *repository.FriendshipRepository
	group          *repository.GroupRepository
	paymentRequest *repository.PaymentRequestRepository
	bill           *repository.BillRepository
}

type services struct {
	auth           *service.AuthService
	user           *service.UserService
	storage        *service.StorageService
	friendship     *service.FriendshipService
	group          *service.GroupService
	paymentRequest *service.PaymentRequestService
	bill           *service.BillService
}

type controllers struct {
	auth           *controller.AuthController
	friend         *controller.FriendController
	group          *controller.GroupController
	paymentRequest *controller.PaymentRequestController
	bill           *controller.BillController
	health         *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:           repository.NewUserRepository(db),
		friendship:     repository.NewFriendshipRepository(db, rdb),
		group:          repository.NewGroupRepository(db),
		paymentRequest: repository.NewPaymentRequestRepository(db),
		bill:           repository.NewBillRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(context.Background(), cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.friendship = service.NewFriendshipService(repos.friendship, repos.user)
	s.group = service.NewGroupService(repos.group, repos.friendship)
	s.paymentRequest = service.NewPaymentRequestService(repos.paymentRequest, repos.user, repos.friendship, repos.group, a.Publisher)
	s.bill = service.NewBillService(repos.bill, repos.friendship, repos.group, s.storage, a.Publisher)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:           controller.NewAuthController(s.auth, s.user, a.Config),
		friend:         controller.NewFriendController(s.friendship),
		group:          controller.NewGroupController(s.group),
		paymentRequest: controller.NewPaymentRequestController(s.paymentRequest),
		bill:           controller.NewBillController(s.bill, a.Config),
		health:         controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(logger.GinLogger(), gin.Recovery())
	router.Use(security.CORS(a.CORS))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 && cfg.RateLimit.WindowMinutes > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func initPublisher(cfg *config.KafkaConfig) events.Publisher {
	if !cfg.Enabled {
		return events.NopPublisher{}
	}
	p, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		// 事件仅用于下游通知，Kafka 不可用时不阻止启动
		logger.Log.Error("Failed to initialize kafka publisher, events disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	return p
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式下默认不自动迁移，需显式指定 -migrate
	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb
	app.Publisher = initPublisher(&cfg.Kafka)
	app.CORS = security.NewCORSPolicy(cfg.CORS.AllowedOrigins)

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if _, ok := services.storage.Provider.(*service.LocalStorageProvider); ok {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.CORS.Update(newCfg.CORS.AllowedOrigins)
		logger.Log.Info("CORS origins reloaded", zap.Strings("origins", newCfg.CORS.AllowedOrigins))
	})

	return app
}

func (a *App) watchConfig(ctx context.Context) {
	path := filepath.Join(a.Config.ConfigDir, "config.yaml")
	err := configwatcher.WatchConfig(ctx, path, func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Error("Config watcher stopped", zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if a.Config.WatchConfig {
		go a.watchConfig(watchCtx)
	}

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

	if err := a.Publisher.Close(); err != nil {
		logger.Log.Error("Failed to close event publisher", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}

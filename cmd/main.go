package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	availabilityapp "github.com/diorder/diorder/application/availability"
	cartapp "github.com/diorder/diorder/application/cart"
	catalogapp "github.com/diorder/diorder/application/catalog"
	checkoutapp "github.com/diorder/diorder/application/checkout"
	"github.com/diorder/diorder/cmd/config"
	redisclient "github.com/diorder/diorder/cmd/redis"
	cartlineRepo "github.com/diorder/diorder/repository/cartline"
	dbrepo "github.com/diorder/diorder/repository/db"
	kvRepo "github.com/diorder/diorder/repository/kv"
	menuRepo "github.com/diorder/diorder/repository/menucache"
	merchantRepo "github.com/diorder/diorder/repository/merchantcache"
	txRepo "github.com/diorder/diorder/repository/tx"
	"github.com/diorder/diorder/thirdparty/catalogapi"
	"github.com/diorder/diorder/thirdparty/whatsapp"
	"github.com/diorder/diorder/transport"
	"github.com/diorder/diorder/utils/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from environment variables
	cfg := config.Load()

	// Initialize global logger
	if err := logger.Init(cfg.Environment); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Info("Starting diorder", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the local persistent store. Failure is not fatal: the cart
	// degrades to memory-only for this session.
	var (
		cartLines cartlineRepo.CartLineRepository
		menus     menuRepo.MenuCacheRepository
		merchants merchantRepo.MerchantCacheRepository
		txs       txRepo.TxRepository
	)
	conn, err := openStore(cfg)
	if err != nil {
		logger.Warn("local store unavailable, running memory-only", zap.Error(err))
	} else {
		defer conn.Close()
		cartLines = cartlineRepo.NewCartLineRepository(conn)
		menus = menuRepo.NewMenuCacheRepository(conn)
		merchants = merchantRepo.NewMerchantCacheRepository(conn)
		txs = txRepo.NewTxRepository(conn)
	}

	// Key-value area: redis when reachable, in-memory otherwise.
	var kv kvRepo.Repository
	if err := redisclient.New(cfg); err != nil {
		logger.Warn("redis unavailable, using in-memory key-value area", zap.Error(err))
		kv = kvRepo.NewMemoryRepository()
	} else {
		defer func() {
			_ = redisclient.Close()
		}()
		kv = kvRepo.NewRedisRepository()
	}

	// Application layers
	evaluator := availabilityapp.NewEvaluator()
	tracker := catalogapp.NewTracker(kv, cfg.Catalog.Debounce)
	source := catalogapi.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.FetchTimeout)
	CatalogApp := catalogapp.NewCatalogApp(source, tracker, txs, merchants, menus, evaluator)

	CartApp := cartapp.NewCartApp(cartLines, kv)
	if err := CartApp.Hydrate(ctx); err != nil {
		logger.Warn("cart hydration failed, starting empty", zap.Error(err))
	}

	channel := whatsapp.NewChannel(func(uri string) error {
		// hand-off surface: the UI shell opens the link on the device
		logger.Info("order hand-off", zap.String("uri", uri))
		return nil
	})
	CheckoutApp := checkoutapp.NewCheckoutApp(cfg, CartApp, merchants, evaluator, channel)

	// First settings fetch plus change-notification subscription.
	if err := CatalogApp.RefreshSettings(ctx); err != nil {
		logger.Warn("initial settings fetch failed, assuming open", zap.Error(err))
	}
	consumer, err := catalogapi.NewConsumer(
		cfg.Catalog.Rabbit.Host, cfg.Catalog.Rabbit.Port,
		cfg.Catalog.Rabbit.User, cfg.Catalog.Rabbit.Password,
		CatalogApp.ApplyChange,
	)
	if err != nil {
		logger.Warn("change notifications unavailable", zap.Error(err))
	} else {
		defer consumer.Close()
		if err := consumer.Start(ctx); err != nil {
			logger.Warn("change consumer failed to start", zap.Error(err))
		}
	}

	// Opening-hours are wall-clock driven: recompute once per minute and
	// refresh the service flag behind the debounce.
	go evaluator.Run(ctx, cfg.Order.AvailabilityInterval, func() {
		if err := CatalogApp.RefreshSettings(ctx); err != nil {
			logger.Debug("settings refresh skipped", zap.Error(err))
		}
	})

	orderable := func(merchantID uint64) bool {
		merchant, err := CatalogApp.Merchant(ctx, merchantID)
		if err != nil {
			return false
		}
		return evaluator.Orderable(merchant)
	}

	httpTransport := transport.NewTransport(CartApp, CatalogApp, CheckoutApp, orderable)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpTransport,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("HTTP server running", zap.String("port", cfg.Server.Port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("failed server", zap.Error(err))
	}
}

func openStore(cfg *config.Config) (*sqlx.DB, error) {
	conn, err := dbrepo.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := dbrepo.EnsureSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

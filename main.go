package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Zhima-Mochi/pizzashop/internal/application/assembler"
	"github.com/Zhima-Mochi/pizzashop/internal/application/compose"
	appinv "github.com/Zhima-Mochi/pizzashop/internal/application/inventory"
	apppay "github.com/Zhima-Mochi/pizzashop/internal/application/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/config"
	"github.com/Zhima-Mochi/pizzashop/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/pizzashop/internal/domain/order"
	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/id"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/kafkarelay"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/outbox"
	infrapay "github.com/Zhima-Mochi/pizzashop/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/redisstore"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/pkg/logging"
	"github.com/Zhima-Mochi/pizzashop/internal/presentation/cli"
	httppresentation "github.com/Zhima-Mochi/pizzashop/internal/presentation/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// The terminal belongs to the customer in cli mode.
	output := "stdout"
	if cfg.Mode == config.ModeCLI {
		output = "stderr"
	}
	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Output:  output,
		File:    cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)
	logger := zaplogger.Wrap(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := oteltrace.Setup(ctx, oteltrace.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    true,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer_shutdown_error", observability.F("error", err))
		}
	}()

	tel := infraobs.New(
		oteltrace.New(cfg.ServiceName),
		logger,
		prometrics.New(prometheus.DefaultRegisterer, "", ""),
	)

	store, closeStore, err := openInventory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := outbox.NewBus(logger)
	stock := appinv.NewStockWorker(bus, tel)
	receipts := apppay.NewReceiptWorker(bus, 0, tel)
	stock.Start()
	receipts.Start()

	if cfg.KafkaBroker != "" {
		relay := kafkarelay.New(
			kafkarelay.NewWriter(cfg.KafkaBroker, cfg.KafkaTopic),
			bus, tel,
			dompay.PaymentCompletedEvent{}.EventName(),
			domorder.OrderFinalizedEvent{}.EventName(),
		)
		relay.Start()
		defer func() {
			if err := relay.Close(); err != nil {
				logger.Warn("kafka_relay_close_error", observability.F("error", err))
			}
		}()
		logger.Info("kafka_relay_enabled",
			observability.F("broker", cfg.KafkaBroker),
			observability.F("topic", cfg.KafkaTopic),
		)
	}

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	menu := catalog.Default()
	methods := apppay.NewRegistry().
		MustRegister("1", infrapay.PayPal{}).
		MustRegister("2", infrapay.CreditCard{})

	ids := id.UUID{}
	reserve := appinv.NewReserveUseCase(store, bus, tel)
	chain := compose.NewChain(menu, reserve, ids, bus, tel)
	settle := apppay.NewSettleUseCase(methods, bus, tel)
	asm := assembler.New(chain, settle, ids, bus, tel)

	switch cfg.Mode {
	case config.ModeHTTP:
		return serveHTTP(ctx, cfg, logger, tel, httppresentation.Deps{
			Menu:      menu,
			Methods:   methods,
			Inventory: store,
			Assembler: asm,
			Receipts:  receipts,
			Stockouts: stock,
			Gatherer:  prometheus.DefaultGatherer,
		})
	default:
		runner := cli.New(os.Stdin, os.Stdout, cli.Deps{
			Menu:      menu,
			Methods:   methods,
			Inventory: store,
			Assembler: asm,
		}, logger)
		return runner.Run(ctx)
	}
}

func openInventory(ctx context.Context, cfg config.Config) (dominv.Store, func(), error) {
	switch cfg.InventoryBackend {
	case config.BackendRedis:
		inv, err := redisstore.Open(ctx, cfg.RedisURL, cfg.InventorySeed)
		if err != nil {
			return nil, nil, err
		}
		return inv, func() { _ = inv.Close() }, nil
	default:
		inv, err := memory.NewInventoryStore(cfg.InventorySeed)
		if err != nil {
			return nil, nil, err
		}
		return inv, func() {}, nil
	}
}

func serveHTTP(
	ctx context.Context,
	cfg config.Config,
	logger observability.Logger,
	tel observability.Observability,
	deps httppresentation.Deps,
) error {
	sessions := memory.NewSessionRepository[*assembler.Session]()
	deps.Sessions = sessions
	handler := httppresentation.NewHandler(deps, tel)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go evictIdleSessions(ctx, sessions, cfg.SessionIdle, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("http_server_error", observability.F("error", err))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err))
		return err
	}
	logger.Info("http_server_stopped")
	return nil
}

// evictIdleSessions drops abandoned sessions until ctx is done. Their reserved units
// stay consumed.
func evictIdleSessions(ctx context.Context, sessions *memory.SessionRepository[*assembler.Session], maxIdle time.Duration, logger observability.Logger) {
	ticker := time.NewTicker(max(maxIdle/2, config.MinSessionIdle/2))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.EvictIdle(maxIdle); n > 0 {
				logger.Info("sessions_evicted",
					observability.F("count", n),
					observability.F("remaining", sessions.Len()),
				)
			}
		}
	}
}

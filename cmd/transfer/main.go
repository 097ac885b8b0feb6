// Command transfer derives a wallet from SEED_PHRASE and sends a series of
// small randomized SOL transfers to freshly generated addresses.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sonic-transfer/internal/config"
	"sonic-transfer/internal/console"
	"sonic-transfer/internal/observability"
	"sonic-transfer/internal/solana"
	"sonic-transfer/internal/transfer"
	"sonic-transfer/internal/wallet"
)

func main() {
	logger := log.New(os.Stderr, "[transfer] ", log.LstdFlags)
	printer := console.New(os.Stdout, os.Stderr)
	printer.Banner()

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, stopping after the current transfer", sig)
		cancel()

		// Second signal exits immediately.
		<-sigCh
		os.Exit(1)
	}()

	err := run(ctx, logger, printer, func() (*config.Config, error) { return config.Load() })
	cancel()
	if err != nil {
		printer.Error(err)
		os.Exit(1)
	}
}

// run loads configuration and executes the transfer loop. Nothing touches the
// network until load has returned a complete configuration.
func run(ctx context.Context, logger *log.Logger, printer *console.Printer, load func() (*config.Config, error)) error {
	cfg, err := load()
	if err != nil {
		return err
	}

	from, err := wallet.FromMnemonic(cfg.SeedPhrase)
	if err != nil {
		return fmt.Errorf("derive keypair: %w", err)
	}

	printer.Endpoint(cfg.RPCEndpoint)
	printer.Sender(from.Address())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg, "")

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           observability.NewServeMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
		defer srv.Close()
	}

	opts := []solana.ClientOption{
		solana.WithCommitment(cfg.Commitment),
		solana.WithLatencyObserver(metrics.ObserveRPC),
	}
	if cfg.RPCRateLimit > 0 {
		opts = append(opts, solana.WithRateLimit(cfg.RPCRateLimit))
	}
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, opts...)

	confirmer, closeConfirmer := newConfirmer(ctx, logger, cfg, rpc)
	defer closeConfirmer()

	sender := transfer.NewSender(rpc, confirmer, transfer.WithConfirmTimeout(cfg.ConfirmTimeout))
	runner := transfer.NewRunner(from, rpc, sender, cfg.TransferConfig(),
		transfer.WithReporter(printer),
		transfer.WithRecorder(metrics),
		transfer.WithLogger(logger),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Printf("Run finished: stop=%s succeeded=%d failed=%d sent=%d lamports",
		summary.Stop, summary.Succeeded, summary.Failed, summary.LamportsSent)
	return nil
}

// newConfirmer prefers a signature subscription and falls back to polling
// when the PubSub endpoint is unreachable.
func newConfirmer(ctx context.Context, logger *log.Logger, cfg *config.Config, rpc solana.RPCClient) (solana.Confirmer, func()) {
	polling := &solana.PollingConfirmer{Client: rpc, Commitment: cfg.Commitment}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ws, err := solana.NewWSClient(dialCtx, cfg.WSEndpoint, nil)
	if err != nil {
		logger.Printf("WebSocket unavailable at %s, confirming by polling: %v", cfg.WSEndpoint, err)
		return polling, func() {}
	}

	return &solana.WSConfirmer{
		WS:         ws,
		Client:     rpc,
		Commitment: cfg.Commitment,
		Fallback:   polling,
	}, func() { ws.Close() }
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peerlend/internal/actions"
	"peerlend/internal/chain"
	"peerlend/internal/config"
	"peerlend/internal/docs"
	internalhttp "peerlend/internal/http"
	"peerlend/internal/payload"
	"peerlend/internal/projection"
	"peerlend/internal/session"
	"peerlend/internal/submit"
	"peerlend/internal/wallet"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	rpc, err := chain.NewMultiRPCClient(cfg.Chain.RPCEndpoints, cfg.Chain.FailoverThreshold)
	if err != nil {
		log.Fatalf("chain client init failed: %v", err)
	}

	bridge := wallet.NewBridge(cfg.Wallet.BridgeEndpoint)

	var cache *session.Cache
	if cfg.Cache.Path != "" {
		cache, err = session.OpenCache(cfg.Cache.Path)
		if err != nil {
			log.Printf("session cache unavailable, continuing without: %v", err)
		} else {
			defer cache.Close()
		}
	}

	sessions := session.NewManager(bridge, cache)
	if id := sessions.Restore(); id != nil {
		log.Printf("restored cached session for %s (display only until reconnect)", id.Address())
	}

	builder := payload.Builder{
		ContractAddress: cfg.Chain.ContractAddress,
		ContractModule:  cfg.Chain.ContractModule,
		CoinType:        cfg.Chain.CoinType,
	}
	projector := &projection.Projector{
		Chain:           rpc,
		ContractAddress: cfg.Chain.ContractAddress,
		ContractModule:  cfg.Chain.ContractModule,
		FetchLimit:      cfg.Chain.FetchLimit,
	}
	submitter := &submit.Submitter{
		Chain:          rpc,
		ConfirmTimeout: time.Duration(cfg.Chain.ConfirmTimeoutSeconds) * time.Second,
		PollInterval:   time.Duration(cfg.Chain.PollIntervalMillis) * time.Millisecond,
	}

	h := &internalhttp.Handler{
		Sessions:  sessions,
		Projector: projector,
		Submitter: submitter,
		Builder:   builder,
		Tracker:   actions.NewTracker(),
		Docs:      docs.Hasher{MaxBytes: cfg.Docs.MaxUploadBytes},
		Hub:       internalhttp.NewHub(),
		Chain:     rpc,
	}
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("gateway listening on %s (contract %s::%s)", cfg.Server.Addr, cfg.Chain.ContractAddress, cfg.Chain.ContractModule)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

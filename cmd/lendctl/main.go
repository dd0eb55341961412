// lendctl is an ops tool: it reads the same config as the gateway and dumps
// the ledger's lending book as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"peerlend/internal/chain"
	"peerlend/internal/config"
	"peerlend/internal/projection"
)

func main() {
	cfgPath := flag.String("config", "", "config file path")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		log.Fatalf("usage: lendctl [-config path] info|offers|requests")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	rpc, err := chain.NewMultiRPCClient(cfg.Chain.RPCEndpoints, cfg.Chain.FailoverThreshold)
	if err != nil {
		log.Fatalf("chain client init failed: %v", err)
	}
	projector := &projection.Projector{
		Chain:           rpc,
		ContractAddress: cfg.Chain.ContractAddress,
		ContractModule:  cfg.Chain.ContractModule,
		FetchLimit:      cfg.Chain.FetchLimit,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out any
	switch cmd {
	case "info":
		out, err = rpc.LedgerInfo(ctx)
	case "offers":
		out, err = projector.Offers(ctx)
	case "requests":
		out, err = projector.Requests(ctx)
	default:
		log.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode failed: %v", err)
	}
}

// Copyright (c) 2025 The braidpool developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// braidnoded is the share-chain node daemon: it wires the bead codec (C1),
// braid engine (C2), bead builder (C3), sync protocol (C4), and gossip
// coordinator (C5) together behind the external collaborators the core
// treats as opaque per spec §1 — the miner-facing work protocol, the
// Bitcoin-node IPC client, and the peer overlay are all represented here
// as thin interfaces a real deployment plugs concrete transports into.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/btcsuite/btclog"

	"github.com/braidpool/node/blockchain"
	"github.com/braidpool/node/braid"
	"github.com/braidpool/node/chaincfg"
	"github.com/braidpool/node/internal/braidnodecfg"
	"github.com/braidpool/node/internal/store"
	"github.com/braidpool/node/propagation"
	"github.com/braidpool/node/sharebuilder"
	"github.com/braidpool/node/wire"
)

// version is the daemon's reported build version.
const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, params, _, err := braidnodecfg.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Printf("braidnoded version %s\n", version)
		return nil
	}

	if err := initLogRotator(cfg.LogDir); err != nil {
		return err
	}
	defer logRotator.Close()
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	log := subsystemLoggers["BRAD"]
	log.Infof("braidnoded %s starting, network %s", version, params.Name)

	sink, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening bead store: %w", err)
	}
	defer sink.Close()

	persisted, err := sink.AllBeads()
	if err != nil {
		return fmt.Errorf("loading persisted beads: %w", err)
	}
	log.Infof("loaded %d persisted bead(s) from %s", len(persisted), cfg.DataDir)

	genesis := params.GenesisBeads
	chain := braid.NewSafe(genesis)
	chain.SetValidator(beadValidator(params))

	for i := range persisted {
		if status := chain.Extend(persisted[i]); status != braid.BeadAdded && status != braid.DagAlreadyContainsBead {
			log.Warnf("persisted bead %s did not replay cleanly: %s", persisted[i].BeadHash(), status)
		}
	}

	coordinator := propagation.NewCoordinator(chain, &logPublisher{log: subsystemLoggers["PROP"]},
		cfg.MaxPeers, cfg.MinPeerScore, cfg.IdlePenalty)

	builder := &sharebuilder.Builder{
		Chain:         chain,
		NetworkTarget: params.MinTarget,
		SubmitBlock:   submitToBitcoinNode(subsystemLoggers["SHBD"]),
		Announce: func(bead *wire.Bead, encoded []byte) {
			if err := coordinator.AnnounceLocal(bead); err != nil {
				subsystemLoggers["PROP"].Warnf("announcing locally built bead %s: %v", bead.BeadHash(), err)
			}
		},
	}
	_ = builder // wired for the miner-facing front-end to call BuildShare on; no in-tree front-end exists (out of scope per spec §1)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		maintenanceLoop(ctx, coordinator, log)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-interrupt:
		log.Infof("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()

	drainDeadline := time.Now().Add(5 * time.Second)
	for sink.QueueLen() > 0 && time.Now().Before(drainDeadline) {
		time.Sleep(50 * time.Millisecond)
	}
	log.Infof("shutdown complete, braid holds %d bead(s)", chain.BeadCount())
	return nil
}

// maintenanceLoop periodically runs the propagation coordinator's idle
// decay and eviction sweep, per spec §4.5's maintenance tick, until ctx is
// cancelled.
func maintenanceLoop(ctx context.Context, c *propagation.Coordinator, log btclog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, peerID := range c.Tick() {
				log.Infof("evicting peer %s", peerID)
			}
		}
	}
}

// chainMeetsPolicy reports whether bead's proof-of-work satisfies its own
// committed weak target and that target is at least as hard as the
// network's minimum target policy.
func chainMeetsPolicy(bead *wire.Bead, params *chaincfg.Params) bool {
	if !blockchain.MeetsMinTargetPolicy(bead.Committed.WeakTarget, params.MinTarget) {
		return false
	}
	return blockchain.CheckProofOfWork(bead.BeadHash(), bead.Committed.WeakTarget)
}

// beadValidator is wired into SafeBraid.SetValidator as the second line of
// defense described in braid/types.go: any bead reaching Extend by a path
// other than the local builder (gossip, sync replay) must still satisfy
// weak-target proof-of-work, the network's minimum target policy, and
// carry a signature valid under its own committed public key.
func beadValidator(params *chaincfg.Params) braid.Validator {
	return func(bead *wire.Bead) bool {
		if !chainMeetsPolicy(bead, params) {
			return false
		}
		pubKey, err := sharebuilder.ParseCommPubKey(bead.Committed.CommPubKey)
		if err != nil {
			return false
		}
		return sharebuilder.Verify(pubKey, bead, bead.Uncommitted.Signature)
	}
}

// submitToBitcoinNode returns the external Bitcoin-node IPC sink
// (sharebuilder.BlockSink) this daemon feeds network-target candidates to.
// The IPC client itself is out of scope per spec §1; this stand-in logs
// the candidate a real deployment would submit via RPC.
func submitToBitcoinNode(log btclog.Logger) sharebuilder.BlockSink {
	return func(block *wire.BlockHeader) {
		log.Criticalf("block candidate found: %s (submit to backing Bitcoin node)", block.BlockHash())
	}
}

// logPublisher is the stand-in propagation.Publisher for the peer overlay,
// which spec §1 treats as a black-box transport external to this core. A
// production deployment wires Publish to the overlay's broadcast call; this
// logs the payload size so the wiring point is visible in the daemon's own
// logs.
type logPublisher struct {
	log btclog.Logger
}

func (p *logPublisher) Publish(payload []byte) error {
	p.log.Debugf("publishing %d byte gossip payload to overlay", len(payload))
	return nil
}

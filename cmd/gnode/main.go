// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Command gnode is the urfave/cli entrypoint spec.md's ambient stack calls
// for: it wires chain-spec, datadir and node startup into a running
// execution-layer node (p2p transport + discovery + sync engine).
package main

import (
	"crypto/ecdsa"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/consensus/ethash"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/eth"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/internal/cfgfile"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/p2p"
	"github.com/ethereum/go-ethereum/p2p/discover"
	"github.com/ethereum/go-ethereum/p2p/enode"
)

var (
	dataDirFlag    = &cli.StringFlag{Name: "datadir", Usage: "Data directory for the databases and keystore"}
	listenFlag     = &cli.StringFlag{Name: "port", Usage: "RLPx listen address (host:port)"}
	maxPeersFlag   = &cli.IntFlag{Name: "maxpeers", Usage: "Maximum number of network peers"}
	networkIDFlag  = &cli.Uint64Flag{Name: "networkid", Usage: "Network identifier exchanged in the eth Status handshake"}
	bootnodesFlag  = &cli.StringFlag{Name: "bootnodes", Usage: "Comma separated enode URLs for discovery bootstrap"}
	verbosityFlag  = &cli.IntFlag{Name: "verbosity", Usage: "Logging verbosity: 0=crit,1=error,2=warn,3=info,4=debug,5=trace"}
)

func main() {
	app := &cli.App{
		Name:  "gnode",
		Usage: "an execution-layer full node",
		Flags: []cli.Flag{dataDirFlag, listenFlag, maxPeersFlag, networkIDFlag, bootnodesFlag, verbosityFlag},
		Commands: []*cli.Command{
			{
				Name:   "dumpconfig",
				Usage:  "show the configuration that would be used",
				Action: dumpConfig,
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds a nodeConfig from defaults, the on-disk TOML file (if
// any), then command-line flags, in that override order.
func loadConfig(ctx *cli.Context) (nodeConfig, error) {
	cfg := defaultNodeConfig()
	if ctx.IsSet("datadir") {
		cfg.DataDir = ctx.String("datadir")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return cfg, fmt.Errorf("gnode: creating datadir: %w", err)
	}
	if err := cfgfile.Load(cfg.configFilePath(), &cfg); err != nil && !cfgfile.IsNotExist(err) {
		return cfg, err
	}
	if ctx.IsSet("port") {
		cfg.ListenAddr = ctx.String("port")
	}
	if ctx.IsSet("maxpeers") {
		cfg.MaxPeers = ctx.Int("maxpeers")
	}
	if ctx.IsSet("networkid") {
		cfg.NetworkID = ctx.Uint64("networkid")
	}
	if ctx.IsSet("verbosity") {
		cfg.Verbosity = ctx.Int("verbosity")
	}
	if ctx.IsSet("bootnodes") {
		cfg.Bootnodes = strings.Split(ctx.String("bootnodes"), ",")
	}
	return cfg, nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return cfgfile.Dump(os.Stdout, cfg)
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(cfg.Verbosity), log.Root().GetHandler()))

	nodeKey, err := loadOrCreateNodeKey(cfg.nodeKeyPath())
	if err != nil {
		return fmt.Errorf("gnode: node key: %w", err)
	}

	db, err := leveldb.New(cfg.chainDBPath(), 128, 256, false)
	if err != nil {
		return fmt.Errorf("gnode: opening chain database: %w", err)
	}
	defer db.Close()

	genesis := devGenesis()
	chain, err := core.NewBlockChain(db, genesis.Config, genesis, ethash.New())
	if err != nil {
		return fmt.Errorf("gnode: opening block chain: %w", err)
	}

	pm := eth.NewProtocolManager(cfg.NetworkID, chain)

	bootnodes := make([]*enode.Node, 0, len(cfg.Bootnodes))
	for _, raw := range cfg.Bootnodes {
		if raw == "" {
			continue
		}
		n, err := enode.ParseNode(raw)
		if err != nil {
			log.Warn("invalid bootnode", "url", raw, "err", err)
			continue
		}
		bootnodes = append(bootnodes, n)
	}

	srv := &p2p.Server{Config: p2p.Config{
		PrivateKey:     nodeKey,
		Name:           "gnode",
		ListenAddr:     cfg.ListenAddr,
		MaxPeers:       cfg.MaxPeers,
		Protocols:      pm.Protocols(),
		BootstrapNodes: bootnodes,
	}}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("gnode: starting p2p server: %w", err)
	}
	defer srv.Stop()

	udpConn, disc, err := startDiscovery(cfg, nodeKey, bootnodes)
	if err != nil {
		return fmt.Errorf("gnode: starting discovery: %w", err)
	}
	defer udpConn.Close()
	defer disc.Close()
	go dialDiscovered(srv, disc)

	log.Info("node started", "enode", srv.LocalNode().String(), "datadir", cfg.DataDir)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Info("shutting down")
	return nil
}

// loadOrCreateNodeKey loads the node's persistent identity key from path,
// generating and saving a fresh one on first run so the enode id is
// stable across restarts.
func loadOrCreateNodeKey(path string) (*ecdsa.PrivateKey, error) {
	if key, err := crypto.LoadECDSA(path); err == nil {
		return key, nil
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

// startDiscovery opens the discv4 UDP socket on the same port the RLPx
// listener uses, per spec.md §6's pairing of the two transports at one
// advertised address.
func startDiscovery(cfg nodeConfig, key *ecdsa.PrivateKey, bootnodes []*enode.Node) (*net.UDPConn, *discover.UDP, error) {
	_, portStr, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		return nil, nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, nil, err
	}
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, nil, err
	}
	self := enode.NewNode(enode.PublicKeyToID(&key.PublicKey), nil, uint16(port), uint16(port))
	disc, err := discover.ListenUDP(conn, key, self, bootnodes)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, disc, nil
}

// dialDiscovered periodically looks up fresh peers from the discovery
// table and dials any the p2p server doesn't already know about, the glue
// between C9 (discovery) and C8 (transport) spec.md §4 describes as two
// independent components joined by peer endpoints.
func dialDiscovered(srv *p2p.Server, disc *discover.UDP) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		for _, n := range disc.LookupRandom() {
			go srv.Dial(n)
		}
	}
}


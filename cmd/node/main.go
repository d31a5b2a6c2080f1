// Command node starts a poachain node.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreledger/poachain/config"
	"github.com/coreledger/poachain/core"
	"github.com/coreledger/poachain/crypto/certgen"
	"github.com/coreledger/poachain/events"
	"github.com/coreledger/poachain/gossip"
	"github.com/coreledger/poachain/indexer"
	"github.com/coreledger/poachain/node"
	"github.com/coreledger/poachain/rpc"
	"github.com/coreledger/poachain/storage"
	"github.com/coreledger/poachain/transport"
	"github.com/coreledger/poachain/validator"
	"github.com/coreledger/poachain/vm"
	"github.com/coreledger/poachain/wallet"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "validator.key", "path to validator keystore file")
	genKey := flag.Bool("genkey", false, "generate a new validator key and exit")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("POACHAIN_PASSWORD")
	if password == "" {
		log.Println("WARNING: POACHAIN_PASSWORD not set — keystore will use an empty password")
	}

	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated validator key. Public key: %s\n", w.PrivKey().Public().Hex())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	if *genCerts != "" {
		cfgForCerts, err := loadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if err := certgen.GenerateAll(*genCerts, cfgForCerts.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfgForCerts.NodeID)
		return
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}
	db, err := storage.NewLevelDB(cfg.DataDir + "/chain")
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	blockStore := storage.NewBlockStore(db)
	state := storage.NewStateStore(db)
	machine := vm.New()

	if err := config.BuildGenesisState(cfg, state); err != nil {
		log.Fatalf("genesis state: %v", err)
	}

	var chain *core.Chain
	if blockStore.HasBlock(0) {
		genesis, err := blockStore.GetBlock(0)
		if err != nil {
			log.Fatalf("load genesis: %v", err)
		}
		chain, err = replayChain(blockStore, state, machine, genesis)
		if err != nil {
			log.Fatalf("replay chain: %v", err)
		}
	} else {
		genesis := core.GenesisBlock()
		chain, err = core.New(blockStore, state, machine, genesis)
		if err != nil {
			log.Fatalf("chain init: %v", err)
		}
		log.Println("[chain] genesis block committed")
	}

	emitter := events.NewEmitter()
	chain.SetEmitter(emitter)
	idx := indexer.New(db, emitter)

	mempool := core.NewMempool()

	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	if tlsCfg != nil {
		log.Println("[node] mTLS enabled for P2P")
	}

	tcp := transport.NewTCP(transport.NetAddr(cfg.P2PAddr), tlsCfg)
	if err := tcp.Listen(); err != nil {
		log.Fatalf("p2p listen: %v", err)
	}
	defer tcp.Close()
	log.Printf("[node] P2P listening on %s", cfg.P2PAddr)

	var v node.Validator
	if cfg.ValidatorKeyPath != "" {
		privKey, err := wallet.LoadKey(cfg.ValidatorKeyPath, cfg.ValidatorKeyPassword)
		if err != nil {
			log.Fatalf("load validator key: %v", err)
		}
		v = validator.New(privKey, cfg.BlockPeriod, chain, mempool, gossip.NewSender(tcp))
		log.Printf("[validator] minting enabled (key: %s)", privKey.Public().Hex())
	}

	n := node.New(cfg.NodeID, tcp, chain, mempool, v)

	for _, sp := range cfg.SeedPeers {
		if err := tcp.Connect(transport.PeerAddr(transport.NetAddr(sp.Addr))); err != nil {
			log.Printf("[node] seed peer %s (%s): %v", sp.ID, sp.Addr, err)
			continue
		}
		log.Printf("[node] connected to seed peer %s (%s)", sp.ID, sp.Addr)
	}

	rpcHandler := rpc.NewHandler(chain, mempool, idx)
	rpcServer := rpc.NewServer(cfg.RPCAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("[rpc] listening on %s", cfg.RPCAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("[rpc] Bearer token authentication enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go n.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[node] shutting down...")
	cancel()
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// replayChain rebuilds the in-memory header list from a block store that
// already holds a chain (a restart, not a fresh node).
func replayChain(store *storage.BlockStore, state core.State, exec core.Executor, genesis *core.Block) (*core.Chain, error) {
	chain, err := core.New(store, state, exec, genesis)
	if err != nil {
		return nil, err
	}
	for height := uint32(1); store.HasBlock(height); height++ {
		block, err := store.GetBlock(height)
		if err != nil {
			return nil, fmt.Errorf("replay height %d: %w", height, err)
		}
		if err := chain.AddBlock(block); err != nil {
			return nil, fmt.Errorf("replay height %d: %w", height, err)
		}
	}
	return chain, nil
}

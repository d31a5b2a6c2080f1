package config_test

import (
	"testing"

	"github.com/coreledger/poachain/config"
	"github.com/coreledger/poachain/storage"
)

func TestBuildGenesisStateSeedsAlloc(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Genesis.Alloc = map[string][]byte{
		"deadbeef": []byte("initial value"),
	}
	state := storage.NewStateStore(storage.NewMemDB())

	if err := config.BuildGenesisState(cfg, state); err != nil {
		t.Fatalf("build_genesis_state: %v", err)
	}

	got, err := state.Get([]byte{0xde, 0xad, 0xbe, 0xef})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "initial value" {
		t.Fatalf("want %q, got %q", "initial value", got)
	}
}

func TestBuildGenesisStateRejectsBadHexKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Genesis.Alloc = map[string][]byte{
		"not-hex": []byte("value"),
	}
	state := storage.NewStateStore(storage.NewMemDB())

	if err := config.BuildGenesisState(cfg, state); err == nil {
		t.Fatal("expected error for non-hex alloc key")
	}
}

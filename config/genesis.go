package config

import (
	"encoding/hex"
	"fmt"

	"github.com/coreledger/poachain/core"
)

// BuildGenesisState seeds a fresh State with the config's alloc entries and
// commits them, so the chain's height-0 block starts from a populated view
// rather than an empty one. Call this once, before core.New, against the
// State the chain keeper will own.
func BuildGenesisState(cfg *Config, state core.State) error {
	for keyHex, value := range cfg.Genesis.Alloc {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return fmt.Errorf("genesis alloc key %q: %w", keyHex, err)
		}
		if err := state.Set(key, value); err != nil {
			return fmt.Errorf("genesis alloc set %q: %w", keyHex, err)
		}
	}
	state.Commit()
	return nil
}

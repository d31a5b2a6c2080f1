package indexer_test

import (
	"testing"

	"github.com/coreledger/poachain/events"
	"github.com/coreledger/poachain/indexer"
	"github.com/coreledger/poachain/storage"
)

func TestIndexerTracksCommittedHeights(t *testing.T) {
	db := storage.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	emitter.Emit(events.Event{
		Type:        events.EventBlockCommitted,
		BlockHeight: 1,
		Data:        map[string]any{"hash": "aaaa"},
	})
	emitter.Emit(events.Event{
		Type:        events.EventBlockCommitted,
		BlockHeight: 2,
		Data:        map[string]any{"hash": "bbbb"},
	})

	hash, ok := idx.GetHashAtHeight(2)
	if !ok || hash != "bbbb" {
		t.Fatalf("want hash bbbb at height 2, got %q ok=%v", hash, ok)
	}

	recent, err := idx.RecentHeights(10)
	if err != nil {
		t.Fatalf("recent_heights: %v", err)
	}
	if len(recent) != 2 || recent[0] != 2 || recent[1] != 1 {
		t.Fatalf("want [2 1], got %v", recent)
	}
}

func TestIndexerMissingHeight(t *testing.T) {
	db := storage.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	if _, ok := idx.GetHashAtHeight(42); ok {
		t.Fatal("expected no entry for an unindexed height")
	}
}

func TestIndexerIgnoresEventsWithoutHash(t *testing.T) {
	db := storage.NewMemDB()
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)

	emitter.Emit(events.Event{Type: events.EventBlockCommitted, BlockHeight: 5})

	if _, ok := idx.GetHashAtHeight(5); ok {
		t.Fatal("expected height 5 to remain unindexed without a hash")
	}
}

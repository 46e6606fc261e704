package docstore

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/cryptopulse/signalpipe/internal/models"
)

func TestSaveSignal(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserts a signal document", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		store := &Store{db: mt.DB}
		err := store.SaveSignal(context.Background(), &models.Signal{
			SignalID: "sig-1",
			Asset:    "BTCUSDT",
			Type:     models.SignalLong,
			Score:    80,
		})
		if err != nil {
			mt.Fatalf("SaveSignal returned error: %v", err)
		}
	})
}

func TestLatestMarketSnapshotNoDocuments(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns nil, nil when empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "signalpipe.market_data", mtest.FirstBatch))

		store := &Store{db: mt.DB}
		snap, err := store.LatestMarketSnapshot(context.Background())
		if err != nil {
			mt.Fatalf("LatestMarketSnapshot returned error: %v", err)
		}
		if snap != nil {
			mt.Fatalf("expected nil snapshot, got %+v", snap)
		}
	})
}

func TestRecentSignalsDecodesBatch(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes returned batch", func(mt *mtest.T) {
		first := mtest.CreateCursorResponse(1, "signalpipe.signals", mtest.FirstBatch, bson.D{
			{Key: "signal_id", Value: "sig-1"},
			{Key: "asset", Value: "BTCUSDT"},
		})
		killCursors := mtest.CreateCursorResponse(0, "signalpipe.signals", mtest.NextBatch)
		mt.AddMockResponses(first, killCursors)

		store := &Store{db: mt.DB}
		signals, err := store.RecentSignals(context.Background(), "BTCUSDT", 10)
		if err != nil {
			mt.Fatalf("RecentSignals returned error: %v", err)
		}
		if len(signals) != 1 || signals[0].SignalID != "sig-1" {
			mt.Fatalf("unexpected signals: %+v", signals)
		}
	})
}

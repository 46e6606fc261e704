// Package docstore wraps the MongoDB collections backing the Document
// Store: market_data, analysis, signals, price_updates, and logs. It is
// a thin typed wrapper per collection rather than a generic KV store,
// adapted to Mongo's driver and each collection's own indexes. The
// _migrations ledger in the same database belongs to the external
// migration runner and has no adapter here.
package docstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cryptopulse/signalpipe/internal/libs/errs"
	"github.com/cryptopulse/signalpipe/internal/models"
)

const (
	collMarketData   = "market_data"
	collAnalysis     = "analysis"
	collSignals      = "signals"
	collPriceUpdates = "price_updates"
	collLogs         = "logs"
)

// Store is the process-singleton Mongo handle threaded through every
// service that persists or queries documents.
type Store struct {
	db *mongo.Database
}

// Options carries the pooled-client knobs every service shares.
type Options struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxIdleTime            time.Duration
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

func Connect(ctx context.Context, o Options) (*Store, error) {
	opts := options.Client().
		ApplyURI(o.URI).
		SetMaxPoolSize(o.MaxPoolSize).
		SetMinPoolSize(o.MinPoolSize).
		SetMaxConnIdleTime(o.MaxIdleTime).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ServerSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &Store{db: client.Database(o.Database)}, nil
}

// EnsureIndexes creates a unique index on signals.signal_id and
// timestamp-descending indexes for time-range reads.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{collSignals, mongo.IndexModel{
			Keys:    bson.D{{Key: "signal_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{collSignals, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		}},
		{collMarketData, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		}},
		{collAnalysis, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		}},
		{collPriceUpdates, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		}},
	}

	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) SaveMarketSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	if _, err := s.db.Collection(collMarketData).InsertOne(ctx, snap); err != nil {
		return &errs.DatabaseError{Op: "insert", Collection: collMarketData, Err: err}
	}
	return nil
}

func (s *Store) LatestMarketSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	err := s.db.Collection(collMarketData).FindOne(ctx, bson.D{}, opts).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) SaveAnalysis(ctx context.Context, doc *models.AnalysisDocument) error {
	if _, err := s.db.Collection(collAnalysis).InsertOne(ctx, doc); err != nil {
		return &errs.DatabaseError{Op: "insert", Collection: collAnalysis, Err: err}
	}
	return nil
}

// LatestAnalysis returns the most recent AnalysisDocument. One document
// covers every symbol analyzed in a cycle, so there is no per-asset filter
// to apply here.
func (s *Store) LatestAnalysis(ctx context.Context) (*models.AnalysisDocument, error) {
	var doc models.AnalysisDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	err := s.db.Collection(collAnalysis).FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveSignal enforces the unique signal_id index; a duplicate insert
// keeps mongo's duplicate-key error in the wrapped chain so callers can
// distinguish "already emitted" from a genuine failure.
func (s *Store) SaveSignal(ctx context.Context, sig *models.Signal) error {
	if _, err := s.db.Collection(collSignals).InsertOne(ctx, sig); err != nil {
		return &errs.DatabaseError{Op: "insert", Collection: collSignals, Err: err}
	}
	return nil
}

func (s *Store) RecentSignals(ctx context.Context, asset string, limit int64) ([]models.Signal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)

	filter := bson.M{}
	if asset != "" {
		filter["asset"] = asset
	}

	cur, err := s.db.Collection(collSignals).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Signal
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SavePriceUpdate(ctx context.Context, update *models.PriceUpdate) error {
	if _, err := s.db.Collection(collPriceUpdates).InsertOne(ctx, update); err != nil {
		return &errs.DatabaseError{Op: "insert", Collection: collPriceUpdates, Err: err}
	}
	return nil
}

// LogEntry is the persisted shape for the logs collection, a durable
// complement to the structured stdout logging every service also emits.
type LogEntry struct {
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
	Service       string    `bson:"service" json:"service"`
	Level         string    `bson:"level" json:"level"`
	Message       string    `bson:"message" json:"message"`
	CorrelationID string    `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
}

func (s *Store) SaveLog(ctx context.Context, entry LogEntry) error {
	if _, err := s.db.Collection(collLogs).InsertOne(ctx, entry); err != nil {
		return &errs.DatabaseError{Op: "insert", Collection: collLogs, Err: err}
	}
	return nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// Ping is the liveness probe the kernel's /health surface polls.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

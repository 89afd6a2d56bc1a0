// Package mongo provides a cache.Backend on a MongoDB collection.
//
// Documents are keyed by cache key. expires_at is the end of the stale
// retention window; a TTL index on it lets the server drop old entries.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/httputil"
)

// Defaults for [Open].
const (
	DefaultDatabase       = "showcase"
	DefaultCollection     = "cache_entries"
	DefaultStaleRetention = 24 * time.Hour

	pingTimeout = 5 * time.Second
)

type document struct {
	Key        string    `bson:"_id"`
	Value      []byte    `bson:"value"`
	StoredAt   int64     `bson:"stored_at"` // Unix nanoseconds, BSON dates lose precision
	TTL        int64     `bson:"ttl"`
	Token      string    `bson:"token,omitempty"`
	SourcePath string    `bson:"source_path,omitempty"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// Backend stores entries in a MongoDB collection.
type Backend struct {
	client         *mongo.Client
	coll           *mongo.Collection
	staleRetention time.Duration
}

// Option configures a [Backend].
type Option func(*config)

type config struct {
	database       string
	collection     string
	staleRetention time.Duration
}

// WithDatabase overrides [DefaultDatabase].
func WithDatabase(name string) Option {
	return func(c *config) { c.database = name }
}

// WithCollection overrides [DefaultCollection].
func WithCollection(name string) Option {
	return func(c *config) { c.collection = name }
}

// WithStaleRetention sets how long a stale entry outlives its TTL.
func WithStaleRetention(d time.Duration) Option {
	return func(c *config) { c.staleRetention = d }
}

// Open connects to uri, pings the server until it answers and ensures the
// TTL index exists.
func Open(ctx context.Context, uri string, opts ...Option) (*Backend, error) {
	cfg := config{
		database:       DefaultDatabase,
		collection:     DefaultCollection,
		staleRetention: DefaultStaleRetention,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	err = httputil.RetryWithBackoff(ctx, func() error {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return httputil.Retryable(client.Ping(pctx, nil))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.database).Collection(cfg.collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create ttl index: %w", err)
	}

	return &Backend{client: client, coll: coll, staleRetention: cfg.staleRetention}, nil
}

func (b *Backend) Load(ctx context.Context, key string) (*cache.Entry, error) {
	var doc document
	err := b.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cache.Entry{
		Value:      doc.Value,
		StoredAt:   time.Unix(0, doc.StoredAt).UTC(),
		TTL:        time.Duration(doc.TTL),
		Token:      doc.Token,
		SourcePath: doc.SourcePath,
	}, nil
}

func (b *Backend) Save(ctx context.Context, key string, e *cache.Entry) error {
	doc := document{
		Key:        key,
		Value:      e.Value,
		StoredAt:   e.StoredAt.UnixNano(),
		TTL:        int64(e.TTL),
		Token:      e.Token,
		SourcePath: e.SourcePath,
		ExpiresAt:  e.ExpiresAt().Add(b.staleRetention),
	}
	_, err := b.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (b *Backend) Touch(ctx context.Context, key string, storedAt time.Time, ttl time.Duration) error {
	res, err := b.coll.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": bson.M{
		"stored_at":  storedAt.UnixNano(),
		"ttl":        int64(ttl),
		"expires_at": storedAt.Add(ttl + b.staleRetention),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return cache.ErrCacheMiss
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (b *Backend) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := b.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, doc.Key)
	}
	return keys, cur.Err()
}

// Drop removes the whole collection, including its index.
func (b *Backend) Drop(ctx context.Context) error {
	return b.coll.Drop(ctx)
}

// Close disconnects the client.
func (b *Backend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

var _ cache.Backend = (*Backend)(nil)

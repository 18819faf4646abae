package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/kevinaaaquil/bookswap/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/singleflight"
)

const defaultDialTimeout = 30 * time.Second

// ErrDuplicate is returned when an insert or update violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

// Options tunes the driver's connection pool.
type Options struct {
	MaxPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	MaxConnIdleTime        time.Duration
}

type conn struct {
	client   *mongo.Client
	database *mongo.Database
}

// DB is the persistence gateway. It does not dial until first use; concurrent first
// callers share one connection attempt.
type DB struct {
	uri    string
	dbName string
	opts   Options

	group singleflight.Group
	conn  atomic.Pointer[conn]
}

func New(uri, dbName string, opts Options) *DB {
	return &DB{uri: uri, dbName: dbName, opts: opts}
}

// Connect establishes the connection if it is not already up. Safe to call repeatedly.
func (db *DB) Connect(ctx context.Context) error {
	_, err := db.database(ctx)
	return err
}

func (db *DB) database(ctx context.Context) (*mongo.Database, error) {
	if c := db.conn.Load(); c != nil {
		return c.database, nil
	}
	ch := db.group.DoChan("connect", func() (interface{}, error) {
		if c := db.conn.Load(); c != nil {
			return c, nil
		}
		// The attempt is shared, so it must outlive whichever caller started it.
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), db.dialTimeout())
		defer cancel()
		c, err := db.dial(dialCtx)
		if err != nil {
			return nil, err
		}
		db.conn.Store(c)
		return c, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*conn).database, nil
	}
}

// dialTimeout bounds one connection attempt: connecting plus the first server selection.
func (db *DB) dialTimeout() time.Duration {
	d := db.opts.ConnectTimeout + db.opts.ServerSelectionTimeout
	if d <= 0 {
		return defaultDialTimeout
	}
	return d
}

func (db *DB) dial(ctx context.Context) (*conn, error) {
	clientOpts := options.Client().ApplyURI(db.uri)
	if db.opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(db.opts.MaxPoolSize)
	}
	if db.opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(db.opts.ConnectTimeout)
	}
	if db.opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(db.opts.ServerSelectionTimeout)
	}
	if db.opts.SocketTimeout > 0 {
		clientOpts.SetSocketTimeout(db.opts.SocketTimeout)
	}
	if db.opts.MaxConnIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(db.opts.MaxConnIdleTime)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Log.Infow("connected to mongodb", "database", db.dbName)
	return &conn{client: client, database: client.Database(db.dbName)}, nil
}

func (db *DB) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	d, err := db.database(ctx)
	if err != nil {
		return nil, err
	}
	return d.Collection(name), nil
}

func (db *DB) users(ctx context.Context) (*mongo.Collection, error) {
	return db.collection(ctx, "users")
}

func (db *DB) books(ctx context.Context) (*mongo.Collection, error) {
	return db.collection(ctx, "books")
}

// EnsureIndexes creates the unique user indexes and the listing sort indexes.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	users, err := db.users(ctx)
	if err != nil {
		return err
	}
	_, err = users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	books, err := db.books(ctx)
	if err != nil {
		return err
	}
	_, err = books.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

// Disconnect closes the pool. Calling it on a gateway that never connected is a no-op.
func (db *DB) Disconnect(ctx context.Context) error {
	c := db.conn.Swap(nil)
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func duplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

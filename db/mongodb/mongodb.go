package mongodb

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.wheelz.io/wchain/db"
	"go.wheelz.io/wchain/log"
)

const (
	// TimeoutConnect is the timeout for connecting to the database
	TimeoutConnect = 10 * time.Second
	// TimeoutCommit is the timeout for committing a batch transaction
	TimeoutCommit = 12 * time.Second
	// TimeoutQuery is the timeout for querying the database
	TimeoutQuery = 4 * time.Second
)

// MongoDB is a MongoDB implementation of the db.Database interface
type MongoDB struct {
	db         *mongo.Database
	collection string
}

type keyVal struct {
	Key   string `bson:"_id" json:"key"`
	Value []byte `bson:"value" json:"value"`
}

// New connects to the MongoDB pointed to by opts.URL (or $WCHAIN_MONGODB_URL)
// and returns a db.Database backed by a single collection derived from
// opts.Path.
func New(opts db.Options) (*MongoDB, error) {
	url := opts.URL
	if url == "" {
		url = os.Getenv("WCHAIN_MONGODB_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("missing mongodb URL (set WCHAIN_MONGODB_URL)")
	}
	// we use the path as the collection name (and we hash it to avoid invalid chars)
	collection := fmt.Sprintf("%x", sha256.Sum256([]byte(opts.Path)))[:12]
	log.Debugw("connecting to mongo database", "collection", collection)
	clientOptions := options.Client().ApplyURI(url).SetMaxConnecting(20)
	ctx, cancel := context.WithTimeout(context.Background(), TimeoutConnect)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	database := client.Database(collection)

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}

	return &MongoDB{db: database, collection: collection}, nil
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return d.db.Client().Disconnect(ctx)
}

func (d *MongoDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:         d.db,
		inMem:      make(map[string][]byte),
		collection: d.collection,
	}
}

func (d *MongoDB) Get(key []byte) ([]byte, error) {
	tx := d.WriteTx()
	defer tx.Discard()
	return tx.Get(key)
}

func (d *MongoDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	tx := d.WriteTx()
	defer tx.Discard()
	return tx.Iterate(prefix, callback)
}

// check that WriteTx implements the db.WriteTx interface
var _ db.WriteTx = (*WriteTx)(nil)

// WriteTx implements db.WriteTx by buffering writes into a bulk operation,
// keeping an in-memory overlay for read-your-writes.
type WriteTx struct {
	db         *mongo.Database
	batch      []mongo.WriteModel
	inMem      map[string][]byte
	collection string
}

func (tx *WriteTx) Get(k []byte) ([]byte, error) {
	if val, ok := tx.inMem[string(k)]; ok {
		return val, nil
	}
	collection := tx.db.Collection(tx.collection)

	filter := bson.M{"_id": string(k)}
	var result keyVal
	ctx, cancel := context.WithTimeout(context.Background(), TimeoutQuery)
	defer cancel()
	err := collection.FindOne(ctx, filter).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, db.ErrKeyNotFound
	}
	return result.Value, err
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	// First, handle in-memory keys. The prefix is stripped from the keys
	// passed to the callback, same as the pebble backend.
	for k, v := range tx.inMem {
		if strings.HasPrefix(k, string(prefix)) {
			if !callback([]byte(k[len(prefix):]), v) {
				return nil
			}
		}
	}

	// Now, handle database keys, but skip those already handled from the
	// in-memory overlay
	collection := tx.db.Collection(tx.collection)

	filter := bson.M{}
	if len(prefix) > 0 {
		filter = bson.M{
			"_id": bson.M{
				"$regex": primitive.Regex{
					Pattern: "^" + string(prefix),
				},
			},
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), TimeoutQuery)
	defer cancel()
	cursor, err := collection.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var kv keyVal
		if err := cursor.Decode(&kv); err != nil {
			return err
		}
		if _, exists := tx.inMem[kv.Key]; exists {
			continue
		}
		if !callback([]byte(kv.Key[len(prefix):]), kv.Value) {
			break
		}
	}
	return nil
}

func (tx *WriteTx) Set(k, v []byte) error {
	if tx.inMem == nil {
		tx.inMem = make(map[string][]byte)
	}
	update := bson.D{
		primitive.E{Key: "$set", Value: bson.D{
			primitive.E{Key: "value", Value: v},
		}},
	}
	model := mongo.NewUpdateOneModel().SetFilter(
		bson.D{
			primitive.E{
				Key:   "_id",
				Value: string(k),
			},
		},
	).SetUpsert(true).SetUpdate(update)

	tx.batch = append(tx.batch, model)
	tx.inMem[string(k)] = v
	return nil
}

func (tx *WriteTx) Delete(k []byte) error {
	model := mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": string(k)})
	tx.batch = append(tx.batch, model)
	delete(tx.inMem, string(k))
	return nil
}

func (tx *WriteTx) Commit() error {
	if len(tx.batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), TimeoutCommit)
	defer cancel()
	collection := tx.db.Collection(tx.collection)
	_, err := collection.BulkWrite(ctx, tx.batch)
	return err
}

func (tx *WriteTx) Discard() {
	tx.batch = nil
	tx.inMem = make(map[string][]byte)
}

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// record is the persisted shape of one section.
type record struct {
	Name string      `bson:"name"`
	Data interface{} `bson:"data"`
}

// Mongo reads {name, data} records from one collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection

	indexOnce sync.Once
	indexErr  error
}

// OpenMongo connects to uri and pings the primary. The caller's ctx bounds
// both steps.
func OpenMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("store: mongodb: empty uri")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: mongodb: ping: %w", err)
	}
	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (m *Mongo) Get(ctx context.Context, k types.Key) (json.RawMessage, error) {
	raw, err := m.coll.FindOne(ctx, bson.D{{Key: "name", Value: string(k)}}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: mongodb: find %s: %w", k, err)
	}

	rv, err := raw.LookupErr("data")
	if err != nil {
		return nil, ErrNotFound
	}
	out, err := rawValueToJSON(rv)
	if err != nil {
		return nil, fmt.Errorf("store: mongodb: decode %s: %w", k, err)
	}
	if types.IsEmpty(out) {
		return nil, ErrNotFound
	}
	return out, nil
}

// Put upserts the record for k. The unique index on name is created on first use.
func (m *Mongo) Put(ctx context.Context, k types.Key, data json.RawMessage) error {
	m.indexOnce.Do(func() {
		_, m.indexErr = m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	})
	if m.indexErr != nil {
		return fmt.Errorf("store: mongodb: ensure index: %w", m.indexErr)
	}

	v, err := jsonToBSON(data)
	if err != nil {
		return fmt.Errorf("store: mongodb: encode %s: %w", k, err)
	}
	_, err = m.coll.ReplaceOne(ctx,
		bson.D{{Key: "name", Value: string(k)}},
		record{Name: string(k), Data: v},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("store: mongodb: upsert %s: %w", k, err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// rawValueToJSON renders one BSON value as relaxed Extended JSON, which is
// plain JSON for every type a JSON seed can produce.
func rawValueToJSON(rv bson.RawValue) (json.RawMessage, error) {
	if rv.Type == bson.TypeNull || rv.Type == bson.TypeUndefined {
		return json.RawMessage("null"), nil
	}
	ext, err := bson.MarshalExtJSON(bson.D{{Key: "data", Value: rv}}, false, false)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(ext, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Data, nil
}

// jsonToBSON converts arbitrary JSON into a value the driver can store,
// preserving key order (nested objects become bson.D).
func jsonToBSON(data json.RawMessage) (interface{}, error) {
	if !json.Valid(data) {
		return nil, errors.New("invalid JSON")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"data":`)
	buf.Write(data)
	buf.WriteString(`}`)

	var doc bson.D
	if err := bson.UnmarshalExtJSON(buf.Bytes(), false, &doc); err != nil {
		return nil, err
	}
	if len(doc) != 1 {
		return nil, errors.New("unexpected wrapper shape")
	}
	return doc[0].Value, nil
}

package artifactstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore persists artifacts as documents in a MongoDB collection —
// useful when a build farm shares a cache across many compiler workers.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type artifactDoc struct {
	Key        string    `bson:"_id"`
	ID         string    `bson:"id"`
	UnitName   string    `bson:"unit_name"`
	Bytecode   []byte    `bson:"bytecode"`
	SourceHash string    `bson:"source_hash"`
	CompiledAt time.Time `bson:"compiled_at"`
}

// OpenMongoStore connects to uri and returns a Store backed by the
// "ember_artifacts" collection of the named database.
func OpenMongoStore(ctx context.Context, uri string, dbName string) (*MongoStore, error) {
	if dbName == "" {
		dbName = "emberc"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection("ember_artifacts"),
	}, nil
}

func (s *MongoStore) Put(ctx context.Context, a Artifact) error {
	doc := artifactDoc{Key: a.Key, ID: a.ID.String(), UnitName: a.UnitName, Bytecode: a.Bytecode, SourceHash: a.SourceHash, CompiledAt: a.CompiledAt}
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": a.Key}, doc, opts)
	return err
}

func (s *MongoStore) Get(ctx context.Context, key string) (Artifact, error) {
	var doc artifactDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Artifact{}, ErrNotFound
	}
	if err != nil {
		return Artifact{}, err
	}
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifactstore: get %s: parse id: %w", key, err)
	}
	return Artifact{Key: doc.Key, ID: id, UnitName: doc.UnitName, Bytecode: doc.Bytecode, SourceHash: doc.SourceHash, CompiledAt: doc.CompiledAt}, nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (s *MongoStore) List(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{}
	if prefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + prefix}
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, doc.Key)
	}
	return keys, cursor.Err()
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

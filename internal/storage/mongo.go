package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "kv_slots"

type MongoBackend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type slotDocument struct {
	InstallationID string    `bson:"installation_id"`
	Slot           string    `bson:"slot"`
	Value          string    `bson:"value"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoBackend, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	coll := client.Database(database).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "installation_id", Value: 1}, {Key: "slot", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating mongo index: %w", err)
	}
	return &MongoBackend{client: client, coll: coll}, nil
}

func (b *MongoBackend) Get(ctx context.Context, installation, slot string) ([]byte, bool, error) {
	var doc slotDocument
	err := b.coll.FindOne(ctx, bson.M{"installation_id": installation, "slot": slot}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return []byte(doc.Value), true, nil
}

func (b *MongoBackend) Set(ctx context.Context, installation, slot string, value []byte) error {
	filter := bson.M{"installation_id": installation, "slot": slot}
	update := bson.M{"$set": bson.M{"value": string(value), "updated_at": time.Now().UTC()}}
	_, err := b.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", slot, err)
	}
	return nil
}

func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/service/i"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultQueryTimeout = 2 * time.Second

type mazeConfigDoc struct {
	Name      string                `bson:"_id"`
	Config    mazeconfig.MazeConfig `bson:"config"`
	UpdatedAt time.Time             `bson:"updatedAt"`
}

// MazeConfigRepo keeps named maze configs in MongoDB.
type MazeConfigRepo struct {
	collection *mongo.Collection
}

var _ i.MazeConfigRepo = &MazeConfigRepo{}

// NewMazeConfigRepo creates a MazeConfigRepo on the given collection.
func NewMazeConfigRepo(client *mongo.Client, dbName, collectionName string) *MazeConfigRepo {
	return &MazeConfigRepo{
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// Save inserts or replaces the config stored under name.
func (r *MazeConfigRepo) Save(ctx context.Context, name string, cfg mazeconfig.MazeConfig) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	doc := mazeConfigDoc{Name: name, Config: cfg, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": name}, doc, opts); err != nil {
		return fmt.Errorf("saving maze config %q: %w", name, err)
	}
	return nil
}

// ByName returns the config stored under name.
func (r *MazeConfigRepo) ByName(ctx context.Context, name string) (mazeconfig.MazeConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var doc mazeConfigDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return mazeconfig.MazeConfig{}, fmt.Errorf("maze config %q: %w", name, ErrNotFound)
		}
		return mazeconfig.MazeConfig{}, errors.New("unexpected error: " + err.Error())
	}
	return doc.Config, nil
}

// Names lists the stored config names in ascending order.
func (r *MazeConfigRepo) Names(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.New("unexpected error: " + err.Error())
	}
	defer cursor.Close(ctx)

	names := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Name string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		names = append(names, doc.Name)
	}
	return names, cursor.Err()
}

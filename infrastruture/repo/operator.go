package repo

import (
	"context"
	"errors"
	"time"

	"github.com/beka-birhanu/vinom-arena/identity"
	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNameConflict = errors.New("operator name conflict")
)

// OperatorRepo handles the persistence of operator accounts.
type OperatorRepo struct {
	collection *mongo.Collection
}

var _ i.OperatorRepo = &OperatorRepo{}

// NewOperatorRepo creates a new OperatorRepo with the given MongoDB client, database name, and collection name.
func NewOperatorRepo(client *mongo.Client, dbName, collectionName string) *OperatorRepo {
	collection := client.Database(dbName).Collection(collectionName)
	return &OperatorRepo{
		collection: collection,
	}
}

// EnsureIndexes makes operator names unique.
func (r *OperatorRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Save inserts or updates an operator.
func (r *OperatorRepo) Save(op *identity.Operator) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	filter := bson.M{"_id": op.ID}
	update := bson.M{
		"$set": bson.M{
			"name":       op.Name,
			"secretHash": op.SecretHash,
			"updatedAt":  time.Now(),
		},
		"$setOnInsert": bson.M{
			"createdAt": op.CreatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrNameConflict
		}
		return errors.New("unexpected error: " + err.Error())
	}

	return nil
}

// ByID retrieves an operator by its ID.
func (r *OperatorRepo) ByID(id uuid.UUID) (*identity.Operator, error) {
	return r.findOne(bson.M{"_id": id})
}

// ByName retrieves an operator by its name.
func (r *OperatorRepo) ByName(name string) (*identity.Operator, error) {
	return r.findOne(bson.M{"name": name})
}

func (r *OperatorRepo) findOne(filter bson.M) (*identity.Operator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var op identity.Operator
	if err := r.collection.FindOne(ctx, filter).Decode(&op); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, errors.New("unexpected error: " + err.Error())
	}
	return &op, nil
}

package repository

import (
	"context"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DrawingRepository struct {
	db *mongo.Database
}

func NewDrawingRepository(db *mongo.Database) *DrawingRepository {
	return &DrawingRepository{db: db}
}

// SaveDrawing replaces the room's stored snapshot.
func (r *DrawingRepository) SaveDrawing(ctx context.Context, snapshot domain.DrawingSnapshot) error {
	if snapshot.RoomID == "" {
		return domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.DrawingsCollection)

	_, err := collection.ReplaceOne(ctx,
		bson.M{"room_id": snapshot.RoomID},
		newDrawingDocument(snapshot),
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *DrawingRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.DrawingsCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RoomRepository struct {
	db *mongo.Database
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Register(ctx context.Context, room *domain.RoomRecord) error {
	if room == nil || room.ID == "" {
		return domain.ErrInvalidInput
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}

	collection := r.db.Collection(db.RoomsCollection)

	_, err := collection.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrRoomAlreadyExists
	}
	return err
}

func (r *RoomRepository) GetByID(ctx context.Context, roomID string) (*domain.RoomRecord, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	var room domain.RoomRecord
	err := collection.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrCatalogNotFound
	}
	if err != nil {
		return nil, err
	}

	return &room, nil
}

func (r *RoomRepository) Exists(ctx context.Context, roomID string) (bool, error) {
	if roomID == "" {
		return false, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	n, err := collection.CountDocuments(ctx, bson.M{"roomId": roomID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RoomRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.RoomsCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

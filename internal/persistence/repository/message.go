package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) SaveMessage(ctx context.Context, message domain.ChatEvent) error {
	if message.RoomID == "" {
		return domain.ErrInvalidInput
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.InsertOne(ctx, newMessageDocument(message))
	return err
}

func (r *MessageRepository) GetByRoomID(ctx context.Context, roomID string, limit int) ([]domain.ChatEvent, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.MessagesCollection)

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := collection.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	// Newest first from the query; callers expect arrival order.
	messages := make([]domain.ChatEvent, len(docs))
	for i, doc := range docs {
		messages[len(docs)-1-i] = doc.toDomain()
	}

	return messages, nil
}

func (r *MessageRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "timestamp", Value: -1},
		},
	})
	return err
}

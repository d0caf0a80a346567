package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/configs"
	"github.com/hilthontt/sketchroom/internal/persistence/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestDocumentMapping(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	event := domain.ChatEvent{
		ID:           "m1",
		RoomID:       "r1",
		DisplayName:  "alice",
		Text:         "hi",
		Timestamp:    ts,
		UserID:       3,
		ConnectionID: "c1",
	}

	assert.Equal(t, event, newMessageDocument(event).toDomain())

	doc := newDrawingDocument(domain.DrawingSnapshot{
		RoomID:    "r1",
		Strokes:   []domain.StrokeEvent{{Data: map[string]any{"x": 1.0}, UserID: 3, ConnectionID: "c1", Timestamp: ts}},
		UpdatedAt: ts,
	})
	require.Len(t, doc.Strokes, 1)
	assert.Equal(t, int64(3), doc.Strokes[0].UserID)
	assert.Equal(t, "r1", doc.RoomID)
}

// mongoDatabase connects to MONGODB_URI or skips the test.
func mongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	cfg := configs.MongoConfig{
		URI:               uri,
		Database:          "sketchroom_test_" + uuid.NewString()[:8],
		ConnectionTimeout: 5 * time.Second,
	}
	client, err := db.NewMongoClient(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	database := db.GetDatabase(client, cfg)
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = db.DisconnectMongo(context.Background(), client)
	})

	return database
}

func TestMongoRepositories(t *testing.T) {
	database := mongoDatabase(t)
	ctx := context.Background()

	rooms := NewRoomRepository(database)
	require.NoError(t, rooms.EnsureIndexes(ctx))
	require.NoError(t, rooms.Register(ctx, &domain.RoomRecord{ID: "r1", Name: "Sketch"}))
	assert.ErrorIs(t, rooms.Register(ctx, &domain.RoomRecord{ID: "r1"}), domain.ErrRoomAlreadyExists)

	ok, err := rooms.Exists(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = rooms.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCatalogNotFound)

	messages := NewMessageRepository(database)
	require.NoError(t, messages.EnsureIndexes(ctx))
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, text := range []string{"a", "b", "c"} {
		require.NoError(t, messages.SaveMessage(ctx, domain.ChatEvent{
			RoomID:    "r1",
			Text:      text,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	got, err := messages.GetByRoomID(ctx, "r1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Text)
	assert.Equal(t, "c", got[1].Text)

	drawings := NewDrawingRepository(database)
	require.NoError(t, drawings.EnsureIndexes(ctx))
	require.NoError(t, drawings.SaveDrawing(ctx, domain.DrawingSnapshot{RoomID: "r1", UpdatedAt: base}))
	require.NoError(t, drawings.SaveDrawing(ctx, domain.DrawingSnapshot{RoomID: "r1", UpdatedAt: base.Add(time.Second)}))
	n, err := database.Collection(db.DrawingsCollection).CountDocuments(ctx, map[string]any{"room_id": "r1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

package rooms

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/json"
	"github.com/hilthontt/sketchroom/internal/infrastructure/registry"
	"go.uber.org/zap"
)

const maxRoomIDLength = 128

type Handler struct {
	catalog  domain.RoomCatalog
	registry *registry.Registry
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewHandler(catalog domain.RoomCatalog, registry *registry.Registry, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		catalog:  catalog,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRoomHandler registers a room id in the catalog. A random id is
// assigned when the client does not pick one.
func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(w, r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		roomID = uuid.NewString()
	}
	if len(roomID) > maxRoomIDLength {
		json.WriteBadRequestError(w, "Room ID is too long")
		return
	}

	room := &domain.RoomRecord{
		ID:        roomID,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: h.now().UTC(),
	}

	if err := h.catalog.Register(r.Context(), room); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomAlreadyExists):
			json.WriteConflictError(w, "Room already exists")
		default:
			json.WriteInternalError(w, h.logger, err)
		}
		return
	}

	h.logger.Infow("room registered", "room_id", room.ID)

	json.Write(w, http.StatusCreated, roomResponse{
		RoomID:    room.ID,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
	})
}

// GetRoomHandler is the pre-session existence check. Live member counts
// come from the in-memory registry.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteBadRequestError(w, "Room ID is missing")
		return
	}

	room, err := h.catalog.GetByID(r.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCatalogNotFound):
			json.WriteNotFoundError(w, "Room not found")
		default:
			json.WriteInternalError(w, h.logger, err)
		}
		return
	}

	json.Write(w, http.StatusOK, roomResponse{
		RoomID:      room.ID,
		Name:        room.Name,
		CreatedAt:   room.CreatedAt,
		MemberCount: h.registry.MemberCount(room.ID),
	})
}

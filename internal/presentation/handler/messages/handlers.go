package messages

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/json"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Handler struct {
	archive domain.ChatArchive
	logger  *zap.SugaredLogger
}

func NewHandler(archive domain.ChatArchive, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		archive: archive,
		logger:  logger,
	}
}

// ListMessagesHandler returns archived chat messages, oldest first.
func (h *Handler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteBadRequestError(w, "Room ID is missing")
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			json.WriteBadRequestError(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}

	archived, err := h.archive.GetByRoomID(r.Context(), roomID, limit)
	if err != nil {
		json.WriteInternalError(w, h.logger, err)
		return
	}

	resp := listMessagesResponse{
		RoomID:   roomID,
		Messages: make([]messageResponse, 0, len(archived)),
	}
	for _, m := range archived {
		resp.Messages = append(resp.Messages, messageResponse{
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    m.UserID,
			Username:  m.DisplayName,
			Message:   m.Text,
			Timestamp: m.Timestamp,
		})
	}

	json.Write(w, http.StatusOK, resp)
}

package health

import (
	"net/http"
	"time"

	"github.com/hilthontt/sketchroom/internal/infrastructure/json"
)

// StatsFunc reports live room and member counts.
type StatsFunc func() (rooms, members int)

type Handler struct {
	startedAt time.Time
	stats     StatsFunc
	now       func() time.Time
}

func NewHandler(stats StatsFunc) *Handler {
	return &Handler{
		startedAt: time.Now(),
		stats:     stats,
		now:       time.Now,
	}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	data := healthResponse{
		Status:    "ok",
		Timestamp: now.UTC().Format(time.RFC3339),
		Uptime:    now.Sub(h.startedAt).Truncate(time.Second).String(),
	}
	if h.stats != nil {
		data.Rooms, data.Members = h.stats()
	}

	json.Write(w, http.StatusOK, data)
}

package handler

import (
	"net/http"

	"github.com/mcoot/gobang-online/internal/api/response"
	"github.com/mcoot/gobang-online/internal/model"
)

// StatsSource exposes the live counters reported by the stats endpoint
type StatsSource interface {
	PresenceCount(ctx model.PresenceContext) int
	RoomCount() int
	SessionCount() int
	QueueLen(tier model.Tier) int
}

// StatsHandler reports server state
type StatsHandler struct {
	source StatsSource
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source}
}

// Get handles GET /api/v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	queues := make(map[string]int, 3)
	for _, tier := range model.Tiers() {
		queues[string(tier)] = h.source.QueueLen(tier)
	}

	response.JSON(w, http.StatusOK, response.Stats{
		HallUsers: h.source.PresenceCount(model.ContextHall),
		RoomUsers: h.source.PresenceCount(model.ContextRoom),
		Rooms:     h.source.RoomCount(),
		Sessions:  h.source.SessionCount(),
		Queues:    queues,
	})
}

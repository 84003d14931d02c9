package chat

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
)

// subscriberBuffer bounds how many undelivered payloads a slow subscriber may
// accumulate before it is pruned.
const subscriberBuffer = 32

// Subscriber is one live listener on a room. Payloads arrive on C; the owner
// must drain it until it closes.
type Subscriber struct {
	UserID string
	C      chan []byte
}

// Hub is the in-process fan-out registry. Delivery is best effort: a
// subscriber that cannot keep up is dropped, never waited on.
type Hub struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
	total int
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new listener on the room.
func (h *Hub) Subscribe(roomID, userID string) *Subscriber {
	sub := &Subscriber{UserID: userID, C: make(chan []byte, subscriberBuffer)}

	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[roomID] = room
	}
	room[sub] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()

	metrics.Get().ActiveSubscribersGauge.Record(context.Background(), int64(total))
	h.logger.Debug("Subscriber joined", zap.String("roomID", roomID), zap.String("userID", userID))
	return sub
}

// Unsubscribe removes the listener and closes its channel. Safe to call for a
// subscriber the hub already pruned.
func (h *Hub) Unsubscribe(roomID string, sub *Subscriber) {
	h.mu.Lock()
	removed := h.removeLocked(roomID, sub)
	total := h.total
	h.mu.Unlock()

	if removed {
		close(sub.C)
		metrics.Get().ActiveSubscribersGauge.Record(context.Background(), int64(total))
	}
}

// removeLocked deletes sub from the room registry. Caller holds h.mu.
func (h *Hub) removeLocked(roomID string, sub *Subscriber) bool {
	room, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := room[sub]; !ok {
		return false
	}
	delete(room, sub)
	h.total--
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
	return true
}

// Publish delivers the payload to every current subscriber of the room and
// returns how many received it. Subscribers with a full buffer are pruned.
func (h *Hub) Publish(roomID string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return 0
	}

	delivered := 0
	for sub := range room {
		select {
		case sub.C <- payload:
			delivered++
		default:
			h.removeLocked(roomID, sub)
			close(sub.C)
			h.logger.Warn("Pruned slow subscriber",
				zap.String("roomID", roomID), zap.String("userID", sub.UserID))
		}
	}
	return delivered
}

// TopRooms returns up to n rooms ranked by live subscriber count, ties broken
// by room id so the order is deterministic.
func (h *Hub) TopRooms(n int) []models.RoomStat {
	h.mu.RLock()
	stats := make([]models.RoomStat, 0, len(h.rooms))
	for roomID, subs := range h.rooms {
		stats = append(stats, models.RoomStat{RoomID: roomID, Subscribers: len(subs)})
	}
	h.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Subscribers != stats[j].Subscribers {
			return stats[i].Subscribers > stats[j].Subscribers
		}
		return stats[i].RoomID < stats[j].RoomID
	})

	if n > 0 && len(stats) > n {
		stats = stats[:n]
	}
	return stats
}

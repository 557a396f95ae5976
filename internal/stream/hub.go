package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans live trip snapshots out to in-process subscribers, and mirrors them
// over Redis pub/sub when a client is configured so other processes can follow
// a trip as it records.
type Hub struct {
	redis       *redis.Client
	subscribers map[string]map[*Subscriber]struct{}
	mu          sync.RWMutex
}

type Subscriber struct {
	TripID string
	Recv   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:       redisClient,
		subscribers: map[string]map[*Subscriber]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Subscribe(tripID string) *Subscriber {
	sub := &Subscriber{
		TripID: tripID,
		Recv:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[tripID] == nil {
		h.subscribers[tripID] = map[*Subscriber]struct{}{}
	}
	h.subscribers[tripID][sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tripSubs, ok := h.subscribers[sub.TripID]; ok {
		delete(tripSubs, sub)
		if len(tripSubs) == 0 {
			delete(h.subscribers, sub.TripID)
		}
	}
	close(sub.Recv)
}

// Broadcast delivers a snapshot to every subscriber of the trip. Slow
// subscribers are skipped, never blocked on.
func (h *Hub) Broadcast(tripID string, payload []byte) {
	h.mu.RLock()
	subs := h.subscribers[tripID]
	h.mu.RUnlock()

	for sub := range subs {
		select {
		case sub.Recv <- payload:
		default:
		}
	}

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(tripID), payload).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "trips:*:live")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		tripID := tripIDFromChannel(msg.Channel)
		h.mu.RLock()
		subs := h.subscribers[tripID]
		h.mu.RUnlock()
		for sub := range subs {
			select {
			case sub.Recv <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func redisChannel(tripID string) string {
	return "trips:" + tripID + ":live"
}

func tripIDFromChannel(ch string) string {
	// trips:{trip}:live
	const prefix = "trips:"
	const suffix = ":live"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}

// Package notify pushes invitation events to connected accounts over
// websockets. With Redis configured, every API instance subscribes to the
// same channels so a notice reaches sockets held by any instance.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	KindInvitationProposed = "invitation.proposed"
	KindInvitationAccepted = "invitation.accepted"
	KindInvitationRejected = "invitation.rejected"
)

const (
	channelPrefix  = "notify:"
	channelSuffix  = ":invitations"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Notice is the JSON frame written to an account's sockets.
type Notice struct {
	Kind         string    `json:"kind"`
	InvitationID string    `json:"invitation_id"`
	TripID       string    `json:"trip_id"`
	ActorID      string    `json:"actor_id"`
	At           time.Time `json:"at"`
}

type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	AccountID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		clients: map[string]map[*Client]struct{}{},
	}
	if redisClient == nil {
		return h
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pubsub := redisClient.PSubscribe(ctx, channelPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		slog.Warn("redis subscribe failed, delivering locally", "err", err)
		_ = pubsub.Close()
		return h
	}

	h.redis = redisClient
	h.pubsub = pubsub
	go h.forward()
	return h
}

func (h *Hub) Register(accountID string) *Client {
	client := &Client{
		AccountID: accountID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[accountID] == nil {
		h.clients[accountID] = map[*Client]struct{}{}
	}
	h.clients[accountID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if accountClients, ok := h.clients[client.AccountID]; ok {
		if _, registered := accountClients[client]; !registered {
			return
		}
		delete(accountClients, client)
		if len(accountClients) == 0 {
			delete(h.clients, client.AccountID)
		}
		close(client.Send)
	}
}

// Publish sends n to every socket held by accountID. Slow sockets drop frames
// rather than block the publisher.
func (h *Hub) Publish(accountID string, n Notice) {
	if accountID == "" {
		return
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		slog.Error("encode notice", "err", err)
		return
	}

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), channelFor(accountID), payload).Err()
		if err == nil {
			return
		}
		slog.Warn("redis publish failed, delivering locally", "account_id", accountID, "err", err)
	}
	h.deliver(accountID, payload)
}

// Close stops the Redis subscription, if any.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(accountID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[accountID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward() {
	for msg := range h.pubsub.Channel() {
		accountID := accountFromChannel(msg.Channel)
		if accountID == "" {
			continue
		}
		h.deliver(accountID, []byte(msg.Payload))
	}
}

func channelFor(accountID string) string {
	return channelPrefix + accountID + channelSuffix
}

func accountFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(ch, channelPrefix), channelSuffix)
}

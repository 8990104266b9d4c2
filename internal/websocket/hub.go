package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/model"
)

// RelayChannel carries job events from worker processes to API processes
const RelayChannel = "studio:ws:jobs"

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
)

// SnapshotFunc loads the current state of a job for a new subscriber
type SnapshotFunc func(ctx context.Context, jobID string) (interface{}, error)

// Subscriber is one connection watching a single job
type Subscriber struct {
	JobID string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewSubscriber(jobID string) *Subscriber {
	return &Subscriber{JobID: jobID, send: make(chan []byte, sendBuffer)}
}

// Messages yields encoded events until the subscriber is dropped
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// offer never blocks; a full buffer means the subscriber is too slow
func (s *Subscriber) offer(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

type relayFrame struct {
	JobID string          `json:"jobId"`
	Event json.RawMessage `json:"event"`
}

// Hub fans job events out to subscribers. With a relay client, events are
// published to Redis and every API process delivers them to its own
// subscribers, so a standalone worker reaches browsers it does not hold.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}

	frames chan relayFrame

	relay    *redis.Client
	snapshot SnapshotFunc
	now      func() time.Time
	logger   *log.Entry
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscriber]struct{}),
		frames: make(chan relayFrame, 256),
		now:    time.Now,
		logger: log.WithField("component", "WebSocketHub"),
	}
}

func NewRelayHub(rdb *redis.Client) *Hub {
	h := NewHub()
	h.relay = rdb
	return h
}

// SetSnapshot enables the initial snapshot event for new subscribers
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.snapshot = fn
}

// Run delivers local frames until ctx is done, then drops all subscribers.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for jobID, subs := range h.subs {
				for s := range subs {
					s.close()
				}
				delete(h.subs, jobID)
			}
			h.mu.Unlock()
			return
		case f := <-h.frames:
			h.deliver(f)
		}
	}
}

func (h *Hub) deliver(f relayFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[f.JobID] {
		if !s.offer(f.Event) {
			h.logger.WithField("jobId", f.JobID).Warn("Dropping slow subscriber")
			h.remove(s)
		}
	}
}

// Subscribe forwards relayed frames to local subscribers until ctx is done.
func (h *Hub) Subscribe(ctx context.Context) {
	if h.relay == nil {
		return
	}
	sub := h.relay.Subscribe(ctx, RelayChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var f relayFrame
			if err := json.Unmarshal([]byte(m.Payload), &f); err != nil {
				h.logger.WithError(err).Warn("Dropping malformed relay frame")
				continue
			}
			h.frames <- f
		}
	}
}

func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}

func (h *Hub) Add(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[s.JobID] == nil {
		h.subs[s.JobID] = make(map[*Subscriber]struct{})
	}
	h.subs[s.JobID][s] = struct{}{}
}

func (h *Hub) Remove(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(s)
}

// remove requires h.mu held
func (h *Hub) remove(s *Subscriber) {
	subs, ok := h.subs[s.JobID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	s.close()
	if len(subs) == 0 {
		delete(h.subs, s.JobID)
	}
}

func (h *Hub) BroadcastProgress(jobID string, progress int, status model.JobStatus, step string) {
	h.publish(model.JobEvent{
		Type:        model.EventProgress,
		JobID:       jobID,
		Progress:    &progress,
		Status:      status,
		CurrentStep: step,
	})
}

func (h *Hub) BroadcastStep(jobID string, index int, step model.GenerationStep) {
	h.publish(model.JobEvent{
		Type:  model.EventStep,
		JobID: jobID,
		Index: &index,
		Step:  &step,
	})
}

func (h *Hub) BroadcastComplete(jobID string, result interface{}) {
	h.publish(model.JobEvent{
		Type:   model.EventComplete,
		JobID:  jobID,
		Status: model.JobStatusSucceeded,
		Result: result,
	})
}

func (h *Hub) BroadcastError(jobID string, code, message string) {
	h.publish(model.JobEvent{
		Type:   model.EventError,
		JobID:  jobID,
		Status: model.JobStatusFailed,
		Error:  &model.EventFailure{Code: code, Message: message},
	})
}

func (h *Hub) encode(ev model.JobEvent) ([]byte, bool) {
	ev.At = h.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode job event")
		return nil, false
	}
	return data, true
}

func (h *Hub) publish(ev model.JobEvent) {
	data, ok := h.encode(ev)
	if !ok {
		return
	}
	f := relayFrame{JobID: ev.JobID, Event: data}

	if h.relay == nil {
		h.frames <- f
		return
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.relay.Publish(ctx, RelayChannel, payload).Err(); err != nil {
		h.logger.WithError(err).Warn("Failed to relay job event")
	}
}

// snapshotEvent builds the initial frame for a new subscriber
func (h *Hub) snapshotEvent(ctx context.Context, jobID string) ([]byte, bool) {
	if h.snapshot == nil {
		return nil, false
	}
	state, err := h.snapshot(ctx, jobID)
	if err != nil {
		h.logger.WithError(err).WithField("jobId", jobID).Debug("No snapshot for subscriber")
		return nil, false
	}
	return h.encode(model.JobEvent{Type: model.EventSnapshot, JobID: jobID, Result: state})
}

// Serve pumps events to a connection until either side closes it
func (h *Hub) Serve(c *websocket.Conn, jobID string) {
	s := NewSubscriber(jobID)
	if data, ok := h.snapshotEvent(context.Background(), jobID); ok {
		s.offer(data)
	}
	h.Add(s)
	defer h.Remove(s)

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-s.Messages():
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Warn("WebSocket read failed")
			}
			return
		}

		var in model.JobEvent
		if json.Unmarshal(raw, &in) != nil || in.Type != model.EventPing {
			continue
		}
		if pong, ok := h.encode(model.JobEvent{Type: model.EventPong, JobID: jobID}); ok {
			s.offer(pong)
		}
	}
}

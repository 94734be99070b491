package nostr

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/services"
)

// subscriptionFilter restricts a REQ subscription to a single event id.
type subscriptionFilter struct {
	IDs []string `json:"ids"`
}

// Dialer abstracts websocket.Dialer for testing.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader map[string][]string) (*websocket.Conn, error)
}

type defaultDialer struct{}

func (defaultDialer) DialContext(ctx context.Context, urlStr string, requestHeader map[string][]string) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, urlStr, requestHeader)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// Resolver retrieves single events by id from an ordered list of relays.
//
// Endpoints are tried strictly in order, one connection at a time. Each
// attempt races a matching EVENT against the relay's EOSE marker and a fixed
// deadline; either of the latter two advances to the next endpoint.
type Resolver struct {
	endpoints []string
	timeout   time.Duration
	dialer    Dialer
	logger    *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDialer overrides the websocket dialer.
func WithDialer(d Dialer) ResolverOption {
	return func(r *Resolver) {
		if d != nil {
			r.dialer = d
		}
	}
}

// NewResolver builds a resolver over the given relay endpoints. A
// non-positive timeout falls back to five seconds per endpoint.
func NewResolver(endpoints []string, timeout time.Duration, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Resolver{
		endpoints: append([]string{}, endpoints...),
		timeout:   timeout,
		dialer:    defaultDialer{},
		logger:    logging.NewComponentLogger(logger, "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the event with the given hex id and the endpoint that
// served it, or ErrNotFound once every endpoint has missed. The first match
// short-circuits all remaining relays.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Event, string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for index, endpoint := range r.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		event, found := r.attempt(ctx, endpoint, id)
		if found {
			r.logger.Info("event resolved",
				logging.String(logging.FieldRelay, endpoint),
				logging.String(logging.FieldEventID, id),
				logging.Int("attempt", index+1),
			)
			return event, endpoint, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return nil, "", services.Wrap(services.ErrNotFound, "resolver", "resolve",
		"no relay returned event "+id, nil)
}

// attempt opens one connection, subscribes for the id, and waits for a match,
// an EOSE, the per-endpoint deadline, or a transport error. Every outcome but
// a match is a miss.
func (r *Resolver) attempt(ctx context.Context, endpoint, id string) (*Event, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.dialer.DialContext(attemptCtx, endpoint, nil)
	if err != nil {
		r.logger.Debug("relay dial failed",
			logging.String(logging.FieldRelay, endpoint),
			logging.Error(err),
		)
		return nil, false
	}
	defer conn.Close()

	// Unique per attempt so a relay reusing state cannot cross-talk.
	subID := "substr-" + uuid.NewString()[:8]
	request := []any{"REQ", subID, subscriptionFilter{IDs: []string{id}}}
	if err := conn.WriteJSON(request); err != nil {
		r.logger.Debug("relay subscribe failed",
			logging.String(logging.FieldRelay, endpoint),
			logging.Error(err),
		)
		return nil, false
	}

	deadline, ok := attemptCtx.Deadline()
	if !ok {
		deadline = time.Now().Add(r.timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, false
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			r.logger.Debug("relay read ended",
				logging.String(logging.FieldRelay, endpoint),
				logging.Error(err),
			)
			return nil, false
		}
		event, done, matched := parseRelayMessage(raw, subID, id)
		if matched {
			r.closeSubscription(conn, subID)
			return event, true
		}
		if done {
			r.logger.Debug("relay returned eose without match",
				logging.String(logging.FieldRelay, endpoint),
			)
			r.closeSubscription(conn, subID)
			return nil, false
		}
	}
}

// parseRelayMessage interprets one inbound frame. matched reports an EVENT
// carrying the target id; done reports EOSE for this subscription. Malformed
// frames are ignored.
func parseRelayMessage(raw []byte, subID, id string) (event *Event, done, matched bool) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 2 {
		return nil, false, false
	}
	var label string
	if err := json.Unmarshal(frame[0], &label); err != nil {
		return nil, false, false
	}
	var frameSub string
	if err := json.Unmarshal(frame[1], &frameSub); err != nil || frameSub != subID {
		return nil, false, false
	}
	switch label {
	case "EVENT":
		if len(frame) < 3 {
			return nil, false, false
		}
		var evt Event
		if err := json.Unmarshal(frame[2], &evt); err != nil {
			return nil, false, false
		}
		if evt.ID != "" && evt.ID != id {
			return nil, false, false
		}
		return &evt, false, true
	case "EOSE":
		return nil, true, false
	default:
		return nil, false, false
	}
}

func (r *Resolver) closeSubscription(conn *websocket.Conn, subID string) {
	_ = conn.WriteJSON([]any{"CLOSE", subID})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

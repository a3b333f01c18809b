// Package engine bridges the session server to the playback engine process
// over two in-memory topics (editor->engine requests, engine->editor
// responses). A single bridge task continuously drains the response topic
// into a shared TTL-bounded cache; request/reply handlers correlate on
// action_uuid by polling that cache.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/stagelab/cuems-core/internal/cache"
	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/metrics"
)

const (
	requestTopic  = "engine.requests"
	responseTopic = "engine.responses"
)

// Config controls queue sizing, polling/timeout, and eviction behavior.
// Zero values fall back to the spec's defaults (256 queue slots, 250ms
// poll, 10s timeout, 30s cache TTL); it mirrors config.EngineConfig field
// for field so callers can pass that straight through.
type Config struct {
	QueueCapacity    int
	PollInterval     time.Duration
	RequestTimeout   time.Duration
	ResponseCacheTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 256
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.ResponseCacheTTL <= 0 {
		c.ResponseCacheTTL = 30 * time.Second
	}
	return c
}

// Command is a request sent to the engine process.
type Command struct {
	Action     string `json:"action"`
	ActionUUID string `json:"action_uuid"`
	Value      any    `json:"value,omitempty"`
}

// Response is a reply read back from the engine process.
type Response struct {
	Type       string `json:"type"`
	ActionUUID string `json:"action_uuid"`
	Value      any    `json:"value"`
}

// Bridge owns the request/response pub/sub pair and the shared,
// TTL-bounded response cache the bridge task drains into. An entry that
// never matches a waiting Call is evicted by the cache's own background
// sweep rather than growing the cache unbounded, which resolves the
// "how long to retain an unmatched engine response" open question.
type Bridge struct {
	pubsub *gochannel.GoChannel
	cfg    Config
	resp   *cache.Cache

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Bridge over an in-process gochannel pub/sub pair. Call Run
// to start the draining task, and Close to stop it.
func New(cfg Config) *Bridge {
	cfg = cfg.withDefaults()
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.QueueCapacity),
	}, watermill.NewStdLogger(false, false))
	return &Bridge{
		pubsub: ps,
		cfg:    cfg,
		resp:   cache.New(cfg.ResponseCacheTTL),
	}
}

// Run starts the bridge task that drains responseTopic into the shared
// cache. It blocks until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	defer close(b.done)

	messages, err := b.pubsub.Subscribe(runCtx, responseTopic)
	if err != nil {
		return fmt.Errorf("engine: subscribe responses: %w", err)
	}

	for {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var resp Response
			if err := json.Unmarshal(msg.Payload, &resp); err != nil {
				logging.Warn().Err(err).Msg("engine: dropping malformed response")
				msg.Ack()
				continue
			}
			b.resp.SetWithTTL(resp.ActionUUID, resp, b.cfg.ResponseCacheTTL)
			msg.Ack()
		}
	}
}

// Close stops the bridge task and the underlying pub/sub.
func (b *Bridge) Close() error {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	return b.pubsub.Close()
}

// EnginePublisher returns the publisher engine-side code uses to emit
// responses; EngineSubscriber returns the subscriber it reads requests
// from. These exist to let the engine process side of the bridge (driven
// by a separate supervised task in the same binary, or a stand-in in
// tests) participate without reaching into Bridge internals.
func (b *Bridge) EnginePublisher() message.Publisher   { return b.pubsub }
func (b *Bridge) EngineSubscriber() message.Subscriber { return b.pubsub }

// Call sends a command built from action/value, then blocks polling for a
// matching action_uuid response every PollInterval until RequestTimeout. A
// reply whose type does not match action, or whose value is not "OK", is
// reported as a KindEngine error. A matched entry is removed from the
// cache so a later, differently-correlated Call cannot observe it.
func (b *Bridge) Call(ctx context.Context, action string, value any) (any, error) {
	start := time.Now()
	result, reason, err := b.call(ctx, action, value)
	metrics.RecordEngineRoundTrip(action, time.Since(start), reason)
	return result, err
}

func (b *Bridge) call(ctx context.Context, action string, value any) (any, string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return nil, "error", cerrors.Transient("generate action_uuid", err)
	}
	actionUUID := id.String()

	cmd := Command{Action: action, ActionUUID: actionUUID, Value: value}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, "error", cerrors.Transient("marshal engine command", err)
	}

	msg := message.NewMessage(actionUUID, payload)
	if err := b.pubsub.Publish(requestTopic, msg); err != nil {
		return nil, "error", cerrors.Transient("publish engine command", err)
	}

	deadline := time.Now().Add(b.cfg.RequestTimeout)
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if raw, ok := b.resp.Get(actionUUID); ok {
			b.resp.Delete(actionUUID)
			resp := raw.(Response)
			if resp.Type != action || resp.Value != "OK" {
				return nil, "mismatch", cerrors.Engine(fmt.Sprintf("engine reports error for %s: %+v", action, resp))
			}
			return resp.Value, "", nil
		}
		if time.Now().After(deadline) {
			return nil, "timeout", cerrors.Engine(fmt.Sprintf("timeout waiting %s response from engine", action))
		}
		select {
		case <-ctx.Done():
			return nil, "canceled", ctx.Err()
		case <-ticker.C:
		}
	}
}

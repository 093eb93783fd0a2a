// Package event implements the Emitter contract: a single-topic,
// synchronous, process-local publish/subscribe object. It is a narrowed
// adaptation of qri's topic-keyed event.Bus, restricted to the reserved
// TopicChange topic and to synchronous, registration-order dispatch, since
// jsondoc's concurrency model (single-threaded, non-suspending) has no use
// for qri's asynchronous channel/Synchronizer fan-out.
package event

import (
	"context"
	"time"
)

// Topic names a class of event. jsondoc only ever publishes TopicChange,
// but Bus itself is topic-agnostic so a Document's Emitter can be reused by
// callers that want to layer their own topics over it.
type Topic string

// TopicChange is the sole topic a Document or Replica ever publishes to.
const TopicChange = Topic("change")

// NowFunc returns the current time, used to stamp Events. Tests override it
// for deterministic timestamps, following qri's event package convention.
var NowFunc = time.Now

// Event is a single published message: the topic it was published under,
// a Payload, and the Timestamp NowFunc reported when Publish was called.
type Event struct {
	Topic     Topic
	Timestamp int64
	Payload   interface{}
}

// Handler processes one Event. If it returns an error, that error propagates
// synchronously to whoever called Publish — there is no retry and no
// isolation between handlers and the publisher.
type Handler func(ctx context.Context, e Event) error

// Bus is a synchronous single-process publish/subscribe object.
type Bus struct {
	ctx      context.Context
	handlers map[Topic][]Handler
}

// NewBus constructs a Bus. ctx is threaded through to every Handler
// invocation via Publish's own ctx argument; it is accepted here (rather
// than only at Publish time) to match the constructor shape of qri's
// event.NewBus, which binds a Bus to a lifetime context.
func NewBus(ctx context.Context) *Bus {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Bus{ctx: ctx, handlers: map[Topic][]Handler{}}
}

// Subscribe registers handler to be invoked, in registration order, on
// every Event published to topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish invokes every handler subscribed to topic, in registration order,
// on the calling goroutine. If a handler returns an error, Publish stops
// dispatching to any handlers registered after it and returns that error —
// the publish itself (e.g. the log append that preceded it) is not rolled
// back; the log remains authoritative regardless of how Publish returns.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload interface{}) error {
	if ctx == nil {
		ctx = b.ctx
	}
	e := Event{Topic: topic, Timestamp: NowFunc().UnixNano(), Payload: payload}
	for _, h := range b.handlers[topic] {
		if err := h(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

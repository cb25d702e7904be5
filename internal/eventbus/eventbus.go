// Package eventbus implements the synchronous pub/sub event bus from spec §4,
// a closed topic set with per-topic latency/rate/error metrics and a bounded
// ring buffer.
//
// Grounded on original_source/backend/core/event_bus.py, with one Go-specific
// addition the Python deque(maxlen=...) does not have: an explicit Overflow
// counter, since a silently-dropping ring buffer can't satisfy spec §8's
// testable property 8 ("overflow increments by 9*queue_size" when the buffer
// wraps around ten times its capacity).
package eventbus

import (
	"fmt"
	"sync"
	"time"
)

// Topic is a member of the closed event-topic set.
type Topic string

const (
	TopicMarketData  Topic = "market_data"
	TopicSignal      Topic = "signal"
	TopicDecision    Topic = "decision"
	TopicRiskCheck   Topic = "risk_check"
	TopicOrder       Topic = "order"
	TopicFill        Topic = "fill"
	TopicPosition    Topic = "position"
	TopicStateChange Topic = "state_change"
	TopicError       Topic = "error"
)

// topics is the closed enumeration, used to seed per-topic metrics up front
// (as event_bus.py does for every EventType at construction).
var topics = []Topic{
	TopicMarketData, TopicSignal, TopicDecision, TopicRiskCheck,
	TopicOrder, TopicFill, TopicPosition, TopicStateChange, TopicError,
}

// Event is a single bus message.
type Event struct {
	Topic     Topic
	EventID   string
	Data      map[string]interface{}
	Timestamp float64 // tick-domain time, supplied by the caller
	Source    string
}

// Handler processes a published Event. A Handler that panics or returns an
// error counts against the topic's error metric but never stops delivery to
// the remaining subscribers (matching event_bus.py's publish loop, which
// logs and continues on handler exceptions).
type Handler func(Event) error

type topicMetrics struct {
	count         int64
	totalLatency  time.Duration
	minLatency    time.Duration
	maxLatency    time.Duration
	errorCount    int64
	recentStamps  []float64 // tick timestamps within the metrics window, oldest first
}

// Metrics is a read-only snapshot of a topic's accumulated metrics.
type Metrics struct {
	Topic         Topic
	Count         int64
	AvgLatencyMs  float64
	MinLatencyMs  float64
	MaxLatencyMs  float64
	ErrorCount    int64
	RatePerSec    float64
}

// Bus is a synchronous, in-process publish/subscribe event bus with a
// bounded ring buffer and per-topic metrics.
type Bus struct {
	mu             sync.Mutex
	maxQueue       int
	metricsWindow  float64 // seconds, measured in tick-domain time
	subscribers    map[Topic][]Handler
	ring           []Event
	ringHead       int
	ringLen        int
	overflow       int64
	metrics        map[Topic]*topicMetrics
	totalEvents    int64
	totalErrors    int64
	startWall      time.Time
}

// Options configures a Bus.
type Options struct {
	MaxQueueSize     int     // ring buffer capacity; default 10000
	MetricsWindowSec float64 // rate-tracking window in tick-domain seconds; default 60
}

// New constructs a Bus with its closed topic set pre-seeded, mirroring
// event_bus.py's constructor loop over every EventType.
func New(opts Options) *Bus {
	maxQueue := opts.MaxQueueSize
	if maxQueue <= 0 {
		maxQueue = 10000
	}
	window := opts.MetricsWindowSec
	if window <= 0 {
		window = 60
	}
	b := &Bus{
		maxQueue:      maxQueue,
		metricsWindow: window,
		subscribers:   make(map[Topic][]Handler),
		ring:          make([]Event, maxQueue),
		metrics:       make(map[Topic]*topicMetrics, len(topics)),
		startWall:     time.Now(),
	}
	for _, t := range topics {
		b.metrics[t] = &topicMetrics{}
	}
	return b
}

// Subscribe registers handler to receive every Event published on topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish delivers ev synchronously to every subscriber of its topic,
// recording the ring buffer entry first and the per-topic metrics once the
// handlers have returned. Handler errors and panics are tallied but never
// abort delivery to later subscribers.
func (b *Bus) Publish(ev Event) {
	start := time.Now()

	b.mu.Lock()
	b.pushRingLocked(ev)
	m := b.metrics[ev.Topic]
	b.totalEvents++
	handlers := append([]Handler(nil), b.subscribers[ev.Topic]...)
	b.mu.Unlock()

	var errCount int64
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					errCount++
				}
			}()
			if err := h(ev); err != nil {
				errCount++
			}
		}()
	}

	latency := time.Since(start)

	b.mu.Lock()
	defer b.mu.Unlock()
	m.count++
	m.totalLatency += latency
	if m.minLatency == 0 || latency < m.minLatency {
		m.minLatency = latency
	}
	if latency > m.maxLatency {
		m.maxLatency = latency
	}
	m.errorCount += errCount
	b.totalErrors += errCount

	m.recentStamps = append(m.recentStamps, ev.Timestamp)
	cutoff := ev.Timestamp - b.metricsWindow
	i := 0
	for i < len(m.recentStamps) && m.recentStamps[i] < cutoff {
		i++
	}
	if i > 0 {
		m.recentStamps = m.recentStamps[i:]
	}
}

// pushRingLocked appends ev to the bounded ring buffer, incrementing Overflow
// once the buffer is full and a new entry displaces the oldest one.
func (b *Bus) pushRingLocked(ev Event) {
	if b.ringLen < len(b.ring) {
		idx := (b.ringHead + b.ringLen) % len(b.ring)
		b.ring[idx] = ev
		b.ringLen++
		return
	}
	b.ring[b.ringHead] = ev
	b.ringHead = (b.ringHead + 1) % len(b.ring)
	b.overflow++
}

// QueueDepth returns the current number of buffered events (<= MaxQueueSize).
func (b *Bus) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ringLen
}

// Overflow returns how many events have been evicted from the ring buffer
// since construction.
func (b *Bus) Overflow() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}

// Metrics returns a snapshot for a single topic. Panics if topic is not a
// member of the closed set — callers should only ever pass the Topic
// constants above.
func (b *Bus) Metrics(topic Topic) Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.metrics[topic]
	if !ok {
		panic(fmt.Sprintf("eventbus: unknown topic %q", topic))
	}
	return b.snapshotLocked(topic, m)
}

func (b *Bus) snapshotLocked(topic Topic, m *topicMetrics) Metrics {
	avg := 0.0
	if m.count > 0 {
		avg = float64(m.totalLatency.Microseconds()) / 1000.0 / float64(m.count)
	}
	return Metrics{
		Topic:        topic,
		Count:        m.count,
		AvgLatencyMs: avg,
		MinLatencyMs: float64(m.minLatency.Microseconds()) / 1000.0,
		MaxLatencyMs: float64(m.maxLatency.Microseconds()) / 1000.0,
		ErrorCount:   m.errorCount,
		RatePerSec:   float64(len(m.recentStamps)) / b.metricsWindow,
	}
}

// Summary mirrors event_bus.py's get_summary: overall totals plus a per-topic
// breakdown limited to topics that have seen at least one event.
type Summary struct {
	UptimeSec    float64
	TotalEvents  int64
	TotalErrors  int64
	ErrorRatePct float64
	QueueDepth   int
	Overflow     int64
	EventsPerSec float64
	ByTopic      map[Topic]Metrics
}

// Summary returns a point-in-time snapshot of the whole bus.
func (b *Bus) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	uptime := time.Since(b.startWall).Seconds()
	errRate := 0.0
	if b.totalEvents > 0 {
		errRate = float64(b.totalErrors) / float64(b.totalEvents) * 100
	}
	eps := 0.0
	if uptime > 0 {
		eps = float64(b.totalEvents) / uptime
	}

	byTopic := make(map[Topic]Metrics)
	for _, t := range topics {
		m := b.metrics[t]
		if m.count > 0 {
			byTopic[t] = b.snapshotLocked(t, m)
		}
	}

	return Summary{
		UptimeSec:    uptime,
		TotalEvents:  b.totalEvents,
		TotalErrors:  b.totalErrors,
		ErrorRatePct: errRate,
		QueueDepth:   b.ringLen,
		Overflow:     b.overflow,
		EventsPerSec: eps,
		ByTopic:      byTopic,
	}
}

// Reset clears the per-topic metrics and the event/error totals, keeping
// subscribers, the ring buffer's contents and the overflow count intact
// (matching event_bus.py's reset_metrics, which only touches the metrics
// maps).
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		b.metrics[t] = &topicMetrics{}
	}
	b.totalEvents = 0
	b.totalErrors = 0
	b.startWall = time.Now()
}

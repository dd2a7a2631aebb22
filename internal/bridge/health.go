package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
)

// StatusPublisher is the MQTT surface the health reporter needs.
type StatusPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// StatusSource provides the bridge snapshot the reporter publishes.
type StatusSource interface {
	Status() Status
}

// HealthReporterConfig configures periodic status publication.
type HealthReporterConfig struct {
	// Topic to publish status payloads on.
	Topic string

	// Interval between periodic reports. Defaults to 30s.
	Interval time.Duration
}

// HealthReporter periodically publishes bridge status over MQTT.
//
// Payloads are published retained at QoS 1 so late subscribers see the
// latest state immediately. Stop is safe to call more than once.
type HealthReporter struct {
	publisher StatusPublisher
	source    StatusSource
	logger    *logging.Logger
	topic     string
	interval  time.Duration
	startedAt time.Time

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHealthReporter creates a reporter. It does not publish until Start.
func NewHealthReporter(publisher StatusPublisher, source StatusSource, cfg HealthReporterConfig, logger *logging.Logger) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthReporter{
		publisher: publisher,
		source:    source,
		logger:    logger.With("component", "health"),
		topic:     cfg.Topic,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

// Start publishes an initial report and begins the periodic loop.
func (h *HealthReporter) Start() {
	h.startedAt = time.Now()
	h.PublishNow()

	h.wg.Add(1)
	go h.reportLoop()
}

// Stop ends the periodic loop and waits for it to exit.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

// PublishNow publishes a status report immediately. Used on status
// transitions so subscribers are not left waiting for the next tick.
func (h *HealthReporter) PublishNow() {
	if !h.publisher.IsConnected() {
		h.logger.Debug("skipping health report, broker not connected")
		return
	}

	status := h.source.Status()

	payload, err := json.Marshal(struct {
		Status
		State     string `json:"state"`
		Timestamp string `json:"timestamp"`
		Uptime    string `json:"uptime"`
	}{
		Status:    status,
		State:     determineState(status),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
	if err != nil {
		h.logger.Error("marshalling health payload", "error", err)
		return
	}

	if err := h.publisher.Publish(h.topic, payload, 1, true); err != nil {
		h.logger.Warn("publishing health report", "topic", h.topic, "error", err)
		return
	}

	h.logger.Debug("health report published", "topic", h.topic, "state", determineState(status))
}

// reportLoop ticks until Stop.
func (h *HealthReporter) reportLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.PublishNow()
		}
	}
}

// determineState maps a bridge snapshot to a coarse health state.
func determineState(s Status) string {
	switch {
	case !s.Running:
		return "stopped"
	case s.ReceiverActive && s.AutomationConnected:
		return "healthy"
	default:
		return "degraded"
	}
}

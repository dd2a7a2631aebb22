package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/orchestream/internal/artnet"
	"github.com/nerrad567/orchestream/internal/homeassistant"
	"github.com/nerrad567/orchestream/internal/infrastructure/config"
	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
	"github.com/nerrad567/orchestream/internal/mapping"
)

// AutomationClient is the slice of the Home Assistant client the
// controller depends on. Narrowing to an interface keeps the dispatch
// path testable without a live platform.
type AutomationClient interface {
	Connect(ctx context.Context) error
	Close() error
	Connected() bool
	GetEntitiesWithLabel(ctx context.Context, label string) ([]homeassistant.Entity, error)
	TurnOn(ctx context.Context, entityID string, data map[string]any) error
	TurnOff(ctx context.Context, entityID string) error
}

// FrameReceiver is the slice of the Art-Net receiver the controller
// depends on.
type FrameReceiver interface {
	SetCallback(artnet.FrameCallback)
	Start() error
	Stop()
	Active() bool
	Channels(start, count int) ([]uint8, error)
	Stats() artnet.ReceiverStats
}

// TelemetryWriter records dispatch events. Implementations must not block.
type TelemetryWriter interface {
	WriteCommandEvent(deviceID string, action string, throttled bool)
	WriteBridgeStatus(receiverActive, automationConnected bool, entitiesLoaded int)
	WriteFrameStats(received, accepted, suppressed, parseErrors uint64)
}

// Status is a point-in-time snapshot of the bridge.
type Status struct {
	Running             bool       `json:"running"`
	ReceiverActive      bool       `json:"receiver_active"`
	AutomationConnected bool       `json:"automation_connected"`
	EntitiesLoaded      int        `json:"entities_loaded"`
	LastUpdate          *time.Time `json:"last_update,omitempty"`
	CommandsDispatched  uint64     `json:"commands_dispatched"`
	CommandsSuppressed  uint64     `json:"commands_suppressed"`
	CommandsFailed      uint64     `json:"commands_failed"`
}

// Options holds the dependencies for a Controller.
type Options struct {
	Config    *config.Config
	Receiver  FrameReceiver
	Client    AutomationClient
	Table     *mapping.Table
	Logger    *logging.Logger
	Telemetry TelemetryWriter // optional
}

// Controller orchestrates the DMX-to-automation pipeline.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Controller struct {
	cfg       *config.Config
	receiver  FrameReceiver
	client    AutomationClient
	table     *mapping.Table
	logger    *logging.Logger
	telemetry TelemetryWriter

	// mu guards lifecycle state.
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// frames is the depth-1 superseding handoff slot between the
	// receive goroutine and the dispatch goroutine.
	frames chan artnet.Frame

	// statusMu guards entitiesLoaded, lastUpdate and the change callback.
	statusMu       sync.RWMutex
	entitiesLoaded int
	lastUpdate     *time.Time
	onStatus       func(Status)

	// throttle tracks the last successful dispatch per device. Only the
	// dispatch goroutine touches it.
	throttle map[string]time.Time

	// now is the clock, replaceable in tests.
	now func() time.Time

	dispatched atomic.Uint64
	suppressed atomic.Uint64
	failed     atomic.Uint64
	dropped    atomic.Uint64
}

// New creates a Controller. The bridge does not run until Start.
func New(opts Options) (*Controller, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config", ErrMissingDependency)
	}
	if opts.Receiver == nil {
		return nil, fmt.Errorf("%w: receiver", ErrMissingDependency)
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("%w: automation client", ErrMissingDependency)
	}
	if opts.Table == nil {
		return nil, fmt.Errorf("%w: mapping table", ErrMissingDependency)
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}

	return &Controller{
		cfg:       opts.Config,
		receiver:  opts.Receiver,
		client:    opts.Client,
		table:     opts.Table,
		logger:    opts.Logger.With("component", "bridge"),
		telemetry: opts.Telemetry,
		frames:    make(chan artnet.Frame, 1),
		throttle:  make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// SetOnStatusChange registers a callback invoked after status
// transitions (start, stop, refresh, processed frames). The callback
// runs on the goroutine that caused the transition and must not block.
func (c *Controller) SetOnStatusChange(fn func(Status)) {
	c.statusMu.Lock()
	c.onStatus = fn
	c.statusMu.Unlock()
}

// Start brings the pipeline up: automation connection, entity
// discovery, channel assignment, receiver, dispatcher.
//
// Partial failures roll back what already started. Starting a running
// bridge returns ErrAlreadyRunning.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		return err
	}

	c.logger.Info("bridge started",
		"entities", c.entityCount(),
		"devices_mapped", c.table.Count(),
	)
	c.notifyStatus()
	return nil
}

// start does the lifecycle work under the lifecycle lock.
func (c *Controller) start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	if err := c.client.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	if err := c.discover(ctx); err != nil {
		c.client.Close() //nolint:errcheck // Rollback path
		return err
	}

	c.receiver.SetCallback(c.handleFrame)
	if err := c.receiver.Start(); err != nil {
		c.client.Close() //nolint:errcheck // Rollback path
		return fmt.Errorf("starting receiver: %w", err)
	}

	// The dispatcher outlives the Start context; Stop cancels it.
	dispatchCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go c.dispatchLoop(dispatchCtx)

	c.running = true
	return nil
}

// Stop tears the pipeline down in reverse order. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	c.receiver.Stop()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	if err := c.client.Close(); err != nil {
		c.logger.Warn("closing automation client", "error", err)
	}

	c.logger.Info("bridge stopped")
	c.notifyStatus()
}

// Running reports whether the pipeline is up.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Refresh re-discovers labelled entities and assigns channels to any
// new ones without restarting the receiver.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	err := c.discover(ctx)
	c.mu.Unlock()

	if err != nil {
		return err
	}

	c.logger.Info("entities refreshed",
		"entities", c.entityCount(),
		"devices_mapped", c.table.Count(),
	)
	c.notifyStatus()
	return nil
}

// discover loads labelled entities and runs channel auto-assignment.
// Callers must hold mu.
func (c *Controller) discover(ctx context.Context) error {
	label := c.cfg.HomeAssistant.Label

	entities, err := c.client.GetEntitiesWithLabel(ctx, label)
	if err != nil {
		return fmt.Errorf("%w: label %q: %w", ErrDiscoveryFailed, label, err)
	}

	mapped := make([]mapping.Entity, len(entities))
	for i, e := range entities {
		mapped[i] = mapping.Entity{
			ID:         e.EntityID,
			Name:       e.FriendlyName(),
			Attributes: e.Attributes,
		}
	}

	if _, err := c.table.AutoAssign(ctx, mapped, c.cfg.DMX.StartChannel); err != nil {
		return fmt.Errorf("%w: assigning channels: %w", ErrDiscoveryFailed, err)
	}

	c.statusMu.Lock()
	c.entitiesLoaded = len(entities)
	c.statusMu.Unlock()

	return nil
}

// Status returns a snapshot of the bridge state.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	entities := c.entitiesLoaded
	last := c.lastUpdate
	c.statusMu.RUnlock()

	return Status{
		Running:             c.Running(),
		ReceiverActive:      c.receiver.Active(),
		AutomationConnected: c.client.Connected(),
		EntitiesLoaded:      entities,
		LastUpdate:          last,
		CommandsDispatched:  c.dispatched.Load(),
		CommandsSuppressed:  c.suppressed.Load(),
		CommandsFailed:      c.failed.Load(),
	}
}

// Mappings returns the current mapping table contents.
func (c *Controller) Mappings() []mapping.Mapping {
	return c.table.All()
}

// UpdateMapping moves or retypes a device mapping.
func (c *Controller) UpdateMapping(ctx context.Context, deviceID string, channel int, dtype mapping.DeviceType) error {
	return c.table.Update(ctx, deviceID, channel, dtype)
}

// RemoveMapping deletes a device mapping.
func (c *Controller) RemoveMapping(ctx context.Context, deviceID string) error {
	return c.table.Remove(ctx, deviceID)
}

// Channels returns a snapshot of received channel values for diagnostics.
func (c *Controller) Channels(start, count int) ([]uint8, error) {
	return c.receiver.Channels(start, count)
}

// ReceiverStats exposes receive-path counters.
func (c *Controller) ReceiverStats() artnet.ReceiverStats {
	return c.receiver.Stats()
}

// handleFrame is the receiver callback. It places the frame in the
// handoff slot, superseding any frame still waiting there.
func (c *Controller) handleFrame(f artnet.Frame) {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if !running {
		c.dropped.Add(1)
		return
	}

	select {
	case c.frames <- f:
		return
	default:
	}

	// Slot occupied: drain the stale frame, then offer ours. If the
	// dispatcher grabbed the slot in between, the newest frame wins
	// and the older one is dropped.
	select {
	case <-c.frames:
		c.dropped.Add(1)
	default:
	}
	select {
	case c.frames <- f:
	default:
		c.dropped.Add(1)
	}
}

// dispatchLoop is the single consumer of the handoff slot.
func (c *Controller) dispatchLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.frames:
			c.processFrame(ctx, f)
		}
	}
}

// processFrame translates one frame and dispatches the resulting
// commands in order, applying the per-device throttle and the
// inter-command pause.
func (c *Controller) processFrame(ctx context.Context, f artnet.Frame) {
	commands := c.table.Translate(f)
	if len(commands) == 0 {
		return
	}

	throttleInterval := c.cfg.GetThrottleInterval()
	commandDelay := c.cfg.GetCommandDelay()

	for i, cmd := range commands {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if last, ok := c.throttle[cmd.DeviceID]; ok && c.now().Sub(last) < throttleInterval {
			c.suppressed.Add(1)
			if c.telemetry != nil {
				c.telemetry.WriteCommandEvent(cmd.DeviceID, string(cmd.Action), true)
			}
			continue
		}

		if err := c.dispatch(ctx, cmd); err != nil {
			c.failed.Add(1)
			c.logger.Error("command dispatch failed",
				"device", cmd.DeviceID,
				"action", string(cmd.Action),
				"error", err,
			)
			continue
		}

		// Throttle timestamps only advance on successful dispatch, so a
		// failed command does not mask the next attempt.
		c.throttle[cmd.DeviceID] = c.now()
		c.dispatched.Add(1)
		if c.telemetry != nil {
			c.telemetry.WriteCommandEvent(cmd.DeviceID, string(cmd.Action), false)
		}

		if commandDelay > 0 && i < len(commands)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(commandDelay):
			}
		}
	}

	now := c.now()
	c.statusMu.Lock()
	c.lastUpdate = &now
	c.statusMu.Unlock()
	c.notifyStatus()
}

// dispatch converts one command into a service call.
func (c *Controller) dispatch(ctx context.Context, cmd mapping.Command) error {
	if cmd.Action == mapping.ActionDeactivate {
		return c.client.TurnOff(ctx, cmd.DeviceID)
	}

	data := make(map[string]any)
	if cmd.Brightness != nil {
		data["brightness"] = int(*cmd.Brightness)
	}
	if cmd.Kelvin != nil {
		data["color_temp_kelvin"] = *cmd.Kelvin
	}
	if len(cmd.Color) > 0 {
		color := make([]int, len(cmd.Color))
		for i, v := range cmd.Color {
			color[i] = int(v)
		}
		switch len(color) {
		case 3:
			data["rgb_color"] = color
		case 4:
			data["rgbw_color"] = color
		case 5:
			data["rgbww_color"] = color
		}
	}

	return c.client.TurnOn(ctx, cmd.DeviceID, data)
}

// entityCount reads the discovered entity count.
func (c *Controller) entityCount() int {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.entitiesLoaded
}

// notifyStatus pushes a snapshot to the registered callback.
func (c *Controller) notifyStatus() {
	c.statusMu.RLock()
	fn := c.onStatus
	c.statusMu.RUnlock()

	if fn == nil {
		return
	}

	status := c.Status()
	fn(status)

	if c.telemetry != nil {
		c.telemetry.WriteBridgeStatus(status.ReceiverActive, status.AutomationConnected, status.EntitiesLoaded)
		rs := c.receiver.Stats()
		c.telemetry.WriteFrameStats(rs.PacketsReceived, rs.FramesAccepted, rs.FramesSuppressed, rs.ParseErrors)
	}
}

package artnet

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/orchestream/internal/infrastructure/config"
	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
)

// Receiver timing constants.
const (
	// readBufferSize comfortably holds a full ArtDMX packet (18 + 512 bytes).
	readBufferSize = 2048

	// stopTimeout bounds how long Stop waits for the receive goroutine.
	stopTimeout = 2 * time.Second
)

// FrameCallback is invoked for every accepted (changed) frame.
// It runs on the receive goroutine and must not block for long periods.
type FrameCallback func(Frame)

// ReceiverStats holds receive-path counters.
type ReceiverStats struct {
	PacketsReceived  uint64 `json:"packets_received"`
	FramesAccepted   uint64 `json:"frames_accepted"`
	FramesSuppressed uint64 `json:"frames_suppressed"`
	ParseErrors      uint64 `json:"parse_errors"`
}

// Receiver listens for Art-Net DMX packets on a UDP socket.
//
// It filters packets to the configured universe, suppresses frames
// identical to the previous one, and hands changed frames to the
// registered callback. The last accepted frame is retained for snapshot
// reads via Channel and Channels.
type Receiver struct {
	cfg    config.ArtNetConfig
	logger *logging.Logger

	// mu guards running and conn across Start/Stop.
	mu      sync.Mutex
	running bool
	conn    *net.UDPConn
	wg      sync.WaitGroup

	// frameMu guards the last accepted frame.
	frameMu  sync.RWMutex
	last     Frame
	hasFrame bool

	// callbackMu guards callback registration.
	callbackMu sync.RWMutex
	callback   FrameCallback

	packetsReceived  atomic.Uint64
	framesAccepted   atomic.Uint64
	framesSuppressed atomic.Uint64
	parseErrors      atomic.Uint64
}

// NewReceiver creates a receiver for the given Art-Net configuration.
// The receiver does not listen until Start is called.
func NewReceiver(cfg config.ArtNetConfig, logger *logging.Logger) *Receiver {
	return &Receiver{
		cfg:    cfg,
		logger: logger.With("component", "artnet"),
	}
}

// SetCallback registers the function invoked for each accepted frame.
// Safe to call before or after Start.
func (r *Receiver) SetCallback(cb FrameCallback) {
	r.callbackMu.Lock()
	r.callback = cb
	r.callbackMu.Unlock()
}

// Start binds the UDP socket and launches the receive goroutine.
//
// Starting an already-running receiver logs a warning and returns nil.
//
// Returns:
//   - error: ErrListenFailed (wrapped) if the socket cannot be bound
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.logger.Warn("receiver already running")
		return nil
	}

	addr := &net.UDPAddr{
		IP:   net.ParseIP(r.cfg.BindIP),
		Port: r.cfg.Port,
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s:%d: %w", ErrListenFailed, r.cfg.BindIP, r.cfg.Port, err)
	}

	r.conn = conn
	r.running = true

	r.wg.Add(1)
	go r.receiveLoop(conn)

	r.logger.Info("artnet receiver started",
		"bind", conn.LocalAddr().String(),
		"universe", r.cfg.Universe,
	)

	return nil
}

// Stop closes the socket and waits for the receive goroutine to exit.
//
// The running flag is cleared before the socket closes so the read-error
// path can distinguish a deliberate shutdown from a transport fault.
// Stopping an already-stopped receiver is a no-op.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn != nil {
		conn.Close() //nolint:errcheck // Best effort; goroutine exit is what matters
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		r.logger.Warn("receive goroutine did not exit within timeout")
	}

	r.logger.Info("artnet receiver stopped")
}

// Active reports whether the receiver is currently listening.
func (r *Receiver) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LocalAddr returns the bound socket address, or nil when stopped.
// Useful when the configured port is 0 (ephemeral).
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Channel returns the last accepted value of a single 1-based channel.
// Channels with no accepted frame yet read as zero.
func (r *Receiver) Channel(channel int) (uint8, error) {
	if channel < MinChannel || channel > MaxChannel {
		return 0, fmt.Errorf("%w: %d", ErrChannelRange, channel)
	}

	r.frameMu.RLock()
	defer r.frameMu.RUnlock()
	return r.last[channel-1], nil
}

// Channels returns a snapshot of count channel values starting at the
// 1-based channel start.
func (r *Receiver) Channels(start, count int) ([]uint8, error) {
	if start < MinChannel || start > MaxChannel {
		return nil, fmt.Errorf("%w: start %d", ErrChannelRange, start)
	}
	if count < 1 || start+count-1 > MaxChannel {
		return nil, fmt.Errorf("%w: start %d count %d", ErrChannelRange, start, count)
	}

	r.frameMu.RLock()
	defer r.frameMu.RUnlock()

	out := make([]uint8, count)
	copy(out, r.last[start-1:start-1+count])
	return out, nil
}

// Stats returns a snapshot of receive-path counters.
func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		PacketsReceived:  r.packetsReceived.Load(),
		FramesAccepted:   r.framesAccepted.Load(),
		FramesSuppressed: r.framesSuppressed.Load(),
		ParseErrors:      r.parseErrors.Load(),
	}
}

// receiveLoop reads datagrams until the socket closes.
func (r *Receiver) receiveLoop(conn *net.UDPConn) {
	defer r.wg.Done()

	buf := make([]byte, readBufferSize)

	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !r.Active() {
				// Deliberate shutdown.
				return
			}
			r.logger.Error("udp read error", "error", err)
			continue
		}

		r.packetsReceived.Add(1)
		r.handlePacket(buf[:n])
	}
}

// handlePacket parses one datagram and applies universe filtering and
// change suppression. Malformed datagrams are dropped without logging;
// an Art-Net node port sees arbitrary broadcast traffic.
func (r *Receiver) handlePacket(data []byte) {
	pkt, err := ParsePacket(data)
	if err != nil {
		r.parseErrors.Add(1)
		return
	}

	if pkt.Universe != r.cfg.Universe {
		return
	}

	r.frameMu.Lock()
	if r.hasFrame && pkt.Frame == r.last {
		r.frameMu.Unlock()
		r.framesSuppressed.Add(1)
		return
	}
	r.last = pkt.Frame
	r.hasFrame = true
	r.frameMu.Unlock()

	r.framesAccepted.Add(1)

	r.callbackMu.RLock()
	cb := r.callback
	r.callbackMu.RUnlock()

	if cb != nil {
		cb(pkt.Frame)
	}
}

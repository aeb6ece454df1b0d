// Package transport owns the UDP socket that feeds the tempo engine.
//
// A single reactor goroutine reads datagrams, decodes them as OSC
// messages or bundles, demultiplexes nested bundle elements, and
// dispatches to registered listeners synchronously. No error from one
// datagram stops the loop.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cadencelab/tempolink/internal/adapters/osc"
	"github.com/cadencelab/tempolink/internal/domain/timetag"
	"github.com/cadencelab/tempolink/pkg/logger"
	"github.com/cadencelab/tempolink/pkg/metrics"
)

// Default bind parameters.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 57121
)

// malformedLogWindow limits noise from senders that are not speaking
// OSC: at most one warning per window.
const malformedLogWindow = 2 * time.Second

// State is the transport lifecycle state.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Delivery is one dispatched OSC message plus the time it applies to.
type Delivery struct {
	Message *osc.Message

	// TimeSec is the enclosing bundle's timetag as POSIX seconds, or
	// the local receive time for bare messages and immediate bundles.
	TimeSec float64

	// Seq is the datagram counter value, for diagnostic labels only.
	Seq uint64
}

// Handler consumes a dispatched message on the reactor goroutine.
type Handler func(ctx context.Context, d Delivery)

type registration struct {
	id      string
	address string
	handler Handler
}

// Transport binds a UDP socket and dispatches decoded OSC traffic.
type Transport struct {
	host  string
	port  int
	debug bool

	mu        sync.Mutex
	state     State
	conn      *net.UDPConn
	done      chan struct{}
	listeners []registration
	catchAll  []registration

	seq atomic.Uint64

	lastMalformedLog time.Time

	logger logger.Logger
}

// New creates a Transport with the given options. The socket is not
// bound until Start.
func New(opts ...Option) *Transport {
	t := &Transport{
		host:  DefaultHost,
		port:  DefaultPort,
		state: StateUnbound,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("transport")
	}
	return t
}

// Listen registers a handler for an exact OSC address and returns a
// registration id for Unlisten.
func (t *Transport) Listen(address string, h Handler) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	reg := registration{id: uuid.New().String(), address: address, handler: h}
	t.listeners = append(t.listeners, reg)
	metrics.UpdateListenerCount(len(t.listeners) + len(t.catchAll))
	return reg.id
}

// ListenAll registers a handler for messages no address listener
// claimed. Used for generic pass-through logging.
func (t *Transport) ListenAll(h Handler) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	reg := registration{id: uuid.New().String(), handler: h}
	t.catchAll = append(t.catchAll, reg)
	metrics.UpdateListenerCount(len(t.listeners) + len(t.catchAll))
	return reg.id
}

// Unlisten removes a registration by id. Unknown ids are a no-op.
func (t *Transport) Unlisten(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = removeRegistration(t.listeners, id)
	t.catchAll = removeRegistration(t.catchAll, id)
	metrics.UpdateListenerCount(len(t.listeners) + len(t.catchAll))
}

func removeRegistration(regs []registration, id string) []registration {
	for i, r := range regs {
		if r.id == id {
			return append(regs[:i], regs[i+1:]...)
		}
	}
	return regs
}

// CurrentState returns the lifecycle state.
func (t *Transport) CurrentState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Addr returns the bound socket address, or nil while unbound.
func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Start binds the UDP socket and launches the reactor. A bind failure
// leaves the transport unbound; the caller may retry or Restart.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateBound {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(t.host, strconv.Itoa(t.port)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}

	t.conn = conn
	t.state = StateBound
	t.done = make(chan struct{})
	metrics.UpdateTransportBound(true)
	t.logger.Info(ctx, "listening for OSC", logger.String("addr", conn.LocalAddr().String()))

	go t.serve(ctx, conn, t.done)
	return nil
}

// Stop closes the socket, waits for the reactor to drain, and removes
// all listeners. After Stop returns no handler will be invoked again.
// Idempotent: stopping an unbound or closed transport is a no-op.
func (t *Transport) Stop() {
	t.mu.Lock()
	if t.state != StateBound {
		t.mu.Unlock()
		return
	}
	conn := t.conn
	done := t.done
	t.state = StateClosed
	t.conn = nil
	t.mu.Unlock()

	_ = conn.Close()
	<-done

	t.mu.Lock()
	t.listeners = nil
	t.catchAll = nil
	metrics.UpdateTransportBound(false)
	metrics.UpdateListenerCount(0)
	t.mu.Unlock()

	t.logger.Info(context.Background(), "transport stopped")
}

// Restart stops the transport, merges new options, and starts it again.
// No listener or socket state survives the boundary.
func (t *Transport) Restart(ctx context.Context, opts ...Option) error {
	t.Stop()
	t.mu.Lock()
	for _, opt := range opts {
		opt(t)
	}
	t.state = StateUnbound
	t.mu.Unlock()
	return t.Start(ctx)
}

// serve is the reactor loop. It exits when the socket closes.
func (t *Transport) serve(ctx context.Context, conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, osc.MaxPacketSize)
	for {
		n, sender, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !isClosedConn(err) {
				t.logger.Error(ctx, "socket read failed", logger.Error(err))
			}
			return
		}

		seq := t.seq.Add(1)
		metrics.RecordDatagramReceived()

		data := make([]byte, n)
		copy(data, buf[:n])

		start := time.Now()
		t.handleDatagram(ctx, data, sender, seq)
		metrics.RecordDispatchLatency(time.Since(start).Seconds())
	}
}

// handleDatagram decodes and dispatches one datagram. Any failure is
// contained here; the reactor keeps reading.
func (t *Transport) handleDatagram(ctx context.Context, data []byte, sender *net.UDPAddr, seq uint64) {
	pkt, err := osc.ParsePacket(data)
	if err != nil {
		metrics.RecordMalformedDatagram()
		if errors.Is(err, osc.ErrInvalidPacket) {
			t.warnMalformed(ctx, sender, err, seq)
		} else {
			t.logger.Error(ctx, "dropping undecodable datagram",
				logger.Uint64("seq", seq),
				logger.String("sender", sender.String()),
				logger.Error(err),
			)
		}
		return
	}

	t.dispatchPacket(ctx, pkt, timetag.Now(), seq)
}

// dispatchPacket fans a packet out to listeners. A bundle's timetag
// applies to every element; nested bundles override it with their own.
func (t *Transport) dispatchPacket(ctx context.Context, pkt osc.Packet, timeSec float64, seq uint64) {
	switch p := pkt.(type) {
	case *osc.Message:
		t.dispatchMessage(ctx, p, timeSec, seq)
	case *osc.Bundle:
		metrics.RecordBundleUnpacked()
		at := timeSec
		if !p.Timetag.IsImmediate() {
			at = p.Timetag.Posix()
		}
		for _, el := range p.Elements {
			t.dispatchPacket(ctx, el, at, seq)
		}
	}
}

func (t *Transport) dispatchMessage(ctx context.Context, m *osc.Message, timeSec float64, seq uint64) {
	if t.debug {
		t.logger.Debug(ctx, "dispatching message",
			logger.Uint64("seq", seq),
			logger.String("message", m.String()),
			logger.Float64("timeSec", timeSec),
		)
	}

	t.mu.Lock()
	matched := make([]registration, 0, 1)
	for _, reg := range t.listeners {
		if reg.address == m.Address {
			matched = append(matched, reg)
		}
	}
	fallback := make([]registration, 0)
	if len(matched) == 0 {
		fallback = append(fallback, t.catchAll...)
	}
	t.mu.Unlock()

	d := Delivery{Message: m, TimeSec: timeSec, Seq: seq}
	for _, reg := range matched {
		reg.handler(ctx, d)
	}
	for _, reg := range fallback {
		reg.handler(ctx, d)
	}
}

// warnMalformed logs a header-validation failure, at most once per
// window, with a hint about the likely sender misconfiguration.
func (t *Transport) warnMalformed(ctx context.Context, sender *net.UDPAddr, err error, seq uint64) {
	now := time.Now()
	if now.Sub(t.lastMalformedLog) < malformedLogWindow {
		return
	}
	t.lastMalformedLog = now
	t.logger.Warn(ctx, "non-OSC datagram received; is the sender configured for this port?",
		logger.Uint64("seq", seq),
		logger.String("sender", sender.String()),
		logger.Error(err),
	)
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

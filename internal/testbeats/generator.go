package testbeats

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cadencelab/tempolink/internal/adapters/osc"
	"github.com/cadencelab/tempolink/pkg/logger"
)

// sounds cycled through by the synthetic pattern.
var sounds = []string{"bd", "sn", "hh", "cp"}

// Runner sends a synthetic event stream to one daemon.
type Runner struct {
	cfg     Config
	conn    *net.UDPConn
	session string
	logger  logger.Logger
}

// NewRunner dials the daemon and prepares a run. Each run carries a
// fresh session id so overlapping runs are distinguishable in logs.
func NewRunner(cfg Config) (*Runner, error) {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("resolving daemon address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dialing daemon: %w", err)
	}
	return &Runner{
		cfg:     cfg,
		conn:    conn,
		session: uuid.New().String(),
		logger:  logger.Get().Named("testbeats"),
	}, nil
}

// Run sends the stream. The cycle position advances at the configured
// cps; drift and cps jumps are layered on per Config.
func (r *Runner) Run(ctx context.Context) error {
	defer r.conn.Close()

	r.logger.Info(ctx, "starting synthetic beat stream",
		logger.String("session", r.session),
		logger.Float64("cps", r.cfg.CPS),
		logger.Int("count", r.cfg.Count),
	)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	cps := r.cfg.CPS
	cycle := 0.0

	for sent := 0; r.cfg.Count == 0 || sent < r.cfg.Count; sent++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if r.cfg.JumpEvery > 0 && sent > 0 && sent%r.cfg.JumpEvery == 0 {
			cps *= 1.25
			r.logger.Info(ctx, "jumping cps", logger.Float64("cps", cps))
		}

		if r.cfg.MalformedEvery > 0 && sent > 0 && sent%r.cfg.MalformedEvery == 0 {
			if _, err := r.conn.Write([]byte("not osc at all")); err != nil {
				return fmt.Errorf("sending malformed datagram: %w", err)
			}
		}

		if err := r.sendEvent(sent, cps, cycle); err != nil {
			return err
		}

		cycle += cps*r.cfg.Interval.Seconds() + r.cfg.DriftCycles
	}

	r.logger.Info(ctx, "stream complete", logger.String("session", r.session))
	return nil
}

func (r *Runner) sendEvent(n int, cps, cycle float64) error {
	msg := osc.NewMessage("/dirt/play",
		"cps", cps,
		"cycle", cycle,
		"delta", r.cfg.Interval.Seconds(),
		"s", sounds[n%len(sounds)],
		"orbit", int32(0),
		"session", r.session,
	)

	var pkt osc.Packet = msg
	if r.cfg.Bundle {
		b := osc.NewBundle(msg)
		b.Timetag = osc.TimetagFromTime(time.Now())
		pkt = b
	}

	data, err := pkt.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshaling event %d: %w", n, err)
	}
	if _, err := r.conn.Write(data); err != nil {
		return fmt.Errorf("sending event %d: %w", n, err)
	}
	return nil
}

package renderer

import (
	"context"
	"fmt"
	"net"

	"github.com/cadencelab/tempolink/internal/adapters/osc"
	"github.com/cadencelab/tempolink/internal/domain/tempo"
)

// TempoAddress is the downstream OSC address tempo updates are
// forwarded on.
const TempoAddress = "/tempolink/tempo"

// NopSetter accepts every candidate. It stands in for the rendering
// engine when none is configured.
type NopSetter struct{}

func (NopSetter) SetTempo(context.Context, tempo.Candidate) error { return nil }

// OSCSetter forwards accepted tempo shapes downstream as OSC messages
// over UDP. Precise candidates carry rational numerators/denominators
// and an anchor timetag; simple candidates carry a bare float.
type OSCSetter struct {
	conn *net.UDPConn
}

// NewOSCSetter dials the downstream renderer address.
func NewOSCSetter(addr string) (*OSCSetter, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendererUnreachable, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendererUnreachable, err)
	}
	return &OSCSetter{conn: conn}, nil
}

// SetTempo marshals and sends the candidate. Marshal or send failure is
// a rejection; the applier falls through to the next candidate.
func (s *OSCSetter) SetTempo(ctx context.Context, c tempo.Candidate) error {
	var msg *osc.Message
	switch c.Kind {
	case tempo.KindPrecise:
		msg = osc.NewMessage(TempoAddress,
			c.Frequency.Num, c.Frequency.Den,
			c.CycleCount.Num, c.CycleCount.Den,
			osc.TimetagFromPosix(c.AnchorTimeSec),
		)
	case tempo.KindSimple:
		msg = osc.NewMessage(TempoAddress, c.CPS)
	default:
		return fmt.Errorf("unknown candidate kind %v", c.Kind)
	}

	data, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	_, err = s.conn.Write(data)
	return err
}

// Close releases the downstream socket.
func (s *OSCSetter) Close() error {
	return s.conn.Close()
}

package transport_test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cadencelab/tempolink/internal/adapters/osc"
	"github.com/cadencelab/tempolink/internal/adapters/transport"
	"github.com/cadencelab/tempolink/internal/domain/timetag"
	"github.com/cadencelab/tempolink/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

const deliveryTimeout = 2 * time.Second

// countingLogger counts log calls by severity.
type countingLogger struct {
	debugs, infos, warns, errs atomic.Int64
}

func (c *countingLogger) Debug(context.Context, string, ...logger.Field) { c.debugs.Add(1) }
func (c *countingLogger) Info(context.Context, string, ...logger.Field)  { c.infos.Add(1) }
func (c *countingLogger) Warn(context.Context, string, ...logger.Field)  { c.warns.Add(1) }
func (c *countingLogger) Error(context.Context, string, ...logger.Field) { c.errs.Add(1) }
func (c *countingLogger) Named(string) logger.Logger                     { return c }

// startTransport binds an ephemeral localhost socket and returns the
// transport plus a connected sender.
func startTransport(t *testing.T, opts ...transport.Option) (*transport.Transport, *net.UDPConn) {
	t.Helper()
	opts = append([]transport.Option{
		transport.WithHost("127.0.0.1"),
		transport.WithPort(0),
	}, opts...)
	tr := transport.New(opts...)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("starting transport: %v", err)
	}
	t.Cleanup(tr.Stop)

	conn, err := net.DialUDP("udp", nil, tr.Addr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dialing transport: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return tr, conn
}

func send(t *testing.T, conn *net.UDPConn, pkt osc.Packet) {
	t.Helper()
	data, err := pkt.MarshalBinary()
	if err != nil {
		t.Fatalf("marshaling packet: %v", err)
	}
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("sending packet: %v", err)
	}
}

func recv(ch <-chan transport.Delivery) (transport.Delivery, bool) {
	select {
	case d := <-ch:
		return d, true
	case <-time.After(deliveryTimeout):
		return transport.Delivery{}, false
	}
}

func TestDispatch(t *testing.T) {
	Convey("Given a bound transport with a /dirt/play listener", t, func() {
		tr, conn := startTransport(t)
		received := make(chan transport.Delivery, 16)
		tr.Listen("/dirt/play", func(_ context.Context, d transport.Delivery) {
			received <- d
		})

		Convey("When a bare message arrives", func() {
			before := timetag.Now()
			send(t, conn, osc.NewMessage("/dirt/play", "cps", 0.5625))

			d, ok := recv(received)
			So(ok, ShouldBeTrue)
			So(d.Message.Address, ShouldEqual, "/dirt/play")
			So(d.Message.Arguments[1], ShouldAlmostEqual, 0.5625)

			Convey("Then its time is the local receive time", func() {
				So(d.TimeSec, ShouldBeGreaterThanOrEqualTo, before-1)
				So(d.TimeSec, ShouldBeLessThan, before+deliveryTimeout.Seconds()+1)
			})
		})

		Convey("When the message rides in a timetagged bundle", func() {
			b := osc.NewBundle(osc.NewMessage("/dirt/play", "cps", 2.0))
			b.Timetag = osc.TimetagFromPosix(1700000000.25)
			send(t, conn, b)

			d, ok := recv(received)
			So(ok, ShouldBeTrue)

			Convey("Then the bundle timetag is the message time", func() {
				So(d.TimeSec, ShouldAlmostEqual, 1700000000.25, 1e-6)
			})
		})

		Convey("When a nested bundle carries its own timetag", func() {
			inner := osc.NewBundle(osc.NewMessage("/dirt/play", "cps", 2.0))
			inner.Timetag = osc.TimetagFromPosix(1700000010.5)
			outer := osc.NewBundle(inner)
			outer.Timetag = osc.TimetagFromPosix(1700000000.25)
			send(t, conn, outer)

			d, ok := recv(received)
			So(ok, ShouldBeTrue)

			Convey("Then the inner tag overrides the outer", func() {
				So(d.TimeSec, ShouldAlmostEqual, 1700000010.5, 1e-6)
			})
		})

		Convey("When datagram sequence numbers are compared", func() {
			send(t, conn, osc.NewMessage("/dirt/play", "cps", 1.0))
			first, ok := recv(received)
			So(ok, ShouldBeTrue)

			send(t, conn, osc.NewMessage("/dirt/play", "cps", 1.0))
			second, ok := recv(received)
			So(ok, ShouldBeTrue)

			Convey("Then the counter increases monotonically", func() {
				So(second.Seq, ShouldBeGreaterThan, first.Seq)
			})
		})
	})
}

func TestCatchAll(t *testing.T) {
	Convey("Given a transport with an address listener and a catch-all", t, func() {
		tr, conn := startTransport(t)
		dirt := make(chan transport.Delivery, 4)
		other := make(chan transport.Delivery, 4)
		tr.Listen("/dirt/play", func(_ context.Context, d transport.Delivery) { dirt <- d })
		tr.ListenAll(func(_ context.Context, d transport.Delivery) { other <- d })

		Convey("When an unrecognized address arrives", func() {
			send(t, conn, osc.NewMessage("/ctrl", "hello"))

			d, ok := recv(other)
			So(ok, ShouldBeTrue)
			So(d.Message.Address, ShouldEqual, "/ctrl")
		})

		Convey("When the tracked address arrives", func() {
			send(t, conn, osc.NewMessage("/dirt/play", "cps", 1.0))

			_, ok := recv(dirt)
			So(ok, ShouldBeTrue)

			Convey("Then the catch-all does not also fire", func() {
				select {
				case <-other:
					So(false, ShouldBeTrue)
				case <-time.After(100 * time.Millisecond):
				}
			})
		})
	})
}

func TestUnlisten(t *testing.T) {
	Convey("Given a registered listener", t, func() {
		tr, conn := startTransport(t)
		received := make(chan transport.Delivery, 4)
		id := tr.Listen("/dirt/play", func(_ context.Context, d transport.Delivery) {
			received <- d
		})

		Convey("When it is unregistered", func() {
			tr.Unlisten(id)
			send(t, conn, osc.NewMessage("/dirt/play", "cps", 1.0))

			Convey("Then nothing is delivered", func() {
				select {
				case <-received:
					So(false, ShouldBeTrue)
				case <-time.After(200 * time.Millisecond):
				}
			})
		})
	})
}

func TestMalformedTolerance(t *testing.T) {
	Convey("Given a bound transport", t, func() {
		log := &countingLogger{}
		tr, conn := startTransport(t, transport.WithLogger(log))
		received := make(chan transport.Delivery, 64)
		tr.Listen("/dirt/play", func(_ context.Context, d transport.Delivery) {
			received <- d
		})

		Convey("When a burst of non-OSC datagrams arrives", func() {
			for i := 0; i < 50; i++ {
				_, err := conn.Write([]byte("definitely not osc"))
				So(err, ShouldBeNil)
			}
			// A valid message after the burst proves the loop survived.
			send(t, conn, osc.NewMessage("/dirt/play", "cps", 1.0))

			d, ok := recv(received)
			So(ok, ShouldBeTrue)
			So(d.Message.Address, ShouldEqual, "/dirt/play")

			Convey("Then the warning is rate-limited to the window", func() {
				So(log.warns.Load(), ShouldBeLessThanOrEqualTo, 1)
			})
		})
	})
}

func TestLifecycle(t *testing.T) {
	Convey("Given a transport", t, func() {
		tr := transport.New(
			transport.WithHost("127.0.0.1"),
			transport.WithPort(0),
		)
		So(tr.CurrentState(), ShouldEqual, transport.StateUnbound)

		Reset(tr.Stop)

		Convey("When started", func() {
			So(tr.Start(context.Background()), ShouldBeNil)
			So(tr.CurrentState(), ShouldEqual, transport.StateBound)
			So(tr.Addr(), ShouldNotBeNil)

			Convey("Then a second Start is a no-op", func() {
				So(tr.Start(context.Background()), ShouldBeNil)
			})

			Convey("Then Stop closes and is idempotent", func() {
				tr.Stop()
				So(tr.CurrentState(), ShouldEqual, transport.StateClosed)
				tr.Stop()
				So(tr.CurrentState(), ShouldEqual, transport.StateClosed)
			})

			Convey("Then Restart yields a fresh bound socket", func() {
				So(tr.Restart(context.Background()), ShouldBeNil)
				So(tr.CurrentState(), ShouldEqual, transport.StateBound)
				tr.Stop()
			})
		})

		Convey("When stopping before any start", func() {
			fresh := transport.New()
			fresh.Stop() // must not panic or block
			So(fresh.CurrentState(), ShouldEqual, transport.StateUnbound)
		})
	})
}

func TestBindFailure(t *testing.T) {
	Convey("Given an address that cannot be bound", t, func() {
		tr := transport.New(
			transport.WithHost("203.0.113.1"), // TEST-NET, not local
			transport.WithPort(57121),
		)

		Convey("When starting", func() {
			err := tr.Start(context.Background())

			Convey("Then the bind error is reported and state stays unbound", func() {
				So(err, ShouldWrap, transport.ErrBind)
				So(tr.CurrentState(), ShouldEqual, transport.StateUnbound)
			})
		})
	})
}

package wl

import (
	"encoding/binary"
	"image"
	"image/color"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/shm"
	"deedles.dev/wlcompositor/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proxy uint32

func (p proxy) ID() uint32                         { return uint32(p) }
func (p proxy) SetID(uint32)                       {}
func (p proxy) Delete()                            {}
func (p proxy) Dispatch(*wire.MessageBuffer) error { return nil }
func (p proxy) MethodName(op uint16) string        { return strconv.Itoa(int(op)) }
func (p proxy) String() string                     { return "proxy@" + strconv.Itoa(int(p)) }

type testClient struct {
	t       *testing.T
	srv     *Server
	conn    *wire.Conn
	events  chan *wire.MessageBuffer
	next    uint32
	globals map[string]uint32
}

func newTestServer(t *testing.T, opts ...compositor.Option) (*Server, *testClient) {
	t.Helper()

	lis, err := wire.Listen(filepath.Join(t.TempDir(), "wayland-test"))
	require.NoError(t, err)
	srv := NewServer(lis, compositor.New(opts...))
	t.Cleanup(func() { srv.Close() })

	c, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: srv.Addr(), Net: "unix"})
	require.NoError(t, err)

	tc := testClient{
		t:      t,
		srv:    srv,
		conn:   wire.NewConn(c),
		events: make(chan *wire.MessageBuffer, 64),
		next:   2,
	}
	t.Cleanup(func() { tc.conn.Close() })
	go tc.listen()

	require.Eventually(t, func() bool {
		srv.Flush()
		return len(srv.Clients()) == 1
	}, 5*time.Second, time.Millisecond)

	return srv, &tc
}

func (tc *testClient) listen() {
	defer close(tc.events)
	for {
		msg, err := wire.ReadMessage(tc.conn)
		if err != nil {
			return
		}
		tc.events <- msg
	}
}

// failures collects the protocol errors that the compositor's record of
// the client fails with.
func (tc *testClient) failures() *[]*compositor.ProtocolError {
	tc.t.Helper()

	clients := tc.srv.Clients()
	require.Len(tc.t, clients, 1)
	var errs []*compositor.ProtocolError
	clients[0].Core().Failed = func(err *compositor.ProtocolError) { errs = append(errs, err) }
	return &errs
}

func (tc *testClient) newID() uint32 {
	id := tc.next
	tc.next++
	return id
}

func (tc *testClient) send(id uint32, op uint16, args ...any) {
	tc.t.Helper()

	msg := wire.NewMessage(proxy(id), op)
	for _, arg := range args {
		switch arg := arg.(type) {
		case int32:
			msg.WriteInt(arg)
		case uint32:
			msg.WriteUint(arg)
		case wire.Fixed:
			msg.WriteFixed(arg)
		case wire.NewID:
			msg.WriteNewID(arg)
		case *os.File:
			msg.WriteFile(arg)
		default:
			tc.t.Fatalf("unsupported argument type %T", arg)
		}
	}
	require.NoError(tc.t, msg.Build(tc.conn))
}

// roundtrip flushes the server until it has handled everything sent so
// far and returns the events that it sent in the meantime. It stops
// early if the server closes the connection.
func (tc *testClient) roundtrip() (events []*wire.MessageBuffer) {
	tc.t.Helper()

	cb := tc.newID()
	tc.send(1, 0, cb)

	deadline := time.After(5 * time.Second)
	for {
		tc.srv.Flush()
		select {
		case msg, ok := <-tc.events:
			if !ok {
				return events
			}
			if (msg.Sender() == cb) && (msg.Op() == 0) {
				return events
			}
			events = append(events, msg)
		case <-time.After(time.Millisecond):
		case <-deadline:
			tc.t.Fatal("roundtrip timed out")
		}
	}
}

func (tc *testClient) bind(iface string, version uint32) uint32 {
	tc.t.Helper()

	if tc.globals == nil {
		registry := tc.newID()
		tc.send(1, 1, registry)
		tc.globals = map[string]uint32{"registry": registry}
		for _, ev := range tc.roundtrip() {
			if (ev.Sender() != registry) || (ev.Op() != 0) {
				continue
			}
			name := ev.ReadUint()
			tc.globals[ev.ReadString()] = name
		}
	}

	name, ok := tc.globals[iface]
	require.True(tc.t, ok, "global %v not advertised", iface)

	id := tc.newID()
	tc.send(tc.globals["registry"], 0, name, wire.NewID{Interface: iface, Version: version, ID: id})
	return id
}

func findEvents(events []*wire.MessageBuffer, sender uint32, op uint16) (found []*wire.MessageBuffer) {
	for _, ev := range events {
		if (ev.Sender() == sender) && (ev.Op() == op) {
			found = append(found, ev)
		}
	}
	return found
}

// newPoolFile returns a file holding two 4x4 ARGB8888 buffers, the
// first filled with c.
func newPoolFile(t *testing.T, c uint32) *os.File {
	t.Helper()

	file, err := os.CreateTemp(t.TempDir(), "pool")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })

	data := make([]byte, 128)
	for i := 0; i < 64; i += 4 {
		binary.NativeEndian.PutUint32(data[i:], c)
	}
	_, err = file.Write(data)
	require.NoError(t, err)

	return file
}

func TestGlobals(t *testing.T) {
	_, tc := newTestServer(t)

	tc.bind(compositorInterface, compositorVersion)
	assert.Contains(t, tc.globals, compositorInterface)
	assert.Contains(t, tc.globals, subcompositorInterface)
	assert.Contains(t, tc.globals, shmInterface)
	assert.Contains(t, tc.globals, viewporterInterface)

	shmID := tc.bind(shmInterface, shmVersion)
	formats := findEvents(tc.roundtrip(), shmID, 0)
	require.Len(t, formats, len(shm.Formats))
	for i, ev := range formats {
		assert.Equal(t, uint32(shm.Formats[i]), ev.ReadUint())
	}
}

func TestBindInvalidVersion(t *testing.T) {
	_, tc := newTestServer(t)

	tc.bind(shmInterface, shmVersion+1)
	errs := findEvents(tc.roundtrip(), 1, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, uint32(1), errs[0].ReadUint())
	assert.Equal(t, compositor.DisplayErrorInvalidObject, errs[0].ReadUint())
}

func TestSurfaceLifecycle(t *testing.T) {
	srv, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)
	shmID := tc.bind(shmInterface, shmVersion)

	pool, buf1, buf2 := tc.newID(), tc.newID(), tc.newID()
	tc.send(shmID, 0, pool, newPoolFile(t, 0xFF0000FF), int32(128))
	tc.send(pool, 0, buf1, int32(0), int32(4), int32(4), int32(16), uint32(shm.FormatARGB8888))
	tc.send(pool, 0, buf2, int32(64), int32(4), int32(4), int32(16), uint32(shm.FormatXRGB8888))

	surface, frame := tc.newID(), tc.newID()
	tc.send(comp, 0, surface)
	tc.send(surface, 1, buf1, int32(0), int32(0))
	tc.send(surface, 2, int32(0), int32(0), int32(4), int32(4))
	tc.send(surface, 3, frame)
	tc.send(surface, 6)
	tc.roundtrip()

	surfaces := srv.Compositor().Surfaces()
	require.Len(t, surfaces, 1)
	s := surfaces[0]
	assert.True(t, s.HasContent())
	assert.Equal(t, image.Pt(4, 4), s.Size())

	handle, ok := s.Buffer().Handle().(*shm.Buffer)
	require.True(t, ok)
	assert.Equal(t, shm.FormatARGB8888, handle.Format())
	assert.Equal(t, color.RGBA64{B: 0xFFFF, A: 0xFFFF}, color.RGBA64Model.Convert(handle.Image().At(1, 1)))

	srv.Compositor().EndFrame(42)
	events := tc.roundtrip()
	done := findEvents(events, frame, 0)
	require.Len(t, done, 1)
	assert.Equal(t, uint32(42), done[0].ReadUint())
	var deleted []uint32
	for _, ev := range findEvents(events, 1, 1) {
		deleted = append(deleted, ev.ReadUint())
	}
	assert.Contains(t, deleted, frame)

	tc.send(surface, 1, buf2, int32(0), int32(0))
	tc.send(surface, 6)
	events = tc.roundtrip()
	assert.Len(t, findEvents(events, buf1, 0), 1)
	assert.Empty(t, findEvents(events, buf2, 0))

	tc.send(surface, 0)
	events = tc.roundtrip()
	assert.Empty(t, srv.Compositor().Surfaces())
	assert.Len(t, findEvents(events, buf2, 0), 1)
}

func TestProtocolErrorDisconnects(t *testing.T) {
	srv, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)

	surface := tc.newID()
	tc.send(comp, 0, surface)
	tc.send(surface, 8, int32(0))

	errs := findEvents(tc.roundtrip(), 1, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, surface, errs[0].ReadUint())
	assert.Equal(t, compositor.SurfaceErrorInvalidScale, errs[0].ReadUint())
	assert.NotEmpty(t, errs[0].ReadString())

	assert.Empty(t, srv.Clients())
	assert.Empty(t, srv.Compositor().Surfaces())
	assert.Empty(t, srv.Compositor().Clients())
}

func TestInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		send   func(tc *testClient, comp uint32)
		object func(comp uint32) uint32
		code   uint32
	}{
		{
			name:   "UnknownObject",
			send:   func(tc *testClient, comp uint32) { tc.send(99, 0) },
			object: func(uint32) uint32 { return 1 },
			code:   compositor.DisplayErrorInvalidObject,
		},
		{
			name:   "UnknownOpcode",
			send:   func(tc *testClient, comp uint32) { tc.send(comp, 7) },
			object: func(comp uint32) uint32 { return comp },
			code:   compositor.DisplayErrorInvalidMethod,
		},
		{
			name:   "MissingArguments",
			send:   func(tc *testClient, comp uint32) { tc.send(comp, 0) },
			object: func(uint32) uint32 { return 1 },
			code:   compositor.DisplayErrorInvalidMethod,
		},
		{
			name:   "ReusedID",
			send:   func(tc *testClient, comp uint32) { tc.send(comp, 1, comp) },
			object: func(uint32) uint32 { return 1 },
			code:   compositor.DisplayErrorInvalidObject,
		},
		{
			name: "UnknownBuffer",
			send: func(tc *testClient, comp uint32) {
				surface := tc.newID()
				tc.send(comp, 0, surface)
				tc.send(surface, 1, uint32(99), int32(0), int32(0))
			},
			object: func(uint32) uint32 { return 1 },
			code:   compositor.DisplayErrorInvalidObject,
		},
		{
			name: "WrongInterface",
			send: func(tc *testClient, comp uint32) {
				surface := tc.newID()
				tc.send(comp, 0, surface)
				tc.send(surface, 1, comp, int32(0), int32(0))
			},
			object: func(uint32) uint32 { return 1 },
			code:   compositor.DisplayErrorInvalidObject,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv, tc := newTestServer(t)
			comp := tc.bind(compositorInterface, compositorVersion)
			failures := tc.failures()

			test.send(tc, comp)
			errs := findEvents(tc.roundtrip(), 1, 0)
			require.Len(t, errs, 1)
			assert.Equal(t, test.object(comp), errs[0].ReadUint())
			assert.Equal(t, test.code, errs[0].ReadUint())
			assert.Empty(t, srv.Clients())

			require.Len(t, *failures, 1)
			assert.Equal(t, test.code, (*failures)[0].Code)
		})
	}
}

func TestCommitWithoutRole(t *testing.T) {
	_, tc := newTestServer(t, compositor.WithRequireRole(true))
	comp := tc.bind(compositorInterface, compositorVersion)
	shmID := tc.bind(shmInterface, shmVersion)
	failures := tc.failures()

	pool, buf := tc.newID(), tc.newID()
	tc.send(shmID, 0, pool, newPoolFile(t, 0xFF0000FF), int32(128))
	tc.send(pool, 0, buf, int32(0), int32(4), int32(4), int32(16), uint32(shm.FormatARGB8888))

	surface := tc.newID()
	tc.send(comp, 0, surface)
	tc.send(surface, 1, buf, int32(0), int32(0))
	tc.send(surface, 6)

	errs := findEvents(tc.roundtrip(), 1, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, surface, errs[0].ReadUint())
	assert.Equal(t, compositor.DisplayErrorInvalidMethod, errs[0].ReadUint())
	require.Len(t, *failures, 1)
}

func TestAttachOffset(t *testing.T) {
	_, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)

	failures := tc.failures()

	surface := tc.newID()
	tc.send(comp, 0, surface)
	tc.send(surface, 1, uint32(0), int32(1), int32(0))

	errs := findEvents(tc.roundtrip(), 1, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, surface, errs[0].ReadUint())
	assert.Equal(t, compositor.SurfaceErrorInvalidOffset, errs[0].ReadUint())

	require.Len(t, *failures, 1)
	assert.Equal(t, "wl_surface", (*failures)[0].Interface)
	assert.Equal(t, compositor.SurfaceErrorInvalidOffset, (*failures)[0].Code)
}

func TestSubsurfaces(t *testing.T) {
	srv, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)
	subcomp := tc.bind(subcompositorInterface, subcompositorVersion)

	parent, child, sub := tc.newID(), tc.newID(), tc.newID()
	tc.send(comp, 0, parent)
	tc.send(comp, 0, child)
	tc.send(subcomp, 1, sub, child, parent)
	tc.send(sub, 1, int32(5), int32(6))
	tc.send(child, 6)
	tc.roundtrip()

	surfaces := srv.Compositor().Surfaces()
	require.Len(t, surfaces, 2)
	p, c := surfaces[0], surfaces[1]
	require.Equal(t, p, c.Parent())
	assert.True(t, c.Subsurface().HasCachedState())
	assert.Equal(t, image.Point{}, c.Subsurface().Position())

	tc.send(sub, 2, parent)
	tc.send(parent, 6)
	tc.roundtrip()
	assert.False(t, c.Subsurface().HasCachedState())
	assert.Equal(t, image.Pt(5, 6), c.Subsurface().Position())
	assert.Equal(t, []*compositor.Surface{p, c}, p.Stack())

	tc.send(sub, 3, parent)
	tc.roundtrip()
	assert.Equal(t, []*compositor.Surface{c, p}, p.Stack())

	tc.send(sub, 0)
	tc.roundtrip()
	assert.Nil(t, c.Parent())
	assert.Equal(t, []*compositor.Surface{p}, p.Stack())

	tc.send(subcomp, 1, tc.newID(), parent, parent)
	errs := findEvents(tc.roundtrip(), 1, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, subcomp, errs[0].ReadUint())
	assert.Equal(t, compositor.SubcompositorErrorBadParent, errs[0].ReadUint())
}

func TestViewport(t *testing.T) {
	srv, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)
	viewporter := tc.bind(viewporterInterface, viewporterVersion)

	surface, viewport := tc.newID(), tc.newID()
	tc.send(comp, 0, surface)
	tc.send(viewporter, 1, viewport, surface)
	tc.send(viewport, 1, wire.FixedFloat(0.5), wire.FixedInt(0), wire.FixedInt(2), wire.FixedInt(2))
	tc.send(viewport, 2, int32(8), int32(6))
	tc.send(surface, 6)
	tc.roundtrip()

	s := srv.Compositor().Surfaces()[0]
	assert.Equal(t, image.Rect(0, 0, 3, 2), s.SourceGeometry())
	assert.Equal(t, image.Pt(8, 6), s.Size())

	tc.send(viewport, 0)
	tc.send(surface, 6)
	tc.roundtrip()
	assert.Equal(t, image.Rectangle{}, s.SourceGeometry())
	assert.Equal(t, image.Point{}, s.Size())

	tc.send(viewporter, 1, tc.newID(), surface)
	tc.send(viewporter, 1, tc.newID(), surface)
	errs := findEvents(tc.roundtrip(), 1, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, viewporter, errs[0].ReadUint())
	assert.Equal(t, ViewporterErrorViewportExists, errs[0].ReadUint())
}

func TestViewportBadValue(t *testing.T) {
	_, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)
	viewporter := tc.bind(viewporterInterface, viewporterVersion)

	surface, viewport := tc.newID(), tc.newID()
	tc.send(comp, 0, surface)
	tc.send(viewporter, 1, viewport, surface)
	tc.send(viewport, 2, int32(0), int32(6))

	errs := findEvents(tc.roundtrip(), 1, 0)
	require.Len(t, errs, 1)
	assert.Equal(t, viewport, errs[0].ReadUint())
	assert.Equal(t, ViewportErrorBadValue, errs[0].ReadUint())
}

func TestRegions(t *testing.T) {
	srv, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)

	surface, r := tc.newID(), tc.newID()
	tc.send(comp, 0, surface)
	tc.send(comp, 1, r)
	tc.send(r, 1, int32(0), int32(0), int32(10), int32(10))
	tc.send(r, 2, int32(0), int32(0), int32(5), int32(10))
	tc.send(surface, 4, r)
	tc.send(surface, 5, r)
	tc.send(r, 0)
	tc.send(surface, 6)
	tc.roundtrip()

	s := srv.Compositor().Surfaces()[0]
	assert.Equal(t, image.Rect(5, 0, 10, 10), s.OpaqueRegion().Bounds())
	require.NotNil(t, s.InputRegion())
	assert.True(t, s.InputRegion().Contains(image.Pt(7, 7)))
	assert.False(t, s.InputRegion().Contains(image.Pt(2, 2)))
}

func TestDisconnectDestroysSurfaces(t *testing.T) {
	srv, tc := newTestServer(t)
	comp := tc.bind(compositorInterface, compositorVersion)

	tc.send(comp, 0, tc.newID())
	tc.send(comp, 0, tc.newID())
	tc.roundtrip()
	require.Len(t, srv.Compositor().Surfaces(), 2)

	tc.conn.Close()
	require.Eventually(t, func() bool {
		srv.Flush()
		return len(srv.Clients()) == 0
	}, 5*time.Second, time.Millisecond)
	assert.Empty(t, srv.Compositor().Surfaces())
}

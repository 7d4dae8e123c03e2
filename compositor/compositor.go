// Package compositor implements the core object model of a Wayland
// compositor: surfaces with double-buffered state, the buffers that
// clients attach to them, regions and sub-surfaces.
//
// The package knows nothing about the wire protocol. The server side of
// the protocol translates requests into calls on the types here and
// implements the small resource interfaces, such as BufferResource and
// CallbackResource, that the core uses to talk back to clients.
//
// None of the types in this package are safe for concurrent use. All
// calls for a given Compositor must happen on the same goroutine.
package compositor

import (
	"deedles.dev/wlcompositor/internal/debug"
	"golang.org/x/exp/slices"
)

// TextureID identifies a texture created by a GraphicsIntegration.
type TextureID uint32

// GraphicsIntegration turns buffers into something that can be
// rendered.
type GraphicsIntegration interface {
	CreateTextureFromBuffer(handle any) (TextureID, error)
	DestroyTexture(tex TextureID)
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithGraphicsIntegration sets the graphics integration used by
// Buffer.Texture.
func WithGraphicsIntegration(gfx GraphicsIntegration) Option {
	return func(c *Compositor) {
		c.gfx = gfx
	}
}

// WithRequireRole sets whether new surfaces need a role before content
// can be committed to them.
func WithRequireRole(require bool) Option {
	return func(c *Compositor) {
		c.requireRole = require
	}
}

// Compositor is the root of the object model. It owns every surface and
// the queue of pending buffer releases.
type Compositor struct {
	// SurfaceCreated, if non-nil, is called for each surface created
	// with CreateSurface.
	SurfaceCreated func(*Surface)

	// SurfaceCommitted, if non-nil, is called each time a surface's
	// pending or cached state is applied.
	SurfaceCommitted func(*Surface)

	gfx         GraphicsIntegration
	requireRole bool

	clients    map[ClientID]*Client
	nextClient ClientID

	surfaces    map[SurfaceID]*Surface
	order       []SurfaceID
	nextSurface SurfaceID

	releases []*Buffer
	buffers  map[BufferResource][]*Buffer
}

// New returns a new, empty Compositor.
func New(opts ...Option) *Compositor {
	c := Compositor{
		clients:  make(map[ClientID]*Client),
		surfaces: make(map[SurfaceID]*Surface),
		buffers:  make(map[BufferResource][]*Buffer),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// GraphicsIntegration returns the compositor's graphics integration,
// or nil if it has none.
func (c *Compositor) GraphicsIntegration() GraphicsIntegration {
	return c.gfx
}

// NewClient registers a new client.
func (c *Compositor) NewClient() *Client {
	c.nextClient++
	client := Client{
		compositor: c,
		id:         c.nextClient,
	}
	c.clients[client.id] = &client
	return &client
}

// Client returns the client with the given ID, or nil if there is none.
func (c *Compositor) Client(id ClientID) *Client {
	return c.clients[id]
}

// Clients returns every registered client in the order they were
// registered.
func (c *Compositor) Clients() []*Client {
	clients := make([]*Client, 0, len(c.clients))
	for _, client := range c.clients {
		clients = append(clients, client)
	}
	slices.SortFunc(clients, func(c1, c2 *Client) int { return int(c1.id) - int(c2.id) })
	return clients
}

// NewSurface creates a surface for client, which may be nil. The surface
// is not initialized; callers are expected to finish setting it up and
// then call Initialize.
func (c *Compositor) NewSurface(client *Client) *Surface {
	c.nextSurface++
	s := Surface{
		compositor:   c,
		id:           c.nextSurface,
		client:       client,
		roleRequired: c.requireRole,
		bufferScale:  1,
	}
	s.stack = []SurfaceID{s.id}
	s.pending.init()

	c.surfaces[s.id] = &s
	c.order = append(c.order, s.id)
	if client != nil {
		client.surfaces = append(client.surfaces, s.id)
	}
	trackUninitialized(&s)
	return &s
}

// CreateSurface creates and initializes a surface for client, calling
// SurfaceCreated before it is initialized.
func (c *Compositor) CreateSurface(client *Client) *Surface {
	s := c.NewSurface(client)
	if c.SurfaceCreated != nil {
		c.SurfaceCreated(s)
	}
	s.Initialize()
	return s
}

// Surface returns the surface with the given ID, or nil if it does not
// exist or has been destroyed.
func (c *Compositor) Surface(id SurfaceID) *Surface {
	return c.surfaces[id]
}

// Surfaces returns every live surface in creation order.
func (c *Compositor) Surfaces() []*Surface {
	surfaces := make([]*Surface, 0, len(c.order))
	for _, id := range c.order {
		surfaces = append(surfaces, c.surfaces[id])
	}
	return surfaces
}

func (c *Compositor) removeSurface(s *Surface) {
	delete(c.surfaces, s.id)
	if i := slices.Index(c.order, s.id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	if s.client != nil {
		s.client.removeSurface(s.id)
	}
}

func (c *Compositor) trackBuffer(b *Buffer) {
	c.buffers[b.res] = append(c.buffers[b.res], b)
}

func (c *Compositor) untrackBuffer(res BufferResource, b *Buffer) {
	live := c.buffers[res]
	i := slices.Index(live, b)
	if i < 0 {
		return
	}
	live = slices.Delete(live, i, i+1)
	if len(live) == 0 {
		delete(c.buffers, res)
		return
	}
	c.buffers[res] = live
}

// bufferInUse reports whether a Buffer other than skip that wraps res
// is still owned by a surface or held by composition.
func (c *Compositor) bufferInUse(res BufferResource, skip *Buffer) bool {
	for _, b := range c.buffers[res] {
		if (b != skip) && (b.surfaceHas || (b.displayRefs > 0)) {
			return true
		}
	}
	return false
}

func (c *Compositor) scheduleRelease(b *Buffer) {
	c.releases = append(c.releases, b)
}

// PendingReleases returns the number of scheduled buffer releases that
// have not been executed yet.
func (c *Compositor) PendingReleases() int {
	return len(c.releases)
}

// DrainReleases executes every scheduled buffer release. It should be
// called after each render pass.
func (c *Compositor) DrainReleases() {
	for len(c.releases) > 0 {
		releases := c.releases
		c.releases = nil
		for _, b := range releases {
			b.scheduledRelease()
		}
	}
}

// SendFrameCallbacks fires the committed frame callbacks of every
// surface, in surface creation order.
func (c *Compositor) SendFrameCallbacks(time uint32) {
	for _, s := range c.Surfaces() {
		s.SendFrameCallbacks(time)
	}
}

// EndFrame finishes a render pass: scheduled buffer releases are
// executed and then frame callbacks are fired with the given timestamp
// in milliseconds.
func (c *Compositor) EndFrame(time uint32) {
	c.DrainReleases()
	c.SendFrameCallbacks(time)
}

// Close destroys every client and every remaining surface and executes
// any outstanding releases.
func (c *Compositor) Close() {
	for _, client := range c.Clients() {
		client.Close()
	}
	surfaces := c.Surfaces()
	for i := len(surfaces) - 1; i >= 0; i-- {
		surfaces[i].Destroy()
	}
	c.DrainReleases()

	if n := UninitializedSurfaces(); n > 0 {
		debug.Log.Warn("uninitialized surfaces left at shutdown", "count", n)
	}
}

// ClientID identifies a client within a Compositor.
type ClientID uint32

// Client is the compositor's record of a connected client. It owns the
// surfaces created for it and remembers the first protocol error it
// caused.
type Client struct {
	compositor *Compositor
	id         ClientID
	surfaces   []SurfaceID
	err        *ProtocolError
	closed     bool

	// Failed, if non-nil, is called the first time the client causes a
	// protocol error.
	Failed func(*ProtocolError)
}

func (client *Client) ID() ClientID {
	return client.id
}

// Surfaces returns the client's live surfaces in creation order.
func (client *Client) Surfaces() []*Surface {
	surfaces := make([]*Surface, 0, len(client.surfaces))
	for _, id := range client.surfaces {
		if s := client.compositor.Surface(id); s != nil {
			surfaces = append(surfaces, s)
		}
	}
	return surfaces
}

// Err returns the first protocol error that the client caused, or nil.
func (client *Client) Err() *ProtocolError {
	return client.err
}

// Fail records err as the client's protocol error. Only the first
// error is kept, and Failed is called only for it.
func (client *Client) Fail(err *ProtocolError) {
	if client.err != nil {
		return
	}
	client.err = err
	if client.Failed != nil {
		client.Failed(err)
	}
}

func (client *Client) removeSurface(id SurfaceID) {
	if i := slices.Index(client.surfaces, id); i >= 0 {
		client.surfaces = slices.Delete(client.surfaces, i, i+1)
	}
}

// Close destroys the client's surfaces, newest first, and unregisters
// the client.
func (client *Client) Close() {
	if client.closed {
		return
	}
	client.closed = true

	surfaces := client.Surfaces()
	for i := len(surfaces) - 1; i >= 0; i-- {
		surfaces[i].Destroy()
	}
	delete(client.compositor.clients, client.id)
}

// Package wl implements the server side of the core Wayland protocol
// on top of the compositor package.
//
// Each client connection has a goroutine that reads and decodes
// messages, but every request is executed by Server.Flush, so the
// compositor state is only ever touched by the goroutine that calls
// Flush.
package wl

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/internal/debug"
	"deedles.dev/wlcompositor/internal/ev"
	"deedles.dev/wlcompositor/internal/set"
	"deedles.dev/wlcompositor/wire"
)

// ServerListener is notified about clients connecting and
// disconnecting. Its methods are called from Flush.
type ServerListener interface {
	Client(c *Client)
	ClientRemove(c *Client)
}

type Server struct {
	Listener ServerListener

	done       chan struct{}
	close      sync.Once
	lis        *net.UnixListener
	compositor *compositor.Compositor
	clients    set.Set[*Client]
	queue      *ev.Queue
	globals    []global
	serial     uint32
}

// ListenAndServe opens a socket with wire.Listen and serves c on it.
func ListenAndServe(name string, c *compositor.Compositor) (*Server, error) {
	lis, err := wire.Listen(name)
	if err != nil {
		return nil, err
	}
	return NewServer(lis, c), nil
}

// NewServer starts accepting clients on lis. The server advertises the
// core globals: wl_compositor, wl_subcompositor, wl_shm and
// wp_viewporter.
func NewServer(lis *net.UnixListener, c *compositor.Compositor) *Server {
	server := Server{
		done:       make(chan struct{}),
		lis:        lis,
		compositor: c,
		clients:    set.New[*Client](),
		queue:      ev.NewQueue(),
	}
	server.globals = []global{
		{name: 1, iface: compositorInterface, version: compositorVersion, bind: bindCompositor},
		{name: 2, iface: subcompositorInterface, version: subcompositorVersion, bind: bindSubcompositor},
		{name: 3, iface: shmInterface, version: shmVersion, bind: bindShm},
		{name: 4, iface: viewporterInterface, version: viewporterVersion, bind: bindViewporter},
	}
	go server.listen()

	return &server
}

func (server *Server) listen() {
	for {
		c, err := server.lis.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			if !server.queue.Add(server.done, func() error { return fmt.Errorf("accept: %w", err) }) {
				return
			}
			continue
		}

		if !server.queue.Add(server.done, func() error { server.addClient(c); return nil }) {
			c.Close()
			return
		}
	}
}

func (server *Server) addClient(c *net.UnixConn) {
	client := newClient(server, wire.NewConn(c))
	server.clients.Add(client)
	debug.Log.Debug("client connected", "client", client)
	if server.Listener != nil {
		server.Listener.Client(client)
	}
}

func (server *Server) removeClient(client *Client) {
	if !server.clients.Has(client) {
		return
	}
	server.clients.Delete(client)
	debug.Log.Debug("client disconnected", "client", client)
	if server.Listener != nil {
		server.Listener.ClientRemove(client)
	}
}

// Addr returns the path of the socket that the server listens on.
func (server *Server) Addr() string {
	return server.lis.Addr().String()
}

// Compositor returns the compositor that the server serves.
func (server *Server) Compositor() *compositor.Compositor {
	return server.compositor
}

// Clients returns the currently connected clients.
func (server *Server) Clients() []*Client {
	return server.clients.Items()
}

func (server *Server) nextSerial() uint32 {
	server.serial++
	return server.serial
}

func (server *Server) global(name uint32) (global, bool) {
	for _, g := range server.globals {
		if g.name == name {
			return g, true
		}
	}
	return global{}, false
}

// Flush accepts new clients and then executes every request that has
// arrived from every client. It returns all errors encountered.
func (server *Server) Flush() error {
	errs := []error{server.queue.Flush()}
	for _, c := range server.Clients() {
		errs = append(errs, c.Flush())
	}
	return errors.Join(errs...)
}

// Close stops accepting clients and disconnects every client.
func (server *Server) Close() error {
	var err error
	server.close.Do(func() {
		close(server.done)
		err = server.lis.Close()
		for _, c := range server.Clients() {
			c.disconnect()
		}
		server.queue.Stop()
	})
	return err
}

type global struct {
	name    uint32
	iface   string
	version uint32
	bind    func(client *Client, id, version uint32)
}

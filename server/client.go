package wl

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/internal/debug"
	"deedles.dev/wlcompositor/internal/ev"
	"deedles.dev/wlcompositor/internal/objstore"
	"deedles.dev/wlcompositor/wire"
)

// serverIDStart is the first object ID that the server allocates.
// Lower IDs belong to the client.
const serverIDStart = 0xFF000000

type Client struct {
	server *Server
	done   chan struct{}
	close  sync.Once
	conn   *wire.Conn
	store  *objstore.Store
	queue  *ev.Queue
	core   *compositor.Client
}

func newClient(server *Server, conn *wire.Conn) *Client {
	client := Client{
		server: server,
		done:   make(chan struct{}),
		conn:   conn,
		store:  objstore.New(serverIDStart),
		queue:  ev.NewQueue(),
		core:   server.compositor.NewClient(),
	}

	display := Display{object: object{client: &client, id: 1, version: 1}}
	client.store.Add(&display)

	go client.listen()

	return &client
}

func (client *Client) listen() {
	for {
		msg, err := wire.ReadMessage(client.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				client.queue.Add(client.done, func() error { client.disconnect(); return nil })
				return
			}

			client.queue.Add(client.done, func() error {
				client.disconnect()
				return fmt.Errorf("%v: %w", client, err)
			})
			return
		}

		if !client.queue.Add(client.done, func() error { return client.dispatch(msg) }) {
			return
		}
	}
}

func (client *Client) dispatch(msg *wire.MessageBuffer) error {
	if client.closed() {
		return nil
	}

	obj := client.store.Get(msg.Sender())
	if obj == nil {
		client.raise(1, &compositor.ProtocolError{
			Interface: "wl_display",
			Code:      compositor.DisplayErrorInvalidObject,
			Message:   wire.UnknownObjectError{ID: msg.Sender()}.Error(),
		})
		return nil
	}

	err := obj.Dispatch(msg)
	if debug.Enabled() {
		debug.Printf("%v", msg.Debug(obj))
	}
	if err == nil {
		err = msg.Err()
	}
	if err == nil {
		return nil
	}

	var perr *compositor.ProtocolError
	if errors.As(err, &perr) {
		client.raise(errorObject(msg.Sender(), perr), perr)
		return nil
	}

	var uop wire.UnknownOpError
	if errors.As(err, &uop) {
		client.raise(msg.Sender(), &compositor.ProtocolError{
			Interface: "wl_display",
			Code:      compositor.DisplayErrorInvalidMethod,
			Message:   uop.Error(),
		})
		return nil
	}

	client.raise(1, &compositor.ProtocolError{
		Interface: "wl_display",
		Code:      compositor.DisplayErrorInvalidMethod,
		Message:   fmt.Sprintf("malformed %v request: %v", obj, err),
	})
	return nil
}

// errorObject returns the ID of the object that perr should be posted
// against. Display errors name the display, except for invalid_method,
// which names the object whose request was invalid.
func errorObject(sender uint32, perr *compositor.ProtocolError) uint32 {
	if (perr.Interface == "wl_display") && (perr.Code != compositor.DisplayErrorInvalidMethod) {
		return 1
	}
	return sender
}

// raise records perr against the client's core record and then posts
// it on the object with the given ID.
func (client *Client) raise(id uint32, perr *compositor.ProtocolError) {
	client.core.Fail(perr)
	client.PostError(id, perr.Code, perr.Message)
}

// Core returns the compositor's record of the client.
func (client *Client) Core() *compositor.Client {
	return client.core
}

func (client *Client) Add(obj wire.Object) {
	client.store.Add(obj)
}

func (client *Client) Get(id uint32) wire.Object {
	return client.store.Get(id)
}

// Delete removes an object. Client-allocated IDs are confirmed with
// wl_display.delete_id so that the client can reuse them.
func (client *Client) Delete(id uint32) {
	client.store.Delete(id)
	if (id < serverIDStart) && !client.closed() {
		client.Display().deleteID(id)
	}
}

// addNew adds an object created by a request with a new_id argument.
func (client *Client) addNew(obj wire.Object) error {
	if err := client.checkNewID(obj.ID()); err != nil {
		return err
	}
	client.Add(obj)
	return nil
}

// checkNewID returns an error if id can not be used for a new
// client-allocated object.
func (client *Client) checkNewID(id uint32) error {
	if (id == 0) || (id >= serverIDStart) || (client.Get(id) != nil) {
		return &compositor.ProtocolError{
			Interface: "wl_display",
			Code:      compositor.DisplayErrorInvalidObject,
			Message:   fmt.Sprintf("invalid new object ID %v", id),
		}
	}
	return nil
}

// Send writes an event to the client.
func (client *Client) Send(msg *wire.MessageBuilder) {
	if client.closed() {
		return
	}

	if debug.Enabled() {
		debug.Printf(" -> %v", msg)
	}
	if err := msg.Build(client.conn); err != nil {
		debug.Log.Warn("send event", "client", client, "event", msg, "err", err)
		client.disconnect()
	}
}

func (client *Client) Display() *Display {
	return client.Get(1).(*Display)
}

// PostError sends a fatal protocol error about the object with the
// given ID and disconnects the client.
func (client *Client) PostError(id, code uint32, message string) {
	if client.closed() {
		return
	}

	debug.Log.Warn("protocol error", "client", client, "object", id, "code", code, "message", message)
	client.Display().postError(id, code, message)
	client.disconnect()
}

func (client *Client) closed() bool {
	select {
	case <-client.done:
		return true
	default:
		return false
	}
}

// disconnect closes the connection and destroys everything the client
// created. It must only be called from Flush.
func (client *Client) disconnect() {
	client.close.Do(func() {
		close(client.done)
		client.conn.Close()
		client.store.Clear()
		client.core.Close()
		client.queue.Stop()
		client.server.removeClient(client)
	})
}

// Flush executes every request that has been received since the last
// time the queue was flushed. It returns all errors encountered.
func (client *Client) Flush() error {
	return client.queue.Flush()
}

func (client *Client) String() string {
	return fmt.Sprintf("client#%v", client.core.ID())
}

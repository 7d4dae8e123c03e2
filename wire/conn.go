package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"deedles.dev/wlcompositor/internal/set"
	"golang.org/x/sys/unix"
)

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/var/run/user/%v", os.Getuid())
}

// NewSocketPath attempts to generate a valid path for opening a new
// socket to listen on.
func NewSocketPath() (string, error) {
	dir := xdgRuntimeDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	names := make(set.Set[int], len(entries))
	for _, ent := range entries {
		after, ok := strings.CutPrefix(ent.Name(), "wayland-")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(after, 10, 0)
		if err != nil {
			continue
		}
		names.Add(int(n))
	}

	var num int
	for names.Has(num) {
		num++
	}

	return filepath.Join(dir, fmt.Sprintf("wayland-%v", num)), nil
}

// Listen opens a Unix domain socket for clients to connect to. An
// empty name picks the first free wayland-N socket in the runtime
// directory, and a relative name is resolved against that directory.
// The socket file is removed when the listener is closed.
func Listen(name string) (*net.UnixListener, error) {
	path := name
	switch {
	case name == "":
		p, err := NewSocketPath()
		if err != nil {
			return nil, fmt.Errorf("find socket path: %w", err)
		}
		path = p
	case !filepath.IsAbs(name):
		path = filepath.Join(xdgRuntimeDir(), name)
	}

	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", path, err)
	}
	lis.SetUnlinkOnClose(true)
	return lis, nil
}

// Conn represents a low-level Wayland connection. File descriptors
// that arrive on the connection are queued in the order they were
// received and handed out to messages as they ask for them.
type Conn struct {
	conn *net.UnixConn
	oob  []byte

	m   sync.Mutex
	fds []int
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		conn: c,
		oob:  make([]byte, unix.CmsgSpace(maxFDs*4)),
	}
}

// Close closes the underlying connection and any received file
// descriptors that were never claimed.
func (c *Conn) Close() error {
	c.m.Lock()
	errs := make([]error, 0, len(c.fds)+1)
	for _, fd := range c.fds {
		errs = append(errs, unix.Close(fd))
	}
	c.fds = nil
	c.m.Unlock()

	errs = append(errs, c.conn.Close())
	return errors.Join(errs...)
}

// Read reads data from the connection, queuing any file descriptors
// that come with it.
func (c *Conn) Read(buf []byte) (int, error) {
	n, oobn, _, _, err := c.conn.ReadMsgUnix(buf, c.oob)
	if oobn > 0 {
		if fderr := c.readFDs(c.oob[:oobn]); fderr != nil {
			return n, errors.Join(err, fderr)
		}
	}
	return n, err
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.m.Lock()
		c.fds = append(c.fds, fds...)
		c.m.Unlock()
	}
	return nil
}

func (c *Conn) popFD() (fd int, ok bool) {
	c.m.Lock()
	defer c.m.Unlock()

	if len(c.fds) == 0 {
		return -1, false
	}

	fd = c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

// WriteMessage writes a complete message, passing fds along with it.
// A message is always written by a single call so that the file
// descriptors arrive with the message's first byte.
func (c *Conn) WriteMessage(data []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}

	n, _, err := c.conn.WriteMsgUnix(data, oob, nil)
	if err != nil {
		return err
	}
	if n < len(data) {
		return io.ErrShortWrite
	}
	return nil
}

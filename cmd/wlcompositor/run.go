package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"time"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/internal/config"
	"deedles.dev/wlcompositor/internal/debug"
	"deedles.dev/wlcompositor/internal/softtex"
	wl "deedles.dev/wlcompositor/server"
)

type state struct {
	cfg      *config.Config
	start    time.Time
	comp     *compositor.Compositor
	renderer *softtex.Renderer
	output   *softtex.Output
	server   *wl.Server
}

func run(ctx context.Context, cfg *config.Config) error {
	var s state
	if err := s.init(cfg); err != nil {
		return err
	}
	defer s.stop()

	debug.Log.Info("listening", "socket", s.server.Addr())
	s.run(ctx)
	return nil
}

func (s *state) init(cfg *config.Config) error {
	size, err := cfg.OutputSize()
	if err != nil {
		return err
	}
	if (cfg.LogLevel != "") && !debug.SetLevel(cfg.LogLevel) {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	compositor.EnableLifecycleTracking(cfg.TrackSurfaces)

	s.cfg = cfg
	s.start = time.Now()
	s.renderer = softtex.New()
	s.output = softtex.NewOutput(s.renderer, size)
	s.output.Upload = cfg.TextureUpload

	s.comp = compositor.New(
		compositor.WithGraphicsIntegration(s.renderer),
		compositor.WithRequireRole(cfg.RequireRole),
	)
	s.comp.SurfaceCreated = func(surface *compositor.Surface) {
		debug.Log.Debug("surface created", "surface", surface, "client", surface.Client().ID())
	}

	server, err := wl.ListenAndServe(cfg.Socket, s.comp)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	s.server = server
	s.server.Listener = (*serverListener)(s)

	return nil
}

func (s *state) stop() {
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}

	s.output.Close()
	s.comp.Close()
	if s.cfg.TrackSurfaces {
		compositor.EnableLifecycleTracking(false)
	}

	if s.cfg.Snapshot != "" {
		if err := s.snapshot(s.cfg.Snapshot); err != nil {
			debug.Log.Error("write snapshot", "err", err)
		}
	}
}

func (s *state) run(ctx context.Context) {
	tick := time.NewTicker(time.Second / time.Duration(s.cfg.FrameRate))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.frame()
		}
	}
}

// frame handles everything that clients have sent, composites the
// result and tells the clients that the frame is done.
func (s *state) frame() {
	if err := s.server.Flush(); err != nil {
		debug.Log.Error("flush", "err", err)
	}

	s.output.Render(s.comp)
	s.comp.EndFrame(uint32(time.Since(s.start).Milliseconds()))
}

// snapshot writes the most recently rendered frame to path as a PNG.
func (s *state) snapshot(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, s.output.Image()); err != nil {
		return fmt.Errorf("encode %v: %w", path, err)
	}
	return file.Close()
}

type serverListener state

func (s *serverListener) Client(c *wl.Client) {
	debug.Log.Info("client connected", "client", c)
	c.Core().Failed = func(err *compositor.ProtocolError) {
		debug.Log.Warn("client failed", "client", c, "err", err)
	}
}

func (s *serverListener) ClientRemove(c *wl.Client) {
	debug.Log.Info("client disconnected", "client", c, "surfaces", len(s.comp.Surfaces()))
}

package main

import (
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"deedles.dev/wlcompositor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig
	cfg.Socket = filepath.Join(dir, "wayland-test")
	cfg.FrameSize = "32x16"
	cfg.Snapshot = filepath.Join(dir, "frame.png")

	var s state
	require.NoError(t, s.init(&cfg))
	s.frame()
	s.stop()

	file, err := os.Open(cfg.Snapshot)
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())

	_, err = os.Stat(cfg.Socket)
	assert.True(t, os.IsNotExist(err), "socket should be removed on shutdown")
}

func TestStateInvalidLogLevel(t *testing.T) {
	cfg := config.DefaultConfig
	cfg.Socket = filepath.Join(t.TempDir(), "wayland-test")
	cfg.LogLevel = "loud"

	var s state
	assert.Error(t, s.init(&cfg))
}

func TestRootCmdInvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "FrameRate", args: []string{"--frame-rate", "0"}},
		{name: "FrameSize", args: []string{"--frame-size", "big"}},
		{name: "MissingConfig", args: []string{"--config", "/nonexistent/config.yaml"}},
		{name: "ExtraArgs", args: []string{"extra"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(test.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			assert.Error(t, cmd.Execute())
		})
	}
}

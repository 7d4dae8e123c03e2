// Package debug holds the logger shared by the rest of the module.
package debug

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Log is the module-wide logger. Protocol traces are written at debug
// level and are only visible when $WAYLAND_DEBUG is set to a positive
// number or the level is lowered with SetLevel.
var Log = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "wlcompositor",
	Level:  log.InfoLevel,
})

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	if debugLevel > 0 {
		Log.SetLevel(log.DebugLevel)
	}
}

// SetLevel sets the level of Log by name. Unknown names leave the
// level unchanged and return false.
func SetLevel(name string) bool {
	if name == "" {
		return false
	}

	level, err := log.ParseLevel(strings.ToLower(name))
	if err != nil {
		return false
	}
	Log.SetLevel(level)
	return true
}

// Enabled reports whether debug output is currently being written.
func Enabled() bool {
	return Log.GetLevel() <= log.DebugLevel
}

func Printf(str string, args ...any) {
	Log.Debugf(str, args...)
}

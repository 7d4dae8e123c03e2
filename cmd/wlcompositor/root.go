package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"deedles.dev/wlcompositor/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is set during build.
var Version = "0.1.0-dev"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "wlcompositor",
		Short: "Headless Wayland compositor",
		Long: `wlcompositor serves wl_compositor, wl_subcompositor, wl_shm and
wp_viewporter to Wayland clients and composites their surfaces into an
in-memory frame, optionally writing the last frame to a PNG file on
exit.`,
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.New(configPath)
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default searches the user and system config directories)")
	flags.StringP("socket", "s", "", "Socket name or path (default first free wayland-N)")
	flags.Int("frame-rate", config.DefaultConfig.FrameRate, "Frames per second")
	flags.String("frame-size", config.DefaultConfig.FrameSize, "Size of the composited frame")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("require-role", false, "Reject content committed to surfaces without a role")
	flags.Bool("track-surfaces", false, "Warn about surfaces that are never initialized")
	flags.Bool("texture-upload", config.DefaultConfig.TextureUpload, "Copy buffer damage into textures every frame")
	flags.String("snapshot", "", "Write the last frame to this PNG file on exit")

	return cmd
}

// bindFlags makes every flag except --config override the config key
// of the same name, with dashes replaced by underscores.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) (err error) {
	flags.VisitAll(func(f *pflag.Flag) {
		if (err != nil) || (f.Name == "config") || (f.Name == "help") || (f.Name == "version") {
			return
		}
		if berr := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); berr != nil {
			err = fmt.Errorf("bind flag %v: %w", f.Name, berr)
		}
	})
	return err
}

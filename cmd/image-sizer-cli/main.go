package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"image-sizer-go/internal/bootstrap"
	perrors "image-sizer-go/internal/platform/errors"
)

const version = "1.0.0"

type cli struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "image-sizer-cli",
		Short:         "Render one image into favicon, app icon and social sizes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to config.yaml (defaults to $IMAGE_SIZER_CONFIG or ./config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		c.resizeCmd(),
		c.presetsCmd(),
		c.watchCmd(),
		inspectCmd(),
	)
	return root
}

// build assembles the application with logs going to stderr, leaving stdout for results.
func (c *cli) build(cmd *cobra.Command) (*bootstrap.App, error) {
	return bootstrap.Build(cmd.Context(), bootstrap.Options{
		ConfigPath: c.configPath,
		Console:    cmd.ErrOrStderr(),
		LogLevel:   c.logLevel,
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration problems and 1 for everything else.
func exitCode(err error) int {
	if perrors.KindOf(err) == perrors.KindConfig {
		return 2
	}
	return 1
}

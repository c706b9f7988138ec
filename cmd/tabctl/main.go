package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/bootstrap"
	"github.com/roomtab/backend/internal/infrastructure/config"
	"github.com/roomtab/backend/internal/infrastructure/logger"
)

var Version = "dev"

func main() {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:           "tabctl",
		Short:         "Administer room tab sessions",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	open := func(ctx context.Context) (*bootstrap.Container, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
		if err != nil {
			return nil, err
		}
		return bootstrap.New(ctx, cfg, log.With(zap.String("component", "tabctl")))
	}

	rootCmd.AddCommand(closeCmd(open))
	rootCmd.AddCommand(showCmd(open))
	rootCmd.AddCommand(listCmd(open))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// opener builds the service container for one command run
type opener func(ctx context.Context) (*bootstrap.Container, error)

// withContainer runs fn with a container that is closed afterwards, so
// notifications fired by fn are delivered before the process exits.
func withContainer(ctx context.Context, open opener, fn func(c *bootstrap.Container) error) error {
	c, err := open(ctx)
	if err != nil {
		return err
	}
	runErr := fn(c)
	if err := c.Close(ctx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

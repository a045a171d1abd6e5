package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jakobjanot/pg-rrule/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := Logger()
		loc, err := location()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine := newEngine()
		defer engine.Close()
		store, err := openStore(ctx, engine)
		if err != nil {
			return err
		}
		defer store.Close()

		if seed, _ := cmd.Flags().GetString("seed"); seed != "" {
			events, err := readEventFile(seed, loc)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			if err := importEvents(ctx, cmd.OutOrStdout(), store, events); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}

		srv, err := server.New(engine, store,
			server.WithLogger(log),
			server.WithLocation(loc),
			server.WithBasicAuth(viper.GetString(KeyAuthUser), viper.GetString(KeyAuthPassword)),
		)
		if err != nil {
			return err
		}

		watchConfig()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(viper.GetString(KeyListen))
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	ServeCmd.Flags().String("listen", "", "listen address (default :8080)")
	ServeCmd.Flags().String("seed", "", "import events from this file before serving")
	viper.BindPFlag(KeyListen, ServeCmd.Flags().Lookup("listen"))
}

// watchConfig reloads log.level whenever the config file changes
func watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(onConfigChange)
	viper.WatchConfig()
}

func onConfigChange(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	if err := ApplyLogLevel(); err != nil {
		Logger().Warn("config reload failed", "file", e.Name, "error", err)
		return
	}
	Logger().Info("config reloaded", "file", e.Name, "log_level", logLevel.Level())
}

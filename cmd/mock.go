package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/redsail/redsail/internal/env"
	"github.com/redsail/redsail/storage"
	"github.com/redsail/redsail/transport"
)

var (
	// The host the mock server listens on
	mockHost string

	// The port the mock server listens on
	mockPort int
)

func init() {
	flags := MockCmd.PersistentFlags()

	flags.IntVar(&mockPort, "port", 6379, "The port to listen for client connections on")
	flags.StringVar(&mockHost, "host", "0.0.0.0", "The host to listen on")
}

var MockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a stub RESP server for local testing",
	Long: `Run a stub RESP server for local testing

The stub answers PING, ECHO, SET, GET, DEL and SUBSCRIBE, pushing key
changes to subscribers, which is enough surface to exercise the client
without a real server.

Usage
	redsail mock

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
		defer signalStop()

		log, err := env.MakeLogger(debug)
		if err != nil {
			return err
		}

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		tcp := transport.NewTCP(transport.Options{
			Host:      mockHost,
			Port:      mockPort,
			Reuseport: true,
			Store:     storage.NewInmemoryStore(),
			Log:       log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening",
			zap.String("host", mockHost),
			zap.Int("port", mockPort))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		if err := tcp.Close(); err != nil {
			log.Error("TCP server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}

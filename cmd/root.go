package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/redsail/redsail/client"
	"github.com/redsail/redsail/cmd/gen"
	"github.com/redsail/redsail/internal/env"
	"github.com/redsail/redsail/protocol"
	"github.com/redsail/redsail/repl"
)

var (
	// The host to connect to
	hostname string

	// The port to connect to
	port int

	// Render replies as JSON instead of the human readable form
	jsonOut bool

	// Verbose protocol logging
	debug bool
)

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&hostname, "hostname", "H", "127.0.0.1", "The server host to connect to")
	flags.IntVarP(&port, "port", "p", 6379, "The server port to connect to")
	flags.BoolVar(&jsonOut, "json", false, "Render replies as JSON")
	flags.BoolVarP(&debug, "debug", "d", false, "Enable verbose protocol logging")

	RootCmd.AddCommand(MockCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

var RootCmd = &cobra.Command{
	Use:   "redsail [flags] [COMMAND [ARG...]]",
	Short: "An interactive command line client for RESP servers",
	Long: `An interactive command line client for RESP servers

With a COMMAND, redsail sends it, prints the reply and exits. Without
one it drops into an interactive prompt with line editing and history.
Subscription commands stream pushed values until interrupted.

Usage
	redsail PING
	redsail SET greeting hello
	redsail SUBSCRIBE news
	redsail

`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		log, err := env.MakeLogger(debug || conf.Debug)
		if err != nil {
			return err
		}

		host := conf.Hostname
		if cmd.Flags().Changed("hostname") {
			host = hostname
		}

		p := conf.Port
		if cmd.Flags().Changed("port") {
			p = port
		}

		addr := net.JoinHostPort(host, strconv.Itoa(p))

		conn, err := client.Dial(ctx, addr, log)
		if err != nil {
			return fmt.Errorf("could not connect to %s: %w", addr, err)
		}
		defer conn.Close()

		if len(args) == 0 {
			session := repl.New(repl.Options{
				Conn:        conn,
				Addr:        addr,
				JSON:        jsonOut,
				HistoryFile: conf.HistoryFile,
				Log:         log,
			})

			return session.Run(ctx)
		}

		v, err := conn.Do(ctx, args...)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		}

		printValue(v)

		if client.IsPushCommand(args[0]) {
			return streamValues(ctx, conn)
		}

		return nil
	},
}

// streamValues displays pushed frames until interrupt or transport
// close, the push mode loop for one-shot invocations.
func streamValues(ctx context.Context, conn *client.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case v, ok := <-conn.Values():
			if !ok {
				err := conn.Err()
				if errors.Is(err, client.ErrClosed) || errors.Is(err, io.EOF) {
					return nil
				}

				return err
			}

			printValue(v)
		}
	}
}

func printValue(v protocol.Value) {
	if jsonOut {
		out, err := protocol.JSON(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			return
		}

		fmt.Println(out)
		return
	}

	fmt.Println(v)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

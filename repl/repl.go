package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/redsail/redsail/client"
	"github.com/redsail/redsail/protocol"
)

type Options struct {
	// Conn is the established server connection the session talks over
	Conn *client.Conn

	// Addr is shown in the prompt
	Addr string

	// JSON switches rendering from the human readable form to JSON
	JSON bool

	// HistoryFile is where the input history is persisted between runs
	HistoryFile string

	// Fs defaults to the real filesystem, tests swap in a memory one
	Fs afero.Fs

	// Out defaults to stdout
	Out io.Writer

	Log *zap.Logger
}

// REPL is the interactive session, a line-edited prompt loop that sends
// each entered command and renders its reply. A push command switches
// the session into streaming display until interrupt or transport
// close. Ctrl-C and Ctrl-D end the session cleanly, the terminal is
// always restored.
type REPL struct {
	conn        *client.Conn
	addr        string
	json        bool
	historyFile string
	fs          afero.Fs
	out         io.Writer
	log         *zap.Logger

	line      *liner.State
	closeLine sync.Once
}

func New(options Options) *REPL {
	if options.Fs == nil {
		options.Fs = afero.NewOsFs()
	}

	if options.Out == nil {
		options.Out = os.Stdout
	}

	return &REPL{
		conn:        options.Conn,
		addr:        options.Addr,
		json:        options.JSON,
		historyFile: options.HistoryFile,
		fs:          options.Fs,
		out:         options.Out,
		log:         options.Log.Named("repl"),
	}
}

// Run blocks until the session ends. A nil return covers every clean
// exit path, Ctrl-C, Ctrl-D, QUIT and interrupt during streaming.
func (r *REPL) Run(ctx context.Context) error {
	r.line = liner.NewLiner()
	r.line.SetCtrlCAborts(true)

	defer r.restoreTerminal()

	r.loadHistory()
	defer r.saveHistory()

	prompt := r.addr + "> "

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := r.line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}

		if err != nil {
			return err
		}

		args, err := SplitArgs(input)
		if err != nil {
			fmt.Fprintf(r.out, "(error) %s\n", err)
			continue
		}

		if len(args) == 0 {
			continue
		}

		r.line.AppendHistory(input)

		if isExit(args[0]) {
			return nil
		}

		v, err := r.conn.Do(ctx, args...)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		}

		r.print(v)

		if client.IsPushCommand(args[0]) {
			// Streaming takes over the terminal, give the line editor
			// back before an unbounded feed starts printing.
			r.restoreTerminal()
			return r.stream(ctx)
		}
	}
}

// stream displays pushed values until the context is cancelled or the
// transport closes. There is no in-band way out, this is push mode.
func (r *REPL) stream(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case v, ok := <-r.conn.Values():
			if !ok {
				err := r.conn.Err()
				if errors.Is(err, client.ErrClosed) || errors.Is(err, io.EOF) {
					return nil
				}

				return err
			}

			r.print(v)
		}
	}
}

func (r *REPL) print(v protocol.Value) {
	if r.json {
		out, err := protocol.JSON(v)
		if err != nil {
			fmt.Fprintf(r.out, "(error) %s\n", err)
			return
		}

		fmt.Fprintln(r.out, out)
		return
	}

	fmt.Fprintln(r.out, v)
}

func (r *REPL) restoreTerminal() {
	r.closeLine.Do(func() {
		if err := r.line.Close(); err != nil {
			r.log.Warn("Failed to restore the terminal", zap.Error(err))
		}
	})
}

func (r *REPL) loadHistory() {
	f, err := r.fs.Open(r.historyFile)
	if err != nil {
		// A missing history file is normal on first run
		return
	}

	defer f.Close()

	if _, err := r.line.ReadHistory(f); err != nil {
		r.log.Warn("Failed to read history", zap.String("path", r.historyFile), zap.Error(err))
	}
}

func (r *REPL) saveHistory() {
	f, err := r.fs.Create(r.historyFile)
	if err != nil {
		r.log.Warn("Failed to create history file", zap.String("path", r.historyFile), zap.Error(err))
		return
	}

	_, werr := r.line.WriteHistory(f)
	if err := multierr.Append(werr, f.Close()); err != nil {
		r.log.Warn("Failed to save history", zap.String("path", r.historyFile), zap.Error(err))
	}
}

func isExit(name string) bool {
	return strings.EqualFold(name, "quit") || strings.EqualFold(name, "exit")
}

package repl_test

import (
	"context"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/redsail/redsail/repl"
)

var _ = Describe("REPL", func() {
	// With no terminal attached the prompt sees EOF immediately, the
	// session opens, loads its history and shuts down cleanly. That is
	// enough to exercise the history persistence path.
	Describe("history persistence", func() {
		It("keeps the persisted history across a session", func() {
			fs := afero.NewMemMapFs()
			Expect(afero.WriteFile(fs, ".history",
				[]byte("PING\nGET foo\n"), 0600)).To(Succeed())

			session := repl.New(repl.Options{
				Addr:        "127.0.0.1:6379",
				HistoryFile: ".history",
				Fs:          fs,
				Out:         io.Discard,
				Log:         zap.NewNop(),
			})

			Expect(session.Run(context.Background())).To(Succeed())

			data, err := afero.ReadFile(fs, ".history")
			Expect(err).To(Succeed())
			Expect(string(data)).To(ContainSubstring("PING"))
			Expect(string(data)).To(ContainSubstring("GET foo"))
		})

		It("starts without a history file", func() {
			session := repl.New(repl.Options{
				Addr:        "127.0.0.1:6379",
				HistoryFile: ".history",
				Fs:          afero.NewMemMapFs(),
				Out:         io.Discard,
				Log:         zap.NewNop(),
			})

			Expect(session.Run(context.Background())).To(Succeed())
		})
	})
})

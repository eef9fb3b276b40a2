// Package logging builds per-subsystem structured loggers on top of
// log/slog, the same backend the corpus's own modern logging package
// (ethereum-go-ethereum/log) wraps. Loggers are constructed explicitly and
// threaded into collaborators — no package-level ambient logger — per
// spec.md §9's "no ambient singletons" design note.
package logging

import (
	"log/slog"
	"os"
)

// New builds the root handler for the process: text output to stderr at the
// given level, timestamps included.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// Subsystem returns a child logger tagged with the given subsystem name,
// mirroring the corpus's per-subsystem logger convention (mempool, miner,
// store, cache, httpapi) without a shared global registry.
func Subsystem(root *slog.Logger, name string) *slog.Logger {
	return root.With("subsystem", name)
}

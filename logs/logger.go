// Package logs builds the structured logger of the csvm command.
package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

var level = new(slog.LevelVar)

// SetLevel sets the level of every logger from New: debug, info, warn or
// error.
func SetLevel(name string) (err error) {
	var l slog.Level
	err = l.UnmarshalText([]byte(name))
	if err != nil {
		return
	}
	level.Set(l)
	return
}

// Level returns the current level.
func Level() slog.Level {
	return level.Level()
}

// Options configures New.
type Options struct {
	Writer  io.Writer // Terminal output; os.Stderr if nil.
	Journal bool      // Also log to the systemd journal, when available.
}

// New returns a logger writing text to the terminal, and to the systemd
// journal when asked or when running as a systemd service. A service logs
// only to the journal.
func New(opts Options) *slog.Logger {
	var handlers []slog.Handler

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	service := underSystemd()

	var terminalHandler slog.Handler
	if !service {
		terminalHandler = slog.NewTextHandler(
			writer,
			&slog.HandlerOptions{
				Level: level,
			},
		)
		handlers = append(handlers, terminalHandler)
	}

	if opts.Journal || service {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminalHandler != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "logs: systemd journal unavailable", 0)
				record.Add("error", err)
				_ = terminalHandler.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// toJournalKey maps an attribute key to a journal field name.
func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	str = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return '_'
	}, str)
	return strings.TrimLeft(str, "_")
}

var underSystemd = isSystemdService

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}

// Package cli implements the diary command-line client: one command per
// invocation, results printed as indented JSON.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/diarykeeper/internal/client/api"
	"github.com/dmitrijs2005/diarykeeper/internal/client/config"
)

var ErrUsage = errors.New("usage error")

// DiaryAPI is the subset of api.Client the commands need.
type DiaryAPI interface {
	Publish(ctx context.Context, date, text string, files []api.Attachment, limit int) (*api.Entry, error)
	ListEntries(ctx context.Context, o api.ListOptions) (*api.Page, error)
	GetEntry(ctx context.Context, id string) (*api.Entry, error)
	EntriesByDate(ctx context.Context, date string) ([]api.Entry, error)
	DeleteEntry(ctx context.Context, id string) (*api.DeleteResult, error)
	AccessURL(ctx context.Context, key string) (*api.PresignedURL, error)
}

type App struct {
	config   *config.Config
	api      DiaryAPI
	out      io.Writer
	readFile func(string) ([]byte, error)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("%w: no token configured (use -k or DIARY_TOKEN)", ErrUsage)
	}
	return &App{
		config:   c,
		api:      api.New(ctx, c.ServerURL, c.Token, c.RequestTimeout),
		out:      os.Stdout,
		readFile: os.ReadFile,
	}, nil
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s", ErrUsage, usage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "publish":
		return a.publish(ctx, rest)
	case "list":
		return a.list(ctx, rest)
	case "get":
		return a.get(ctx, rest)
	case "day":
		return a.day(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "url":
		return a.url(ctx, rest)
	case "help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

const usage = `commands:
  publish -date YYYY-MM-DD [-text TEXT] [FILE...]
  list [-page N] [-size N] [-after YYYY-MM-DD] [-before YYYY-MM-DD]
  get ENTRY_ID
  day YYYY-MM-DD
  delete ENTRY_ID
  url KEY`

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/diarykeeper/internal/client/api"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%w: %s takes exactly one argument", ErrUsage, cmd)
	}
	return args[0], nil
}

// Media types the host's mime tables often lack.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".heic": "image/heic",
}

// contentType guesses a MIME type from the file extension.
func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (a *App) publish(ctx context.Context, args []string) error {
	fs := newFlagSet("publish")
	date := fs.String("date", "", "entry date (YYYY-MM-DD)")
	text := fs.String("text", "", "entry text")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *date == "" {
		return fmt.Errorf("%w: publish requires -date", ErrUsage)
	}

	files := make([]api.Attachment, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := a.readFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, api.Attachment{
			Name:        filepath.Base(path),
			ContentType: contentType(path),
			Data:        data,
		})
	}

	e, err := a.api.Publish(ctx, *date, *text, files, a.config.UploadConcurrency)
	if err != nil {
		return err
	}
	return a.print(e)
}

func (a *App) list(ctx context.Context, args []string) error {
	var o api.ListOptions
	fs := newFlagSet("list")
	fs.IntVar(&o.Page, "page", 0, "page number")
	fs.IntVar(&o.Size, "size", 0, "page size")
	fs.StringVar(&o.After, "after", "", "earliest date")
	fs.StringVar(&o.Before, "before", "", "latest date")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	p, err := a.api.ListEntries(ctx, o)
	if err != nil {
		return err
	}
	return a.print(p)
}

func (a *App) get(ctx context.Context, args []string) error {
	id, err := oneArg("get", args)
	if err != nil {
		return err
	}
	e, err := a.api.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	return a.print(e)
}

func (a *App) day(ctx context.Context, args []string) error {
	date, err := oneArg("day", args)
	if err != nil {
		return err
	}
	list, err := a.api.EntriesByDate(ctx, date)
	if err != nil {
		return err
	}
	return a.print(list)
}

func (a *App) delete(ctx context.Context, args []string) error {
	id, err := oneArg("delete", args)
	if err != nil {
		return err
	}
	res, err := a.api.DeleteEntry(ctx, id)
	if err != nil {
		return err
	}
	return a.print(res)
}

func (a *App) url(ctx context.Context, args []string) error {
	key, err := oneArg("url", args)
	if err != nil {
		return err
	}
	u, err := a.api.AccessURL(ctx, key)
	if err != nil {
		return err
	}
	return a.print(u)
}

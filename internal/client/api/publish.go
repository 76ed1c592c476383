package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/diarykeeper/internal/netx"
	"golang.org/x/sync/errgroup"
)

// Attachment is a file to be uploaded alongside a new entry.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

func (a Attachment) isVideo() bool {
	return strings.HasPrefix(a.ContentType, "video/")
}

// UploadAll requests an upload URL for every file and PUTs them concurrently,
// at most limit at a time (no limit when limit <= 0). It waits for every
// upload to finish. On success the keys are returned in input order; on
// failure the first error is returned and objects already stored stay orphaned.
func (c *Client) UploadAll(ctx context.Context, files []Attachment, limit int) ([]string, error) {
	keys := make([]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, f := range files {
		g.Go(func() error {
			target, err := c.UploadURL(ctx, f.Name, f.ContentType)
			if err != nil {
				return fmt.Errorf("upload url for %s: %w", f.Name, err)
			}
			if err := netx.UploadToPresignedURL(ctx, c.upload, target.URL, target.Headers, f.Data); err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			keys[i] = target.Key
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Publish uploads the attachments and then creates the entry referencing
// them. The entry is not created if any upload fails.
func (c *Client) Publish(ctx context.Context, date, text string, files []Attachment, limit int) (*Entry, error) {
	keys, err := c.UploadAll(ctx, files, limit)
	if err != nil {
		return nil, err
	}

	in := NewEntry{Date: date, Text: text, Images: []string{}, Videos: []string{}}
	for i, f := range files {
		if f.isVideo() {
			in.Videos = append(in.Videos, keys[i])
		} else {
			in.Images = append(in.Images, keys[i])
		}
	}

	return c.CreateEntry(ctx, in)
}

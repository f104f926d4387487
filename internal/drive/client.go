package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	// ExportMimeText is the format Google Docs are exported to.
	ExportMimeText = "text/plain"

	// DefaultMaxDownload caps a single download at 50MB.
	DefaultMaxDownload = 50 * 1024 * 1024

	listFields = "nextPageToken, files(id,name,mimeType,size,createdTime,modifiedTime,parents,webViewLink)"
	pageSize   = 1000
	maxRetries = 3
)

// Client talks to the Drive v3 API with read-only scope.
type Client struct {
	svc         *drive.Service
	limiter     *RateLimiter
	maxDownload int64
}

type ClientOption func(*Client)

func WithRateLimiter(l *RateLimiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

func WithMaxDownload(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxDownload = n
		}
	}
}

// NewClient authenticates with a service account credentials file.
func NewClient(ctx context.Context, credentialsPath string, opts ...ClientOption) (*Client, error) {
	data, err := os.ReadFile(credentialsPath) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	slog.DebugContext(ctx, "authenticating to drive", "service_account", jwt.Email)

	svc, err := drive.NewService(ctx, option.WithTokenSource(jwt.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewClientWithService(svc, opts...), nil
}

func NewClientWithService(svc *drive.Service, opts ...ClientOption) *Client {
	c := &Client{
		svc:         svc,
		limiter:     NewRateLimiter(DefaultRequestsPerSecond, DefaultBurst),
		maxDownload: DefaultMaxDownload,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListChildren returns the non-trashed files and folders directly inside folderID.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]Item, []Folder, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", strings.ReplaceAll(folderID, "'", `\'`))

	var items []Item
	var folders []Folder
	pageToken := ""
	for {
		var list *drive.FileList
		err := c.do(ctx, func() error {
			call := c.svc.Files.List().
				Q(q).
				Fields(listFields).
				PageSize(pageSize).
				SupportsAllDrives(true).
				IncludeItemsFromAllDrives(true).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			list, err = call.Do()
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}

		for _, f := range list.Files {
			if f.MimeType == MimeTypeFolder {
				folders = append(folders, Folder{ID: f.Id, Name: f.Name})
				continue
			}
			items = append(items, fromFile(f))
		}

		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}
	return items, folders, nil
}

// FolderName resolves a folder id to its display name.
func (c *Client) FolderName(ctx context.Context, folderID string) (string, error) {
	var f *drive.File
	err := c.do(ctx, func() error {
		var err error
		f, err = c.svc.Files.Get(folderID).Fields("id,name").SupportsAllDrives(true).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return f.Name, nil
}

// Download fetches the raw bytes of an item. Google Docs are exported as plain text.
func (c *Client) Download(ctx context.Context, item Item) ([]byte, error) {
	if item.Size > c.maxDownload {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, item.Name, item.Size)
	}

	var data []byte
	err := c.do(ctx, func() error {
		var body io.ReadCloser
		if item.MimeType == MimeTypeGoogleDoc {
			resp, err := c.svc.Files.Export(item.ID, ExportMimeText).Context(ctx).Download()
			if err != nil {
				return err
			}
			body = resp.Body
		} else {
			resp, err := c.svc.Files.Get(item.ID).SupportsAllDrives(true).Context(ctx).Download()
			if err != nil {
				return err
			}
			body = resp.Body
		}
		defer body.Close()

		var err error
		data, err = io.ReadAll(io.LimitReader(body, c.maxDownload+1))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.Name, err)
	}
	if int64(len(data)) > c.maxDownload {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, item.Name)
	}
	return data, nil
}

// do runs one API call under the rate limiter, retrying rate limited calls
// and server errors.
func (c *Client) do(ctx context.Context, call func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return werr
		}
		err = call()
		switch {
		case err == nil:
			return nil
		case IsRateLimited(err):
			slog.WarnContext(ctx, "drive rate limited, backing off", "attempt", attempt)
		case IsServerError(err):
			slog.WarnContext(ctx, "drive server error, backing off", "attempt", attempt, "error", err)
		default:
			return err
		}
		c.limiter.Backoff(0)
	}
	return err
}

func fromFile(f *drive.File) Item {
	return Item{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
		WebViewLink:  f.WebViewLink,
	}
}

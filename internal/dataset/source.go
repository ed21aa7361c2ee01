package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when the document does not exist (HTTP 404 or a missing file).
var ErrNotFound = errors.New("dataset not found")

// Source fetches a raw document by reference.
type Source interface {
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Locator reads documents from HTTP(S) URLs or local paths. With a Base, refs are resolved relative
// to it; without one each ref is used as-is.
type Locator struct {
	Base      string
	Client    *http.Client
	UserAgent string
}

func NewLocator(base string) Locator {
	return Locator{Base: base, Client: &http.Client{Timeout: 60 * time.Second}}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (l Locator) resolve(ref string) string {
	switch {
	case l.Base == "":
		return ref
	case isURL(l.Base):
		return strings.TrimRight(l.Base, "/") + "/" + strings.TrimLeft(ref, "/")
	default:
		return filepath.Join(l.Base, filepath.Clean("/"+ref))
	}
}

func (l Locator) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	target := l.resolve(ref)
	if !isURL(target) {
		f, err := os.Open(target)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
		}
		return f, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}
	hc := l.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d", target, resp.StatusCode)
	}
	return resp.Body, nil
}

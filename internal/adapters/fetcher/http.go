package fetcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/retry"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected to detect the content type
const sniffLen = 3072

const defaultContentType = "application/octet-stream"

// HTTPFetcher streams http(s) sources
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewHTTPFetcher creates a new HTTPFetcher. Deadlines come from the caller's context.
func NewHTTPFetcher(userAgent string, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Fetch opens url for reading. Size is -1 when the source does not announce it. The content type comes
// from the response header, or from the leading bytes when the header is missing or generic.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*domain.FetchedObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSourceURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch %s: %w", domain.ErrTransientProvider, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		providerErr := retry.FromHTTPStatus(resp.StatusCode)
		if providerErr == nil {
			providerErr = domain.ErrPermanentProvider
		}
		return nil, fmt.Errorf("%w: fetch %s returned %d", providerErr, url, resp.StatusCode)
	}

	body := bufio.NewReaderSize(resp.Body, sniffLen)
	contentType := headerContentType(resp.Header.Get("Content-Type"))
	if contentType == "" {
		head, _ := body.Peek(sniffLen)
		contentType = mimetype.Detect(head).String()
	}

	f.logger.Debug("source opened", "url", url, "size", resp.ContentLength, "content_type", contentType)

	return &domain.FetchedObject{
		Body:        readCloser{Reader: body, Closer: resp.Body},
		Size:        resp.ContentLength,
		ContentType: contentType,
	}, nil
}

// headerContentType returns the media type of a Content-Type header, or "" when it says nothing useful
func headerContentType(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == defaultContentType {
		return ""
	}
	return header
}

type readCloser struct {
	io.Reader
	io.Closer
}

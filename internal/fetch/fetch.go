// Package fetch is the streaming fetch collaborator of the transfer core: it
// opens one HTTP connection, optionally with a byte-range header, and hands
// the core a forward-only chunk stream plus the response metadata the resume
// negotiation needs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mirofic/fetchr/internal/utils"
)

// Status says whether the server honored a requested byte range.
type Status int

const (
	StatusFull Status = iota
	StatusPartial
)

// Stream is one open response. Body is lazy, finite and non-restartable; the
// core reads it forward-only and owns closing it.
type Stream struct {
	Status         Status
	DeclaredLength int64 // 0 = unknown
	Body           io.ReadCloser
}

func (s *Stream) Close() error {
	return s.Body.Close()
}

// Opener is what the transfer core depends on; tests substitute scripted
// streams.
type Opener interface {
	Open(ctx context.Context, url string, rangeHeader string) (*Stream, error)
}

// Client opens streams over HTTP using the shared wrapped client.
type Client struct {
	httpc utils.HTTPDoer
}

func NewClient(httpc utils.HTTPDoer) *Client {
	return &Client{httpc: httpc}
}

func (c *Client) Open(ctx context.Context, url string, rangeHeader string) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %v", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	req.Header.Set("Connection", "keep-alive")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing GET request: %v", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &Stream{
			Status:         StatusFull,
			DeclaredLength: declaredLength(resp),
			Body:           resp.Body,
		}, nil
	case http.StatusPartialContent:
		return &Stream{
			Status:         StatusPartial,
			DeclaredLength: declaredLength(resp),
			Body:           resp.Body,
		}, nil
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// declaredLength reads Content-Length directly rather than trusting
// resp.ContentLength, which the stdlib sets to -1 for chunked responses.
func declaredLength(resp *http.Response) int64 {
	cl := resp.Header.Get("Content-Length")
	if cl == "" {
		return 0
	}
	length, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || length < 0 {
		log.Debug().Str("op", "fetch").Str("contentLength", cl).Msg("Ignoring unparseable Content-Length")
		return 0
	}
	return length
}

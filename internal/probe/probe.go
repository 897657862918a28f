// Package probe answers "is this URL worth starting a session for" with one
// HEAD request. It never raises for network failures: a transport error
// fails open with an unknown size, since plenty of servers that block HEAD
// serve GET just fine.
package probe

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mirofic/fetchr/internal/utils"
)

// Result is the reachability verdict for one URL.
type Result struct {
	Reachable    bool
	DeclaredSize int64  // 0 = unknown
	ContentKind  string // media type without parameters, "" = unknown
	Filename     string // from Content-Disposition, "" if absent
}

type Prober struct {
	httpc utils.HTTPDoer
}

func New(httpc utils.HTTPDoer) *Prober {
	return &Prober{httpc: httpc}
}

// Probe validates the URL shape and issues a HEAD request. A 403 counts as
// reachable: CDNs routinely reject HEAD for resources GET can fetch, so
// treating it as invalid would block real downloads.
func (p *Prober) Probe(rawURL string) (Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Result{}, fmt.Errorf("invalid URL: %s", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{}, fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}

	req, err := http.NewRequest("HEAD", rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("error creating HEAD request: %v", err)
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		log.Debug().Str("op", "probe").Err(err).Msg("HEAD failed, assuming reachable with unknown size")
		return Result{Reachable: true}, nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusForbidden:
		log.Debug().Str("op", "probe").Int("status", resp.StatusCode).Msg("HEAD forbidden, treating URL as valid")
	default:
		return Result{Reachable: false}, nil
	}

	result := Result{Reachable: true}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, err := strconv.ParseInt(cl, 10, 64); err == nil && size > 0 {
			if size > utils.MaxDeclaredSize {
				return Result{}, fmt.Errorf("file size too large (max 10GB): %s", utils.FormatBytes(uint64(size)))
			}
			result.DeclaredSize = size
		}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if kind, _, err := mime.ParseMediaType(ct); err == nil {
			result.ContentKind = kind
		}
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			result.Filename = params["filename"]
		}
	}
	return result, nil
}

// IsWebpage reports whether the probed content is an HTML page rather than a
// downloadable file.
func (r Result) IsWebpage() bool {
	return strings.HasPrefix(r.ContentKind, "text/html")
}

// InferFilename picks a destination name when the caller gave none: the
// Content-Disposition name, then the URL path basename, then a generic name
// with an extension guessed from the content kind.
func (r Result) InferFilename(rawURL string) string {
	if r.Filename != "" {
		return r.Filename
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if base := strings.Trim(parsed.Path, "/"); base != "" {
			parts := strings.Split(base, "/")
			if name := parts[len(parts)-1]; name != "" {
				return name
			}
		}
	}
	ext := ""
	if r.ContentKind != "" {
		if exts, err := mime.ExtensionsByType(r.ContentKind); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "downloaded_file" + ext
}

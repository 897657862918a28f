package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

const payload = "hello world, this is the payload"

func newFetchServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/full", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, payload)
	})
	mux.HandleFunc("/ranged", func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, payload)
			return
		}
		offset, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(rangeHeader, "bytes="), "-"))
		rest := payload[offset:]
		w.Header().Set("Content-Length", strconv.Itoa(len(rest)))
		w.WriteHeader(http.StatusPartialContent)
		io.WriteString(w, rest)
	})
	mux.HandleFunc("/chunked", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		io.WriteString(w, payload)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	return httptest.NewServer(mux)
}

func TestOpenFull(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	client := NewClient(server.Client())

	stream, err := client.Open(context.Background(), server.URL+"/full", "")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	if stream.Status != StatusFull {
		t.Errorf("expected full status, got %v", stream.Status)
	}
	if stream.DeclaredLength != int64(len(payload)) {
		t.Errorf("expected declared length %d, got %d", len(payload), stream.DeclaredLength)
	}
	body, _ := io.ReadAll(stream.Body)
	if string(body) != payload {
		t.Error("body does not match the payload")
	}
}

func TestOpenPartial(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	client := NewClient(server.Client())

	stream, err := client.Open(context.Background(), server.URL+"/ranged", "bytes=6-")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	if stream.Status != StatusPartial {
		t.Errorf("expected partial status, got %v", stream.Status)
	}
	want := payload[6:]
	if stream.DeclaredLength != int64(len(want)) {
		t.Errorf("declared length should cover the remainder, got %d", stream.DeclaredLength)
	}
	body, _ := io.ReadAll(stream.Body)
	if string(body) != want {
		t.Errorf("expected %q, got %q", want, body)
	}
}

func TestOpenRangeIgnored(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	client := NewClient(server.Client())

	// A server that replies 200 to a range request still maps to StatusFull.
	stream, err := client.Open(context.Background(), server.URL+"/full", "bytes=6-")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	if stream.Status != StatusFull {
		t.Errorf("expected full status when the range is ignored, got %v", stream.Status)
	}
}

func TestOpenChunkedHasUnknownLength(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	client := NewClient(server.Client())

	stream, err := client.Open(context.Background(), server.URL+"/chunked", "")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	if stream.DeclaredLength != 0 {
		t.Errorf("chunked response should have unknown length, got %d", stream.DeclaredLength)
	}
}

func TestOpenBadStatus(t *testing.T) {
	server := newFetchServer()
	defer server.Close()
	client := NewClient(server.Client())

	if _, err := client.Open(context.Background(), server.URL+"/gone", ""); err == nil {
		t.Error("expected error on a non-success status")
	}
}

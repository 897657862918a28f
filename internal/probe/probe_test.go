package probe

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newProbeServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/file.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1234")
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/named", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/huge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "21474836480") // 20 GiB
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func TestProbeOK(t *testing.T) {
	server := newProbeServer()
	defer server.Close()
	prober := New(server.Client())

	result, err := prober.Probe(server.URL + "/file.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Reachable {
		t.Error("expected reachable")
	}
	if result.DeclaredSize != 1234 {
		t.Errorf("expected size 1234, got %d", result.DeclaredSize)
	}
	if result.ContentKind != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", result.ContentKind)
	}
	if result.IsWebpage() {
		t.Error("a pdf is not a webpage")
	}
}

func TestProbeDispositionFilename(t *testing.T) {
	server := newProbeServer()
	defer server.Close()
	prober := New(server.Client())

	result, err := prober.Probe(server.URL + "/named")
	if err != nil {
		t.Fatal(err)
	}
	if result.Filename != "report.csv" {
		t.Errorf("expected filename from Content-Disposition, got %q", result.Filename)
	}
}

func TestProbeForbiddenCountsAsValid(t *testing.T) {
	server := newProbeServer()
	defer server.Close()
	prober := New(server.Client())

	result, err := prober.Probe(server.URL + "/forbidden")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Reachable {
		t.Error("403 on HEAD should still count as a valid URL")
	}
}

func TestProbeNotFound(t *testing.T) {
	server := newProbeServer()
	defer server.Close()
	prober := New(server.Client())

	result, err := prober.Probe(server.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reachable {
		t.Error("404 should be unreachable")
	}
}

func TestProbeWebpage(t *testing.T) {
	server := newProbeServer()
	defer server.Close()
	prober := New(server.Client())

	result, err := prober.Probe(server.URL + "/page")
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsWebpage() {
		t.Error("text/html should classify as a webpage")
	}
}

func TestProbeOversized(t *testing.T) {
	server := newProbeServer()
	defer server.Close()
	prober := New(server.Client())

	if _, err := prober.Probe(server.URL + "/huge"); err == nil {
		t.Error("declared sizes above the cap should be rejected")
	}
}

func TestProbeTransportErrorFailsOpen(t *testing.T) {
	server := newProbeServer()
	url := server.URL + "/file.pdf"
	client := server.Client()
	server.Close()
	prober := New(client)

	result, err := prober.Probe(url)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Reachable {
		t.Error("a HEAD transport failure should fail open")
	}
	if result.DeclaredSize != 0 {
		t.Errorf("size should be unknown after a failed HEAD, got %d", result.DeclaredSize)
	}
}

func TestProbeInvalidURLs(t *testing.T) {
	prober := New(http.DefaultClient)
	for _, raw := range []string{"", "not a url", "ftp://host/file", "/relative/only"} {
		if _, err := prober.Probe(raw); err == nil {
			t.Errorf("expected validation error for %q", raw)
		}
	}
}

func TestInferFilename(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		url    string
		want   string
	}{
		{"disposition wins", Result{Filename: "report.csv"}, "http://host/other.bin", "report.csv"},
		{"url basename", Result{}, "http://host/dir/video.mp4?x=1", "video.mp4"},
		{"extension from kind", Result{ContentKind: "application/pdf"}, "http://host/", "downloaded_file.pdf"},
		{"bare fallback", Result{}, "http://host/", "downloaded_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.InferFilename(tt.url); got != tt.want {
				t.Errorf("want %q, got %q", tt.want, got)
			}
		})
	}
}

package transfer

import (
	"os"
	"path/filepath"
	"testing"
)

func writePartial(t *testing.T, dir string, size int) string {
	t.Helper()
	path := filepath.Join(dir, "file.bin")
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name       string
		localSize  int // -1 = no file
		resume     bool
		remoteSize int64
		wantOffset int64
		wantMode   WriteMode
		wantRange  string
		wantDone   bool
	}{
		{"resume disabled", 400, false, 1000, 0, Truncate, "", false},
		{"no local file", -1, true, 1000, 0, Truncate, "", false},
		{"empty local file", 0, true, 1000, 0, Truncate, "", false},
		{"partial local file", 400, true, 1000, 400, Append, "bytes=400-", false},
		{"partial with unknown remote", 400, true, 0, 400, Append, "bytes=400-", false},
		{"local already complete", 1000, true, 1000, 0, Truncate, "", true},
		{"local larger than remote", 1200, true, 1000, 0, Truncate, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "file.bin")
			if tt.localSize >= 0 {
				dest = writePartial(t, dir, tt.localSize)
			}

			decision, err := Negotiate(dest, tt.resume, tt.remoteSize)
			if tt.wantDone {
				if err != ErrAlreadyComplete {
					t.Fatalf("expected ErrAlreadyComplete, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if decision.Offset != tt.wantOffset {
				t.Errorf("offset: want %d, got %d", tt.wantOffset, decision.Offset)
			}
			if decision.Mode != tt.wantMode {
				t.Errorf("mode: want %v, got %v", tt.wantMode, decision.Mode)
			}
			if decision.RangeHeader != tt.wantRange {
				t.Errorf("range header: want %q, got %q", tt.wantRange, decision.RangeHeader)
			}
		})
	}
}

func TestRestartForcesTruncate(t *testing.T) {
	decision := Restart()
	if decision.Offset != 0 || decision.Mode != Truncate || decision.RangeHeader != "" {
		t.Errorf("restart should be a clean truncate decision, got %+v", decision)
	}
}

func TestOpenDestinationAppendKeepsPrefix(t *testing.T) {
	dest := writePartial(t, t.TempDir(), 100)
	decision := Decision{Offset: 100, Mode: Append}

	f, err := decision.OpenDestination(dest)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("tail")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 104 {
		t.Errorf("append should keep the prefix, size is %d", info.Size())
	}
}

func TestOpenDestinationTruncateDropsPrefix(t *testing.T) {
	dest := writePartial(t, t.TempDir(), 100)
	decision := Restart()

	f, err := decision.OpenDestination(dest)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("fresh")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fresh" {
		t.Errorf("truncate should drop stale bytes, got %d bytes", len(data))
	}
}

package audio

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/narrator/tts"
)

func TestLoadInline(t *testing.T) {
	data, mimeType, err := Load(context.Background(), nil, tts.Inline([]byte("abc"), "audio/wav"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "abc" || mimeType != "audio/wav" {
		t.Errorf("Unexpected result: %q %q", data, mimeType)
	}
}

func TestLoadReference(t *testing.T) {
	payload := []byte("RIFFdata")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed":
			w.Header().Set("Content-Type", "audio/wav")
		case "/missing":
			http.NotFound(w, r)
			return
		default:
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		uri      string
		wantMIME string
		wantErr  bool
	}{
		{"http typed", srv.URL + "/typed", "audio/wav", false},
		{"http by extension", srv.URL + "/clip.wav", "audio/wav", false},
		{"http not found", srv.URL + "/missing", "", true},
		{"data uri", "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(payload), "audio/wav", false},
		{"file url", "file://" + path, "audio/wav", false},
		{"plain path", path, "audio/wav", false},
		{"missing file", filepath.Join(dir, "nope.wav"), "", true},
		{"malformed data uri", "data:audio/wav;base64", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mimeType, err := Load(context.Background(), srv.Client(), tts.Reference(tt.uri))
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if string(data) != string(payload) {
				t.Errorf("Unexpected payload %q", data)
			}
			if mimeType != tt.wantMIME {
				t.Errorf("Expected MIME %q, got %q", tt.wantMIME, mimeType)
			}
		})
	}
}

func TestLoadRejectsEmptySource(t *testing.T) {
	if _, _, err := Load(context.Background(), nil, tts.Reference("  ")); err == nil {
		t.Error("Expected error for blank reference")
	}
}

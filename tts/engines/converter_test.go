package engines

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgnsrekt/narrator/tts"
)

func TestHTTPConverter(t *testing.T) {
	var gotSpeaker, gotText, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSpeaker = r.URL.Query().Get("speaker")
		gotText = r.URL.Query().Get("text")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("converted"))
	}))
	defer srv.Close()

	conv := NewHTTPConverter(srv.URL+"/convert", srv.Client(), nil)
	out, err := conv.Convert(context.Background(), tts.Inline([]byte("original"), "audio/pcm;rate=16000"), "Alice", "Hi there")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if gotSpeaker != "Alice" || gotText != "Hi there" {
		t.Errorf("Unexpected query speaker=%q text=%q", gotSpeaker, gotText)
	}
	if gotType != "audio/pcm;rate=16000" || string(gotBody) != "original" {
		t.Errorf("Unexpected upload %q %q", gotType, gotBody)
	}
	if string(out.Data()) != "converted" || out.MIMEType() != "audio/wav" {
		t.Errorf("Unexpected output %q %s", out.Data(), out.MIMEType())
	}
}

func TestHTTPConverterKeepsInputType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("converted"))
	}))
	defer srv.Close()

	conv := NewHTTPConverter(srv.URL, srv.Client(), nil)
	out, err := conv.Convert(context.Background(), tts.Inline([]byte("x"), "audio/wav"), "Bob", "hi")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if out.MIMEType() != "audio/wav" {
		t.Errorf("Expected input MIME type, got %s", out.MIMEType())
	}
}

func TestHTTPConverterError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model missing", http.StatusNotFound)
	}))
	defer srv.Close()

	conv := NewHTTPConverter(srv.URL, srv.Client(), nil)
	if _, err := conv.Convert(context.Background(), tts.Inline([]byte("x"), "audio/wav"), "Bob", "hi"); err == nil {
		t.Error("Expected error for failed conversion")
	}
}

package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/mediaflow/transcription"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
			return
		case "/transcribe":
		default:
			http.NotFound(w, r)
			return
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "interview1.mp4" || string(data) != "pcm" {
			t.Errorf("unexpected upload %s %q", hdr.Filename, data)
		}
		if r.FormValue("model") != "small" || r.FormValue("language") != "en" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     "hello there",
			"language": "en",
			"segments": []map[string]any{{"text": "hello", "start": 0, "end": 0.5}, {"text": "there", "start": 0.5, "end": 1.25}},
		})
	}))
	defer srv.Close()

	p, err := NewProvider(Config{URL: srv.URL, Model: "small", Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAvailable(context.Background()) {
		t.Error("expected sidecar to be available")
	}

	resp, err := p.Transcribe(context.Background(), transcription.Request{Audio: strings.NewReader("pcm"), FileName: "interview1.mp4"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "hello there" || resp.Duration != 1.25 || len(resp.Segments) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cuda out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := NewProvider(Config{URL: srv.URL})
	if _, err := p.Transcribe(context.Background(), transcription.Request{Audio: strings.NewReader("x")}); err == nil {
		t.Error("expected error")
	}
	if _, err := p.Transcribe(context.Background(), transcription.Request{}); err == nil {
		t.Error("expected error without audio")
	}
}

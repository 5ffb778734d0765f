package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q", ua)
		}
		if tok := r.Header.Get("X-Token"); tok != "secret" {
			t.Errorf("X-Token = %q", tok)
		}
		w.Write([]byte(`{"name":"Song"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{UserAgent: "test-agent", Headers: map[string]string{"X-Token": "secret"}})
	var out struct {
		Name string `json:"name"`
	}
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Name != "Song" {
		t.Errorf("Name = %q", out.Name)
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(Config{}).Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("Get() error = %v, want 404 StatusError", err)
	}
}

func TestClient_OpenStream(t *testing.T) {
	payload := []byte("0123456789abcdef")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	stream, err := NewClient(Config{}).OpenStream(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	defer stream.Close()

	if stream.Size() != int64(len(payload)) {
		t.Errorf("Size() = %d, want %d", stream.Size(), len(payload))
	}
	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("body = %q", got)
	}
}

func TestClient_OpenStreamWithoutLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		w.Write([]byte("chunked"))
	}))
	defer srv.Close()

	if _, err := NewClient(Config{}).OpenStream(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for missing Content-Length")
	}
}

func TestParseProxyURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		user     string
		pass     string
		want     string
		wantFail bool
	}{
		{name: "plain", raw: "http://127.0.0.1:3128", want: "http://127.0.0.1:3128"},
		{name: "credentials", raw: "http://127.0.0.1:3128", user: "u", pass: "p", want: "http://u:p@127.0.0.1:3128"},
		{name: "user only", raw: "socks5://proxy:1080", user: "u", want: "socks5://u@proxy:1080"},
		{name: "missing scheme", raw: "127.0.0.1:3128", wantFail: true},
		{name: "host only", raw: "proxy.local", wantFail: true},
		{name: "bad escape", raw: "http://%zz", wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProxyURL(tt.raw, tt.user, tt.pass)
			if tt.wantFail {
				if err == nil {
					t.Fatalf("ParseProxyURL(%q) = %v, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProxyURL(%q) error = %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseProxyURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewClient_BadProxyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient(Config{ProxyURL: "127.0.0.1:3128"})
	if _, err := client.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

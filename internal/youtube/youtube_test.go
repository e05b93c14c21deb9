package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://youtu.be/dQw4w9WgXcQ":                              "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":               "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ?start=10":        "dQw4w9WgXcQ",
		"https://youtube.com/shorts/dQw4w9WgXcQ":                    "dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ?si=abc":           "dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ":                     "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ#t=30":                         "dQw4w9WgXcQ",
		"https://example.com/video":                                 "",
		"https://www.youtube.com/watch?v=short":                     "",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQextra":          "",
		"": "",
	}
	for in, want := range cases {
		if got := ExtractVideoID(in); got != want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOEmbedFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") != WatchURL("dQw4w9WgXcQ") || r.URL.Query().Get("format") != "json" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"title":"Never Gonna Give You Up","author_name":"Rick Astley"}`))
	}))
	defer srv.Close()

	meta, err := NewOEmbedClient(srv.URL).Fetch(context.Background(), WatchURL("dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Title != "Never Gonna Give You Up" || meta.AuthorName != "Rick Astley" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestOEmbedFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	if _, err := NewOEmbedClient(srv.URL).Fetch(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-200 reply")
	}
}

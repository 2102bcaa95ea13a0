package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeWhatsAppAddress(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"whatsapp:+447700900000": "whatsapp:+447700900000",
		"+447700900000":          "whatsapp:+447700900000",
		"447700900000":           "whatsapp:+447700900000",
		"  +447700900000  ":      "whatsapp:+447700900000",
		"":                       "",
		"   ":                    "",
	}

	for input, want := range cases {
		if got := normalizeWhatsAppAddress(input); got != want {
			t.Errorf("normalizeWhatsAppAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDownloadMedia(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "sid" || pass != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	c := New("sid", "token", "+447700900000")

	data, err := c.DownloadMedia(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("data = %q", data)
	}

	bad := New("wrong", "creds", "+447700900000")
	if _, err := bad.DownloadMedia(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error on auth failure status")
	}
}

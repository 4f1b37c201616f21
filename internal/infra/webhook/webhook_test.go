package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maple-music/maple/internal/infra/webhook"
)

func TestSendDeliversMultipartCard(t *testing.T) {
	var gotTitle, gotArtist, gotAlbum string
	var gotArtwork []byte
	var gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotTitle = r.FormValue("title")
		gotArtist = r.FormValue("artist")
		gotAlbum = r.FormValue("album")

		file, header, err := r.FormFile("artwork")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		gotArtwork, _ = io.ReadAll(file)
	}))
	defer srv.Close()

	card := webhook.Card{
		Title:    "Night Drive",
		Artist:   "The Lanterns",
		Album:    "Low Beams",
		Artwork:  []byte("jpeg-bytes"),
		Filename: "abc.jpg",
	}
	if err := webhook.NewClient().Send(context.Background(), srv.URL, card); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotTitle != "Night Drive" || gotArtist != "The Lanterns" || gotAlbum != "Low Beams" {
		t.Errorf("fields = %q/%q/%q", gotTitle, gotArtist, gotAlbum)
	}
	if string(gotArtwork) != "jpeg-bytes" {
		t.Errorf("artwork = %q", gotArtwork)
	}
	if gotFilename != "abc.jpg" {
		t.Errorf("filename = %q, want abc.jpg", gotFilename)
	}
}

func TestSendWithoutArtworkOmitsFilePart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if _, _, err := r.FormFile("artwork"); err == nil {
			t.Error("artwork part present, want omitted")
		}
	}))
	defer srv.Close()

	err := webhook.NewClient().Send(context.Background(), srv.URL, webhook.Card{Title: "T"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := webhook.NewClient().Send(context.Background(), srv.URL, webhook.Card{Title: "T"})
	if err == nil {
		t.Error("Send succeeded on 500 response")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maple-music/maple/internal/domain/catalog"
	"github.com/maple-music/maple/internal/domain/player"
)

type stubBackend struct{}

func (stubBackend) Load(path string) (time.Duration, error) { return 30 * time.Second, nil }
func (stubBackend) Play()                                   {}
func (stubBackend) Pause()                                  {}
func (stubBackend) Stop()                                   {}
func (stubBackend) Seek(pos time.Duration) error            { return nil }
func (stubBackend) Position() time.Duration                 { return 0 }
func (stubBackend) Close() error                            { return nil }

func queueAPI(t *testing.T, tracks ...catalog.Track) *api {
	t.Helper()
	store, err := catalog.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, tr := range tracks {
		if err := store.AppendTrack(tr); err != nil {
			t.Fatalf("AppendTrack: %v", err)
		}
	}
	return &api{
		engine:  player.NewEngine(stubBackend{}),
		catalog: store,
	}
}

func postQueue(t *testing.T, a *api, ids []string, index int) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"ids": ids, "index": index})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	return rec
}

func TestSetQueueAdjustsIndexForUnknownIDs(t *testing.T) {
	a := queueAPI(t,
		catalog.Track{ID: "t1", Title: "One", Location: "/music/t1.mp3"},
		catalog.Track{ID: "t2", Title: "Two", Location: "/music/t2.mp3"},
	)
	defer a.engine.Close()

	rec := postQueue(t, a, []string{"ghost", "t1", "t2"}, 2)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	cur, ok := a.engine.Current()
	if !ok || cur.ID != "t2" {
		t.Errorf("current = %v (ok=%v), want t2 (index shifts with dropped ids)", cur.ID, ok)
	}
	tracks, cursor := a.engine.QueueSnapshot()
	if len(tracks) != 2 || cursor != 1 {
		t.Errorf("queue len = %d cursor = %d, want 2 and 1", len(tracks), cursor)
	}
}

func TestSetQueueRejectsUnknownTargetID(t *testing.T) {
	a := queueAPI(t, catalog.Track{ID: "t1", Title: "One", Location: "/music/t1.mp3"})
	defer a.engine.Close()

	rec := postQueue(t, a, []string{"t1", "ghost"}, 1)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if _, ok := a.engine.Current(); ok {
		t.Error("a track is loaded after a rejected queue request")
	}
}

func TestSetQueueKnownIDs(t *testing.T) {
	a := queueAPI(t,
		catalog.Track{ID: "t1", Title: "One", Location: "/music/t1.mp3"},
		catalog.Track{ID: "t2", Title: "Two", Location: "/music/t2.mp3"},
	)
	defer a.engine.Close()

	rec := postQueue(t, a, []string{"t1", "t2"}, 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	if a.engine.Status() != player.StatusPlaying {
		t.Errorf("status = %s, want %s", a.engine.Status(), player.StatusPlaying)
	}
	cur, _ := a.engine.Current()
	if cur.ID != "t1" {
		t.Errorf("current = %s, want t1", cur.ID)
	}
}

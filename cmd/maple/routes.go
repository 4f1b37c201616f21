package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/maple-music/maple/internal/config"
	"github.com/maple-music/maple/internal/domain/artwork"
	"github.com/maple-music/maple/internal/domain/catalog"
	"github.com/maple-music/maple/internal/domain/player"
	"github.com/maple-music/maple/internal/infra/backend"
	"github.com/maple-music/maple/internal/infra/mpd"
	"github.com/maple-music/maple/internal/transport/backendsock"
	"github.com/maple-music/maple/internal/transport/socketio"
	"github.com/maple-music/maple/internal/version"
)

// api holds the daemon's wired components for the HTTP surface.
type api struct {
	engine   *player.Engine
	loader   *catalog.Loader
	catalog  *catalog.Store
	artwork  *artwork.Store
	backend  *backend.Client
	sock     *backendsock.Client
	settings *config.Settings
	external *mpd.Adapter
	bridge   *socketio.Server
}

func (a *api) routes() *mux.Router {
	r := mux.NewRouter()

	r.PathPrefix("/socket.io/").Handler(a.bridge)

	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/albumart", a.handleAlbumArt).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/version", a.handleVersion).Methods(http.MethodGet)
	v1.HandleFunc("/getState", a.handleGetState).Methods(http.MethodGet)

	// Catalog
	v1.HandleFunc("/tracks", a.handleTracks).Methods(http.MethodGet)
	v1.HandleFunc("/albums", a.handleAlbums).Methods(http.MethodGet)
	v1.HandleFunc("/artists", a.handleArtists).Methods(http.MethodGet)
	v1.HandleFunc("/import", a.handleImport).Methods(http.MethodPost)

	// Playback
	v1.HandleFunc("/queue", a.handleGetQueue).Methods(http.MethodGet)
	v1.HandleFunc("/queue", a.handleSetQueue).Methods(http.MethodPost)
	v1.HandleFunc("/external/play", a.handleExternalPlay).Methods(http.MethodPost)

	// Backend passthrough
	v1.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/account", a.handleAccount).Methods(http.MethodGet)
	v1.HandleFunc("/displayName", a.handleDisplayName).Methods(http.MethodPost)
	v1.HandleFunc("/profiles/{username}", a.handleProfile).Methods(http.MethodGet)
	v1.HandleFunc("/friends", a.handleFriends).Methods(http.MethodGet)
	v1.HandleFunc("/friends/request", a.handleFriendRequest).Methods(http.MethodPost)
	v1.HandleFunc("/friends/{id}/accept", a.handleFriendAccept).Methods(http.MethodPost)
	v1.HandleFunc("/friends/{id}/reject", a.handleFriendReject).Methods(http.MethodPost)
	v1.HandleFunc("/friends/{id}/remove", a.handleFriendRemove).Methods(http.MethodPost)

	// Settings
	v1.HandleFunc("/settings", a.handleGetSettings).Methods(http.MethodGet)
	v1.HandleFunc("/settings", a.handleSetSettings).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (a *api) handleGetState(w http.ResponseWriter, r *http.Request) {
	elapsed, duration := a.engine.Position()
	_, cursor := a.engine.QueueSnapshot()
	state := map[string]interface{}{
		"status":   a.engine.Status(),
		"seek":     elapsed,
		"duration": duration,
		"position": cursor,
	}
	if t, ok := a.engine.Current(); ok {
		state["track"] = t
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *api) handleAlbumArt(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = artwork.Placeholder
	}
	data, err := a.artwork.Read(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", imageContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// imageContentType sniffs the image type from magic bytes.
func imageContentType(data []byte) string {
	if len(data) >= 4 {
		switch {
		case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
			return "image/png"
		case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46:
			return "image/gif"
		case data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46:
			return "image/webp"
		}
	}
	return "image/jpeg"
}

func (a *api) handleTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := a.catalog.Tracks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (a *api) handleAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := a.catalog.Albums()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

func (a *api) handleArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := a.catalog.Artists()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

func (a *api) handleImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Paths []string `json:"paths"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	imported := a.loader.ImportFiles(body.Paths)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"imported": imported,
		"count":    len(imported),
	})
}

func (a *api) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	tracks, cursor := a.engine.QueueSnapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tracks":   tracks,
		"position": cursor,
	})
}

// handleSetQueue replaces the playback queue with catalog tracks by id
// and starts playing at index.
func (a *api) handleSetQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs   []string `json:"ids"`
		Index int      `json:"index"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	all, err := a.catalog.Tracks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	byID := make(map[string]catalog.Track, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	// Unknown ids are dropped; the start index shifts with them so it
	// still points at the track the caller asked for.
	tracks := make([]catalog.Track, 0, len(body.IDs))
	index := body.Index
	for i, id := range body.IDs {
		t, ok := byID[id]
		if !ok {
			if i == body.Index {
				writeError(w, http.StatusBadRequest, fmt.Errorf("unknown track id %s at index %d", id, i))
				return
			}
			log.Warn().Str("id", id).Msg("Unknown track id in queue request")
			if i < body.Index {
				index--
			}
			continue
		}
		tracks = append(tracks, t)
	}

	if err := a.engine.SetQueue(tracks, index); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.engine.Play()
	writeJSON(w, http.StatusOK, map[string]int{"queued": len(tracks)})
}

func (a *api) handleExternalPlay(w http.ResponseWriter, r *http.Request) {
	if !a.settings.ExternalLibraryEnabled() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "external library disabled"})
		return
	}
	var body struct {
		URIs  []string `json:"uris"`
		Index int      `json:"index"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if err := a.external.PlayTrackAt(r.Context(), body.URIs, body.Index); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin authenticates against the backend, persists the account id
// and opens the socket channel with the fresh session.
func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	account, err := a.backend.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err := a.settings.SetAccountID(account.ID); err != nil {
		log.Warn().Err(err).Msg("Could not persist account id")
	}

	if a.settings.SocketEnabled() {
		a.sock.SetCookies(a.backend.SessionCookies())
		if err := a.sock.Connect(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Backend socket connect failed")
		}
	}

	writeJSON(w, http.StatusOK, account)
}

func (a *api) handleAccount(w http.ResponseWriter, r *http.Request) {
	id := a.settings.AccountID()
	if id == "" {
		writeError(w, http.StatusUnauthorized, backend.ErrUnauthorized)
		return
	}
	account, err := a.backend.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (a *api) handleDisplayName(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if err := a.backend.SetDisplayName(r.Context(), body.DisplayName); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	account, err := a.backend.PublicProfile(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (a *api) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := a.backend.Friends(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (a *api) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if err := a.backend.SendFriendRequest(r.Context(), body.Username); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.backend.AcceptFriendRequest)
}

func (a *api) handleFriendReject(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.backend.RejectFriendRequest)
}

func (a *api) handleFriendRemove(w http.ResponseWriter, r *http.Request) {
	a.friendAction(w, r, a.backend.RemoveFriend)
}

func (a *api) friendAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id string) error) {
	id := mux.Vars(r)["id"]
	if err := action(r.Context(), id); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":         a.settings.AccountID(),
		"webhookUrl":        a.settings.WebhookURL(),
		"discord":           a.settings.MirrorToDiscord(),
		"socketEnabled":     a.settings.SocketEnabled(),
		"autoAcceptFriends": a.settings.AutoAcceptFriends(),
		"externalLibrary":   a.settings.ExternalLibraryEnabled(),
	})
}

// handleSetSettings applies only the keys present in the request body.
func (a *api) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WebhookURL        *string `json:"webhookUrl"`
		Discord           *bool   `json:"discord"`
		SocketEnabled     *bool   `json:"socketEnabled"`
		AutoAcceptFriends *bool   `json:"autoAcceptFriends"`
		ExternalLibrary   *bool   `json:"externalLibrary"`
	}
	if !readJSON(w, r, &body) {
		return
	}

	apply := func(err error) bool {
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return false
		}
		return true
	}
	if body.WebhookURL != nil && !apply(a.settings.SetWebhookURL(*body.WebhookURL)) {
		return
	}
	if body.Discord != nil && !apply(a.settings.SetMirrorToDiscord(*body.Discord)) {
		return
	}
	if body.SocketEnabled != nil && !apply(a.settings.SetSocketEnabled(*body.SocketEnabled)) {
		return
	}
	if body.AutoAcceptFriends != nil && !apply(a.settings.SetAutoAcceptFriends(*body.AutoAcceptFriends)) {
		return
	}
	if body.ExternalLibrary != nil && !apply(a.settings.SetExternalLibraryEnabled(*body.ExternalLibrary)) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

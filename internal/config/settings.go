package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Settings keys.
const (
	keyAccountID       = "accountId"
	keyWebhookURL      = "webhookUrl"
	keyDiscord         = "discord"
	keySocketEnabled   = "socketEnabled"
	keyAutoAccept      = "autoAcceptFriends"
	keyExternalLibrary = "externalLibrary"
)

// Settings is the mutable key-value store backed by settings.json. Every
// getter re-reads the file, so a change takes effect on the next
// relevant operation without explicit propagation.
type Settings struct {
	mu   sync.Mutex
	path string
}

// NewSettings opens the settings store under dataDir.
func NewSettings(dataDir string) *Settings {
	return &Settings{path: filepath.Join(dataDir, "settings.json")}
}

// AccountID is the logged-in account id, empty when logged out.
func (s *Settings) AccountID() string { return s.getString(keyAccountID) }

// SetAccountID persists the logged-in account id.
func (s *Settings) SetAccountID(id string) error { return s.set(keyAccountID, id) }

// WebhookURL is the user-configured now-playing webhook, empty when
// unset.
func (s *Settings) WebhookURL() string { return s.getString(keyWebhookURL) }

// SetWebhookURL persists the webhook URL.
func (s *Settings) SetWebhookURL(url string) error { return s.set(keyWebhookURL, url) }

// MirrorToDiscord reports whether now-playing events carry the discord
// mirror flag.
func (s *Settings) MirrorToDiscord() bool { return s.getBool(keyDiscord) }

// SetMirrorToDiscord persists the discord mirror flag.
func (s *Settings) SetMirrorToDiscord(on bool) error { return s.set(keyDiscord, on) }

// SocketEnabled reports whether the backend socket channel connects at
// startup.
func (s *Settings) SocketEnabled() bool { return s.getBool(keySocketEnabled) }

// SetSocketEnabled persists the socket channel flag.
func (s *Settings) SetSocketEnabled(on bool) error { return s.set(keySocketEnabled, on) }

// AutoAcceptFriends reports whether inbound friend requests are accepted
// automatically.
func (s *Settings) AutoAcceptFriends() bool { return s.getBool(keyAutoAccept) }

// SetAutoAcceptFriends persists the auto-accept flag.
func (s *Settings) SetAutoAcceptFriends(on bool) error { return s.set(keyAutoAccept, on) }

// ExternalLibraryEnabled reports whether the external library adapter is
// active.
func (s *Settings) ExternalLibraryEnabled() bool { return s.getBool(keyExternalLibrary) }

// SetExternalLibraryEnabled persists the external library flag.
func (s *Settings) SetExternalLibraryEnabled(on bool) error { return s.set(keyExternalLibrary, on) }

func (s *Settings) load() map[string]interface{} {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("Cannot read settings")
		}
		return map[string]interface{}{}
	}
	values := map[string]interface{}{}
	if err := json.Unmarshal(data, &values); err != nil {
		log.Warn().Err(err).Msg("Corrupt settings file, starting empty")
		return map[string]interface{}{}
	}
	return values
}

func (s *Settings) getString(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.load()[key].(string); ok {
		return v
	}
	return ""
}

func (s *Settings) getBool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.load()[key].(bool)
	return ok && v
}

func (s *Settings) set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	values[key] = value
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

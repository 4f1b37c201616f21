package socketio_test

import (
	"fmt"
	"testing"

	"github.com/maple-music/maple/internal/transport/socketio"
)

func TestRemoteLimiterLocalsNeverEvicted(t *testing.T) {
	l := socketio.NewRemoteLimiter(1)

	for i := 0; i < 5; i++ {
		if evicted := l.Add(fmt.Sprintf("local-%d", i), "127.0.0.1"); evicted != "" {
			t.Errorf("local connection evicted %s", evicted)
		}
	}
	if evicted := l.Add("local-v6", "::1"); evicted != "" {
		t.Errorf("IPv6 local connection evicted %s", evicted)
	}
}

func TestRemoteLimiterEvictsOldestRemote(t *testing.T) {
	l := socketio.NewRemoteLimiter(2)

	if evicted := l.Add("r1", "10.0.0.1"); evicted != "" {
		t.Errorf("unexpected eviction %s", evicted)
	}
	if evicted := l.Add("r2", "10.0.0.2"); evicted != "" {
		t.Errorf("unexpected eviction %s", evicted)
	}
	if evicted := l.Add("r3", "10.0.0.3"); evicted != "r1" {
		t.Errorf("evicted = %s, want r1", evicted)
	}
	if evicted := l.Add("r4", "10.0.0.4"); evicted != "r2" {
		t.Errorf("evicted = %s, want r2", evicted)
	}
}

func TestRemoteLimiterRemoveFreesSlot(t *testing.T) {
	l := socketio.NewRemoteLimiter(1)

	l.Add("r1", "10.0.0.1")
	l.Remove("r1")
	if evicted := l.Add("r2", "10.0.0.2"); evicted != "" {
		t.Errorf("evicted = %s after slot was freed, want none", evicted)
	}
}

func TestRemoteLimiterDuplicateAdd(t *testing.T) {
	l := socketio.NewRemoteLimiter(1)

	l.Add("r1", "10.0.0.1")
	if evicted := l.Add("r1", "10.0.0.1"); evicted != "" {
		t.Errorf("re-adding the same client evicted %s", evicted)
	}
}

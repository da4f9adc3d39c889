package phase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeWriter struct {
	mu       sync.Mutex
	phases   map[string]Phase
	joinable map[string]bool
	fail     bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{phases: make(map[string]Phase), joinable: make(map[string]bool)}
}

func (f *fakeWriter) SetGamePhase(_ context.Context, gameID string, p Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	f.phases[gameID] = p
	return nil
}

func (f *fakeWriter) SetGameJoinable(_ context.Context, gameID string, j bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	f.joinable[gameID] = j
	return nil
}

func TestAnyPhaseMayFollowAnyOther(t *testing.T) {
	w := newFakeWriter()
	c := NewController(w, zerolog.Nop())

	// No legal-transition validation: walk a deliberately out-of-order path.
	for _, p := range []Phase{Voting, Lobby, Ended, Assigning, Playing, Lobby} {
		if err := <-c.SetPhase(context.Background(), "g1", p); err != nil {
			t.Fatalf("SetPhase(%s) error: %v", p, err)
		}
		w.mu.Lock()
		got := w.phases["g1"]
		w.mu.Unlock()
		if got != p {
			t.Fatalf("stored phase = %s, want %s", got, p)
		}
	}
}

func TestUnknownPhaseRejected(t *testing.T) {
	c := NewController(newFakeWriter(), zerolog.Nop())
	if err := <-c.SetPhase(context.Background(), "g1", Phase("intermission")); err == nil {
		t.Fatal("unknown phase accepted")
	}
}

func TestWriteFailureSurfacesOnChannel(t *testing.T) {
	w := newFakeWriter()
	w.fail = true
	c := NewController(w, zerolog.Nop())

	// Fire-and-forget, but the result channel still reports the failure.
	if err := <-c.SetPhase(context.Background(), "g1", Playing); err == nil {
		t.Fatal("expected write failure on result channel")
	}
	if err := <-c.SetJoinable(context.Background(), "g1", false); err == nil {
		t.Fatal("expected joinable write failure on result channel")
	}
}

func TestJoinableToggle(t *testing.T) {
	w := newFakeWriter()
	c := NewController(w, zerolog.Nop())

	if err := <-c.SetJoinable(context.Background(), "g1", false); err != nil {
		t.Fatal(err)
	}
	w.mu.Lock()
	got := w.joinable["g1"]
	w.mu.Unlock()
	if got {
		t.Fatal("joinable not cleared")
	}
}

func TestPhaseValid(t *testing.T) {
	for _, p := range All() {
		if !p.Valid() {
			t.Errorf("%s reported invalid", p)
		}
	}
	if Phase("").Valid() || Phase("LOBBY").Valid() {
		t.Error("invalid phases reported valid")
	}
}

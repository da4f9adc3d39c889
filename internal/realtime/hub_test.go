package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func recvOne(t *testing.T, ch chan Message) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message within 1s")
		return Message{}
	}
}

func TestBroadcastReachesAllGameClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := h.Subscribe("g1", "p1")
	b := h.Subscribe("g1", "p2")

	h.Broadcast("g1", EventPhaseChanged, map[string]string{"phase": "playing"})

	for _, ch := range []chan Message{a, b} {
		m := recvOne(t, ch)
		if m.Event != EventPhaseChanged {
			t.Fatalf("event = %s", m.Event)
		}
		var payload map[string]string
		if err := json.Unmarshal([]byte(m.Data), &payload); err != nil {
			t.Fatal(err)
		}
		if payload["phase"] != "playing" {
			t.Fatalf("payload = %v", payload)
		}
	}
}

func TestBroadcastIsScopedToGame(t *testing.T) {
	h := NewHub(zerolog.Nop())
	g1 := h.Subscribe("g1", "p1")
	g2 := h.Subscribe("g2", "p2")

	h.Broadcast("g1", EventHintRevealed, nil)

	recvOne(t, g1)
	select {
	case m := <-g2:
		t.Fatalf("cross-game leak: %+v", m)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ch := h.Subscribe("g1", "p1")
	h.Unsubscribe("g1", ch)
	if n := h.ClientCount("g1"); n != 0 {
		t.Fatalf("client count = %d after unsubscribe", n)
	}

	h.Broadcast("g1", EventGameEnded, nil)
	select {
	case m := <-ch:
		t.Fatalf("message after unsubscribe: %+v", m)
	default:
	}

	// Double unsubscribe is a no-op.
	h.Unsubscribe("g1", ch)
}

func TestSlowClientDoesNotBlockOthers(t *testing.T) {
	h := NewHub(zerolog.Nop())
	slow := h.Subscribe("g1", "slow")
	fast := h.Subscribe("g1", "fast")

	// Fill the slow client's buffer so further sends would block.
	for i := 0; i < clientBuffer; i++ {
		h.Broadcast("g1", EventProgressUpdate, i)
		recvOne(t, fast)
	}

	done := make(chan struct{})
	go func() {
		h.Broadcast("g1", EventProgressUpdate, "final")
		close(done)
	}()

	// The fast client still gets the event; the broadcast returns after
	// timing out on the slow one. Either order may happen, so allow for
	// one full send timeout before each.
	select {
	case <-fast:
	case <-time.After(sendTimeout + time.Second):
		t.Fatal("fast client starved by slow client")
	}
	select {
	case <-done:
	case <-time.After(sendTimeout + time.Second):
		t.Fatal("broadcast blocked on slow client")
	}
	_ = slow
}

func TestConcurrentSubscribeBroadcast(t *testing.T) {
	h := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := h.Subscribe("g1", "p")
			h.Unsubscribe("g1", ch)
		}()
		go func() {
			defer wg.Done()
			h.Broadcast("g1", EventTeamAssigned, nil)
		}()
	}
	wg.Wait()
}

package hints

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func newTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	// Reveal set-union relies on concurrent writers sharing one connection
	// in the :memory: database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		t.Fatal(err)
	}
	schema, err := os.ReadFile("../../sql/001_init.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatal(err)
	}
	gameID := uuid.NewString()
	_, err = db.Exec(`INSERT INTO games (id, name, created_at) VALUES (?, ?, ?)`,
		gameID, "test", time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatal(err)
	}
	return NewLedger(db), gameID
}

func TestDefaultBookCoversEveryPuzzle(t *testing.T) {
	b, err := DefaultBook()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"archive/timestamps", "archive/contradiction", "archive/sectorlock",
		"well/pulse", "well/sigils", "well/regulator",
		"network/cipher", "network/routing", "network/identity",
		"nexus/final",
	}
	got := make(map[string]int)
	for _, e := range b.Hints {
		got[e.Puzzle] = len(e.Texts)
	}
	for _, key := range want {
		if got[key] == 0 {
			t.Errorf("book missing hints for %s", key)
		}
	}
}

func TestParseBookRejectsEmptyEntries(t *testing.T) {
	if _, err := ParseBook([]byte("hints:\n  - puzzle: x\n    texts: []\n")); err == nil {
		t.Fatal("empty texts accepted")
	}
	if _, err := ParseBook([]byte("hints:\n  - texts: [\"a\"]\n")); err == nil {
		t.Fatal("missing puzzle key accepted")
	}
}

func TestSeedAndList(t *testing.T) {
	l, gameID := newTestLedger(t)
	ctx := context.Background()
	book, err := DefaultBook()
	if err != nil {
		t.Fatal(err)
	}
	if err := l.SeedGame(ctx, gameID, book); err != nil {
		t.Fatal(err)
	}

	hs, err := l.ListByGame(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	var total int
	for _, e := range book.Hints {
		total += len(e.Texts)
	}
	if len(hs) != total {
		t.Fatalf("seeded %d hints, want %d", len(hs), total)
	}
	for _, h := range hs {
		if len(h.RevealedTo) != 0 {
			t.Fatalf("fresh hint %s already revealed to %v", h.ID, h.RevealedTo)
		}
	}
}

func TestRevealIsAdditiveAndIdempotent(t *testing.T) {
	l, gameID := newTestLedger(t)
	ctx := context.Background()
	book := &Book{Hints: []BookEntry{{Puzzle: "well/pulse", Texts: []string{"watch the lamp"}}}}
	if err := l.SeedGame(ctx, gameID, book); err != nil {
		t.Fatal(err)
	}
	hs, err := l.ListByGame(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	hintID := hs[0].ID

	if err := l.Reveal(ctx, hintID, "team-a"); err != nil {
		t.Fatal(err)
	}
	// Repeat reveal is a no-op.
	if err := l.Reveal(ctx, hintID, "team-a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Reveal(ctx, hintID, "team-b"); err != nil {
		t.Fatal(err)
	}

	hs, err = l.ListByGame(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if got := hs[0].RevealedTo; len(got) != 2 || got[0] != "team-a" || got[1] != "team-b" {
		t.Fatalf("revealed-to = %v, want [team-a team-b]", got)
	}

	ok, err := l.RevealedTo(ctx, hintID, "team-a")
	if err != nil || !ok {
		t.Fatalf("RevealedTo(team-a) = %v, %v", ok, err)
	}
	ok, err = l.RevealedTo(ctx, hintID, "team-c")
	if err != nil || ok {
		t.Fatalf("RevealedTo(team-c) = %v, %v", ok, err)
	}
}

func TestRevealUnknownHint(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.Reveal(context.Background(), "no-such-hint", "team-a"); err != sql.ErrNoRows {
		t.Fatalf("reveal of unknown hint: %v, want ErrNoRows", err)
	}
}

func TestConcurrentRevealsUnion(t *testing.T) {
	l, gameID := newTestLedger(t)
	ctx := context.Background()
	book := &Book{Hints: []BookEntry{{Puzzle: "network/cipher", Texts: []string{"pips"}}}}
	if err := l.SeedGame(ctx, gameID, book); err != nil {
		t.Fatal(err)
	}
	hs, err := l.ListByGame(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	hintID := hs[0].ID

	teams := []string{"team-a", "team-b", "team-c", "team-d"}
	var wg sync.WaitGroup
	errs := make(chan error, len(teams))
	for _, team := range teams {
		wg.Add(1)
		go func(team string) {
			defer wg.Done()
			errs <- l.Reveal(ctx, hintID, team)
		}(team)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	hs, err = l.ListByGame(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hs[0].RevealedTo) != len(teams) {
		t.Fatalf("union lost writes: %v", hs[0].RevealedTo)
	}
}

func TestListForTeam(t *testing.T) {
	l, gameID := newTestLedger(t)
	ctx := context.Background()
	book := &Book{Hints: []BookEntry{
		{Puzzle: "archive/timestamps", Texts: []string{"first", "second"}},
	}}
	if err := l.SeedGame(ctx, gameID, book); err != nil {
		t.Fatal(err)
	}
	hs, err := l.ListByGame(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Reveal(ctx, hs[0].ID, "team-a"); err != nil {
		t.Fatal(err)
	}

	visible, err := l.ListForTeam(ctx, gameID, "team-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 1 || visible[0].Ordinal != 0 {
		t.Fatalf("team-a sees %d hints, want the first only", len(visible))
	}
	none, err := l.ListForTeam(ctx, gameID, "team-b")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("team-b sees %d hints, want none", len(none))
	}
}

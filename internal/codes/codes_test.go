package codes

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vaultofechoes/go-server/internal/store"
)

type fakeInserter struct {
	existing map[string]bool
	inserted []string
	failWith error
}

func (f *fakeInserter) InsertCode(_ context.Context, _, code string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if f.existing[code] {
		return store.ErrCodeExists
	}
	if f.existing == nil {
		f.existing = make(map[string]bool)
	}
	f.existing[code] = true
	f.inserted = append(f.inserted, code)
	return nil
}

type scriptedMinter struct {
	codes []string
	errs  []error
	calls int
}

func (m *scriptedMinter) MintCode(_ context.Context) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	return m.codes[i], nil
}

func TestValid(t *testing.T) {
	for _, ok := range []string{"COSMIC-BEACON", "A-B", "IRON-LANTERN"} {
		if !Valid(ok) {
			t.Errorf("Valid(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "cosmic-beacon", "COSMIC", "COSMIC-", "-BEACON", "COSMIC-BEA CON", "COSMIC-BEACON-X", "C0SMIC-BEACON"} {
		if Valid(bad) {
			t.Errorf("Valid(%q) = true", bad)
		}
	}
}

func TestWordPairShape(t *testing.T) {
	m := WordPair{}
	for i := 0; i < 50; i++ {
		code, err := m.MintCode(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !Valid(code) {
			t.Fatalf("minted malformed code %q", code)
		}
	}
}

func TestMintRetriesOnCollision(t *testing.T) {
	ins := &fakeInserter{existing: map[string]bool{"STAR-DUST": true}}
	m := &scriptedMinter{codes: []string{"STAR-DUST", "STAR-DUST", "VOID-WALKER"}}
	svc := NewService(nil, m, ins, zerolog.Nop())

	code, err := svc.Mint(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if code != "VOID-WALKER" {
		t.Fatalf("minted %q, want VOID-WALKER", code)
	}
	if m.calls != 3 {
		t.Fatalf("minter called %d times, want 3", m.calls)
	}
}

func TestMintExhaustsRetries(t *testing.T) {
	ins := &fakeInserter{existing: map[string]bool{"STAR-DUST": true}}
	repeats := make([]string, maxMintAttempts)
	for i := range repeats {
		repeats[i] = "STAR-DUST"
	}
	svc := NewService(nil, &scriptedMinter{codes: repeats}, ins, zerolog.Nop())

	if _, err := svc.Mint(context.Background(), "g1"); err == nil {
		t.Fatal("expected exhaustion error")
	}
}

func TestMintFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &scriptedMinter{codes: []string{""}, errs: []error{errors.New("quota")}}
	fallback := &scriptedMinter{codes: []string{"GLASS-ORBIT"}}
	ins := &fakeInserter{}
	svc := NewService(primary, fallback, ins, zerolog.Nop())

	code, err := svc.Mint(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if code != "GLASS-ORBIT" {
		t.Fatalf("minted %q, want fallback code", code)
	}
}

func TestMintStoreFailureIsFatal(t *testing.T) {
	ins := &fakeInserter{failWith: errors.New("disk full")}
	svc := NewService(nil, &scriptedMinter{codes: []string{"IRON-LANTERN"}}, ins, zerolog.Nop())
	if _, err := svc.Mint(context.Background(), "g1"); err == nil {
		t.Fatal("store failure swallowed")
	}
}

func TestCleanCode(t *testing.T) {
	cases := map[string]string{
		"COSMIC-BEACON":           "COSMIC-BEACON",
		" cosmic-beacon \n":       "COSMIC-BEACON",
		"```\nCOSMIC-BEACON\n```": "COSMIC-BEACON",
		"`COSMIC-BEACON`":         "COSMIC-BEACON",
		"\"COSMIC-BEACON\"":       "COSMIC-BEACON",
	}
	for in, want := range cases {
		if got := cleanCode(in); got != want {
			t.Errorf("cleanCode(%q) = %q, want %q", in, got, want)
		}
	}
}

package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vaultofechoes/go-server/internal/codes"
	"github.com/vaultofechoes/go-server/internal/hints"
	"github.com/vaultofechoes/go-server/internal/httpserver"
	"github.com/vaultofechoes/go-server/internal/oracle"
	"github.com/vaultofechoes/go-server/internal/phase"
	"github.com/vaultofechoes/go-server/internal/realtime"
	"github.com/vaultofechoes/go-server/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DB_PATH", "./data/vault.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	book, err := hints.DefaultBook()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load hint book")
	}

	st := store.NewSQLite(db)
	hub := realtime.NewHub(log.Logger)
	ledger := hints.NewLedger(db)
	phases := phase.NewController(st, log.Logger)

	// Gemini powers code minting and the contradiction oracle when a key is
	// configured. Minting falls back to word pairs; the oracle stays offline.
	var primary codes.Minter
	var checker oracle.Checker
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		g, err := codes.NewGemini(context.Background(), key)
		if err != nil {
			log.Warn().Err(err).Msg("gemini unavailable, minting from word lists only")
		} else {
			defer g.Close()
			primary = g
		}
		o, err := oracle.NewGemini(context.Background(), key)
		if err != nil {
			log.Warn().Err(err).Msg("gemini unavailable, contradiction oracle offline")
		} else {
			defer o.Close()
			checker = o
		}
	}
	minter := codes.NewService(primary, codes.WordPair{}, st, log.Logger)

	srv := httpserver.New(st, db, hub, ledger, minter, phases, book, checker)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting vault-of-echoes server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

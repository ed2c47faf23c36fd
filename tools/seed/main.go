package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn            string
	baseURL        string
	token          string
	buildings      int
	floors         int
	flatsPerFloor  int
	createSchema   bool
	seedResidences bool
	generateMonth  string
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.buildings <= 0 || cfg.floors <= 0 || cfg.flatsPerFloor <= 0 {
		log.Fatal("buildings, floors and flats-per-floor must be > 0")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if cfg.createSchema {
		log.Printf("creating schema")
		if err := createSchema(ctx, db); err != nil {
			log.Fatalf("create schema: %v", err)
		}
	}

	if cfg.seedResidences {
		count := cfg.buildings * cfg.floors * cfg.flatsPerFloor
		log.Printf("seeding residences: buildings=%d floors=%d flats=%d total=%d", cfg.buildings, cfg.floors, cfg.flatsPerFloor, count)
		if err := seedResidences(ctx, db, cfg.buildings, cfg.floors, cfg.flatsPerFloor); err != nil {
			log.Fatalf("seed residences: %v", err)
		}
	}

	if cfg.generateMonth != "" {
		if cfg.baseURL == "" {
			log.Fatal("base-url is required when generate-month is set")
		}
		log.Printf("generating obligations: month=%s", cfg.generateMonth)
		if err := generateObligations(ctx, cfg.baseURL, cfg.token, cfg.generateMonth); err != nil {
			log.Fatalf("generate obligations: %v", err)
		}
	}

	log.Printf("seed completed")
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.baseURL, "base-url", envOrDefault("BASE_URL", ""), "API base URL for obligation generation")
	flag.StringVar(&cfg.token, "token", envOrDefault("AUTH_TOKEN", ""), "bearer token for API calls")
	flag.IntVar(&cfg.buildings, "buildings", envOrInt("BUILDINGS", 2), "number of buildings")
	flag.IntVar(&cfg.floors, "floors", envOrInt("FLOORS", 4), "floors per building")
	flag.IntVar(&cfg.flatsPerFloor, "flats-per-floor", envOrInt("FLATS_PER_FLOOR", 4), "flats per floor")
	flag.BoolVar(&cfg.createSchema, "create-schema", envOrBool("CREATE_SCHEMA", true), "create tables when missing")
	flag.BoolVar(&cfg.seedResidences, "seed-residences", envOrBool("SEED_RESIDENCES", true), "seed the residence roster")
	flag.StringVar(&cfg.generateMonth, "generate-month", envOrDefault("GENERATE_MONTH", ""), "billing period to generate via API (YYYY-MM)")
	flag.Parse()
	return cfg
}

func createSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS residences (
	id TEXT PRIMARY KEY,
	building TEXT NOT NULL DEFAULT '',
	floor TEXT NOT NULL DEFAULT '',
	flat_label TEXT NOT NULL,
	owner_name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE
)`,
		`CREATE TABLE IF NOT EXISTS maintenance_obligations (
	id TEXT PRIMARY KEY,
	residence_id TEXT NOT NULL,
	flat_label TEXT NOT NULL,
	resident_name TEXT NOT NULL DEFAULT '',
	month INTEGER NOT NULL,
	year INTEGER NOT NULL,
	amount NUMERIC(12,2) NOT NULL,
	late_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
	due_date TIMESTAMPTZ NOT NULL,
	paid_date TIMESTAMPTZ,
	status TEXT NOT NULL,
	amount_paid NUMERIC(12,2) NOT NULL DEFAULT 0,
	payment_method TEXT,
	receipt_number TEXT,
	notes TEXT,
	paid_in_full BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT maintenance_obligations_period_key UNIQUE (residence_id, month, year)
)`,
		`CREATE TABLE IF NOT EXISTS charge_lines (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	amount NUMERIC(12,2) NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS charge_line_config (
	id INTEGER PRIMARY KEY,
	manual_total NUMERIC(12,2)
)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL DEFAULT '',
	resource_id TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	payload_digest TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}

func seedResidences(ctx context.Context, db *sql.DB, buildings, floors, flatsPerFloor int) error {
	const insertSQL = `
INSERT INTO residences (id, building, floor, flat_label, owner_name, phone, active)
VALUES ($1,$2,$3,$4,$5,$6,TRUE)
ON CONFLICT (id) DO NOTHING`

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	seeded := 0
	for b := 0; b < buildings; b++ {
		building := fmt.Sprintf("%c", 'A'+b)
		for f := 1; f <= floors; f++ {
			for flat := 1; flat <= flatsPerFloor; flat++ {
				flatLabel := fmt.Sprintf("%s-%d%02d", building, f, flat)
				owner := fmt.Sprintf("Resident %s", flatLabel)
				phone := fmt.Sprintf("98%08d", seeded+1)
				if _, err := stmt.ExecContext(
					ctx,
					uuid.NewString(),
					building,
					strconv.Itoa(f),
					flatLabel,
					owner,
					phone,
				); err != nil {
					_ = stmt.Close()
					_ = tx.Rollback()
					return err
				}
				seeded++
			}
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("seeded %d residences", seeded)
	return nil
}

func generateObligations(ctx context.Context, baseURL, token, month string) error {
	period, err := time.Parse("2006-01", strings.TrimSpace(month))
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", month, err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	baseURL = strings.TrimRight(baseURL, "/")
	body := map[string]any{
		"month": int(period.Month()),
		"year":  period.Year(),
	}
	payload, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/billing/generate", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("generate failed: http %d", resp.StatusCode)
	}
	var respBody struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return err
	}
	log.Printf("generated obligations: created=%d skipped=%d", respBody.Created, respBody.Skipped)
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envOrBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

// Package repository implements C7: stable storage of Action, Intent,
// Transaction and their join tables, plus the deterministic rollup
// aggregation of §4.7. Connection/migration handling is grounded on the
// teacher's dual postgres/sqlite DatabaseConfig.
package repository

import (
	"embed"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/CashierHQ/cashier-sub001/config"
	"github.com/CashierHQ/cashier-sub001/domain"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

// Connect opens a gorm connection per cnf.Driver, applying migrations
// first (postgres) or AutoMigrate (sqlite), mirroring the teacher's
// ConnectToDB dialect split.
func Connect(cnf config.DatabaseConfig) (*gorm.DB, error) {
	switch cnf.Driver {
	case "postgres":
		return connectPostgres(cnf)
	case "sqlite", "":
		return connectSqlite(cnf)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cnf.Driver)
	}
}

// ParseConnectionString mirrors the teacher's ParseConnectionString,
// accepting either a file: sqlite DSN or a postgres:// URL.
func ParseConnectionString(connStr string) (config.DatabaseConfig, error) {
	if strings.HasPrefix(connStr, "file:") {
		parts := strings.SplitN(connStr[5:], "?", 2)
		return config.DatabaseConfig{Name: parts[0], Driver: "sqlite", Retries: 1}, nil
	}

	parsed, err := url.Parse(connStr)
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("invalid connection string: %w", err)
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return config.DatabaseConfig{}, fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}

	username, password := "", ""
	if parsed.User != nil {
		username = parsed.User.Username()
		password, _ = parsed.User.Password()
	}
	port := parsed.Port()
	if port == "" {
		port = "5432"
	}
	retries := 5
	if r := parsed.Query().Get("retries"); r != "" {
		if v, err := strconv.Atoi(r); err == nil {
			retries = v
		}
	}

	return config.DatabaseConfig{
		Name:     strings.TrimPrefix(parsed.Path, "/"),
		Schema:   parsed.Query().Get("search_path"),
		Driver:   "postgres",
		Username: username,
		Password: password,
		Host:     parsed.Hostname(),
		Port:     port,
		Retries:  retries,
	}, nil
}

func connectPostgres(cnf config.DatabaseConfig) (*gorm.DB, error) {
	if err := ensureSchema(cnf); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	if err := migratePostgres(cnf); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	dsn, err := postgresDSN(cnf)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{TablePrefix: schemaPrefix(cnf.Schema)},
	})
}

func connectSqlite(cnf config.DatabaseConfig) (*gorm.DB, error) {
	dsn := "file::memory:?cache=shared"
	if cnf.Name != "" {
		dsn = fmt.Sprintf("file:%s?cache=shared", cnf.Name)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{TablePrefix: schemaPrefix(cnf.Schema)},
	})
	if err != nil {
		return nil, err
	}
	if err := autoMigrateSqlite(db); err != nil {
		return nil, err
	}
	return db, nil
}

func schemaPrefix(s string) string {
	if s == "" {
		return ""
	}
	return s + "."
}

func postgresDSN(cnf config.DatabaseConfig) (string, error) {
	dsn := fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		cnf.Username, cnf.Password, cnf.Host, cnf.Port, cnf.Name)
	if cnf.Schema != "" {
		dsn = fmt.Sprintf("%s search_path=%s", dsn, cnf.Schema)
	}
	return dsn, nil
}

func ensureSchema(cnf config.DatabaseConfig) error {
	if cnf.Schema == "" {
		return nil
	}
	dbConf := cnf
	dbConf.Schema = ""
	dsn, err := postgresDSN(dbConf)
	if err != nil {
		return err
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	var count int
	if err := db.Get(&count, "SELECT count(*) FROM information_schema.schemata WHERE schema_name=$1", cnf.Schema); err != nil {
		return fmt.Errorf("checking schema existence: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", cnf.Schema))
	return err
}

func migratePostgres(cnf config.DatabaseConfig) error {
	dsn, err := postgresDSN(cnf)
	if err != nil {
		return err
	}
	db, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if cnf.Schema != "" {
		if _, err := db.Exec(fmt.Sprintf("SET search_path TO %s", cnf.Schema)); err != nil {
			return fmt.Errorf("failed to set search path: %w", err)
		}
	}

	goose.SetBaseFS(embedMigrations)
	return goose.Up(db, "migrations/postgres")
}

func autoMigrateSqlite(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Link{},
		&domain.Action{},
		&domain.Intent{},
		&domain.Transaction{},
		&domain.ActionIntent{},
		&domain.IntentTransaction{},
		&domain.LinkAction{},
		&domain.UserAction{},
		&domain.UserLink{},
		&domain.UserWallet{},
		&domain.Settings{},
		&LedgerEntry{},
	)
}

// Package mpostgres is the primary/replica postgres connection hub, running
// schema migrations against the primary on boot.
package mpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Connection is a hub which deals with postgres primary/replica connections
// and runs migrations on boot.
type Connection struct {
	ConnectionStringPrimary string
	ConnectionStringReplica string
	PrimaryDBName           string
	MigrationsPath          string
	ConnectionDB            *dbresolver.DB
	Connected               bool
}

// Connect opens the primary and replica pools, applies pending migrations
// against the primary, and wraps both in a load-balancing dbresolver.DB.
func (pc *Connection) Connect() error {
	fmt.Println("connecting to primary and replica databases...")

	dbPrimary, err := sql.Open("pgx", pc.ConnectionStringPrimary)
	if err != nil {
		log.Printf("failed to open primary database: %v", err)
		return err
	}

	dbReplica, err := sql.Open("pgx", pc.ConnectionStringReplica)
	if err != nil {
		log.Printf("failed to open replica database: %v", err)
		return err
	}

	connectionDB := dbresolver.New(
		dbresolver.WithPrimaryDBs(dbPrimary),
		dbresolver.WithReplicaDBs(dbReplica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB))

	if pc.MigrationsPath != "" {
		if err := pc.migrate(dbPrimary); err != nil {
			return err
		}
	}

	if err := connectionDB.Ping(); err != nil {
		log.Printf("postgres ping failed: %v", err)
		return err
	}

	pc.Connected = true
	pc.ConnectionDB = &connectionDB

	fmt.Println("connected to postgres")

	return nil
}

func (pc *Connection) migrate(dbPrimary *sql.DB) error {
	migrationsPath, err := filepath.Abs(pc.MigrationsPath)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}

	primaryURL, err := url.Parse(filepath.ToSlash(migrationsPath))
	if err != nil {
		return fmt.Errorf("parse migrations url: %w", err)
	}

	primaryURL.Scheme = "file"

	driver, err := postgres.WithInstance(dbPrimary, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          pc.PrimaryDBName,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("build migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(primaryURL.String(), pc.PrimaryDBName, driver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// GetDB returns the pooled connection, connecting lazily if necessary.
func (pc *Connection) GetDB(_ context.Context) (dbresolver.DB, error) {
	if pc.ConnectionDB == nil {
		if err := pc.Connect(); err != nil {
			return nil, err
		}
	}

	return *pc.ConnectionDB, nil
}
</content>

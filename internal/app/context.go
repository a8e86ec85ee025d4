package app

import (
	"database/sql"
	"fmt"

	"pactline/internal/config"
	"pactline/internal/db"
	"pactline/internal/engine"
	"pactline/internal/migrate"
)

// Environment bundles everything a command needs to talk to a workspace.
type Environment struct {
	Workspace string
	DB        *sql.DB
	Engine    engine.Engine
	Config    *config.Config
}

// Open resolves the workspace: opens (or creates) its database, runs pending
// migrations, and loads pactline.yml. A missing config file falls back to
// defaults so read-only commands work in a fresh directory.
func Open(workspace string) (*Environment, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open workspace db: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("pactline")
	}
	return &Environment{
		Workspace: workspace,
		DB:        conn,
		Engine:    engine.New(conn, cfg),
		Config:    cfg,
	}, nil
}

func (env *Environment) Close() error {
	if env == nil || env.DB == nil {
		return nil
	}
	return env.DB.Close()
}

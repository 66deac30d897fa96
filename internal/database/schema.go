package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS template (
	    id              CHAR(36)      NOT NULL PRIMARY KEY,
	    name            VARCHAR(128)  NOT NULL UNIQUE,
	    author          VARCHAR(128)  NOT NULL,
	    author_link     VARCHAR(512)  NOT NULL,
	    category        VARCHAR(64)   NOT NULL,
	    time            DATETIME      NOT NULL,
	    dir_path        VARCHAR(1024) NOT NULL,
	    preview_mobile  VARCHAR(1024) NOT NULL,
	    preview_desktop VARCHAR(1024) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS site (
	    id          CHAR(36)      NOT NULL PRIMARY KEY,
	    owner_id    VARCHAR(64)   NOT NULL,
	    dir_path    VARCHAR(1024) NOT NULL,
	    name        VARCHAR(128)  NOT NULL,
	    category    VARCHAR(64)   NOT NULL,
	    created_at  DATETIME      NOT NULL,
	    KEY idx_site_owner (owner_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS site_binding (
	    site_id   CHAR(36)  NOT NULL,
	    position  INT       NOT NULL,
	    selector  TEXT      NULL,
	    value     TEXT      NULL,
	    link      TEXT      NULL,
	    PRIMARY KEY (site_id, position),
	    CONSTRAINT fk_binding_site FOREIGN KEY (site_id)
	        REFERENCES site (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the template, site, and site_binding tables when
// missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	zap.S().Infow("schema ready", "statements", len(schema))
	return nil
}

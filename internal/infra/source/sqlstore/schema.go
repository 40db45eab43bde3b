// Package sqlstore maps catalog snapshots onto relational tables shared by
// the sqlite and postgres sources.
package sqlstore

import "fmt"

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name string
	// Bind returns the placeholder for the nth (1-based) argument.
	Bind func(n int) string
	DDL  []string
}

// SQLite targets modernc.org/sqlite.
var SQLite = Dialect{
	Name: "sqlite",
	Bind: func(int) string { return "?" },
	DDL: []string{
		`CREATE TABLE IF NOT EXISTS types (id INTEGER PRIMARY KEY, group_id INTEGER NOT NULL, category_id INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS type_attributes (type_id INTEGER NOT NULL, attr_id INTEGER NOT NULL, value REAL NOT NULL, PRIMARY KEY (type_id, attr_id))`,
		`CREATE TABLE IF NOT EXISTS type_effects (type_id INTEGER NOT NULL, position INTEGER NOT NULL, effect_id INTEGER NOT NULL, PRIMARY KEY (type_id, position))`,
		`CREATE TABLE IF NOT EXISTS attributes (id INTEGER PRIMARY KEY, max_attr_id INTEGER NOT NULL, default_value REAL, high_is_good INTEGER NOT NULL, stackable INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS effects (id INTEGER PRIMARY KEY, category INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS modifiers (effect_id INTEGER NOT NULL, position INTEGER NOT NULL, filter TEXT NOT NULL, domain TEXT NOT NULL, group_id INTEGER NOT NULL, skill_id INTEGER NOT NULL, target_attr INTEGER NOT NULL, operator TEXT NOT NULL, source_attr INTEGER NOT NULL, procedure TEXT NOT NULL, PRIMARY KEY (effect_id, position))`,
	},
}

// Postgres targets the pgx database/sql driver.
var Postgres = Dialect{
	Name: "postgres",
	Bind: func(n int) string { return fmt.Sprintf("$%d", n) },
	DDL: []string{
		`CREATE TABLE IF NOT EXISTS types (id BIGINT PRIMARY KEY, group_id BIGINT NOT NULL, category_id BIGINT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS type_attributes (type_id BIGINT NOT NULL, attr_id BIGINT NOT NULL, value DOUBLE PRECISION NOT NULL, PRIMARY KEY (type_id, attr_id))`,
		`CREATE TABLE IF NOT EXISTS type_effects (type_id BIGINT NOT NULL, position INTEGER NOT NULL, effect_id BIGINT NOT NULL, PRIMARY KEY (type_id, position))`,
		`CREATE TABLE IF NOT EXISTS attributes (id BIGINT PRIMARY KEY, max_attr_id BIGINT NOT NULL, default_value DOUBLE PRECISION, high_is_good BOOLEAN NOT NULL, stackable BOOLEAN NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS effects (id BIGINT PRIMARY KEY, category SMALLINT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS modifiers (effect_id BIGINT NOT NULL, position INTEGER NOT NULL, filter TEXT NOT NULL, domain TEXT NOT NULL, group_id BIGINT NOT NULL, skill_id BIGINT NOT NULL, target_attr BIGINT NOT NULL, operator TEXT NOT NULL, source_attr BIGINT NOT NULL, procedure TEXT NOT NULL, PRIMARY KEY (effect_id, position))`,
	},
}

// tables lists every catalog table in load order.
var tables = []string{"attributes", "effects", "modifiers", "types", "type_attributes", "type_effects"}

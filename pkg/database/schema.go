package database

import "strings"

// The same schema runs on Postgres and on SQLite (tests); only the
// auto-increment primary key syntax differs.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS accounts (
	id __PK__,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	plan TEXT NOT NULL DEFAULT 'free',
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	max_forms BIGINT,
	max_leads BIGINT,
	max_storage_bytes BIGINT,
	daily_test_limit BIGINT,
	stripe_customer_id TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS forms (
	id __PK__,
	account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	lead_count BIGINT NOT NULL DEFAULT 0,
	want_image BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS forms_account_idx ON forms(account_id);

CREATE TABLE IF NOT EXISTS leads (
	id __PK__,
	uuid TEXT NOT NULL UNIQUE,
	form_id BIGINT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	email TEXT NOT NULL,
	url TEXT NOT NULL,
	result_text TEXT NOT NULL DEFAULT '',
	result_image_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	custom_fields TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS leads_form_email_unique ON leads(form_id, lower(email));

CREATE TABLE IF NOT EXISTS usage_counters (
	account_id BIGINT NOT NULL,
	day TEXT NOT NULL,
	test_count BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (account_id, day)
);

CREATE TABLE IF NOT EXISTS knowledge_files (
	id __PK__,
	account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	form_id BIGINT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	storage_key TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// schemaFor returns the schema DDL for the given driver
func schemaFor(driver string) string {
	pk := "BIGSERIAL PRIMARY KEY"
	if driver == "sqlite3" {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return strings.ReplaceAll(schemaTemplate, "__PK__", pk)
}

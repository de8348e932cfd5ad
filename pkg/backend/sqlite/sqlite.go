// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

//go:embed migrations/001_initial.sql
var initialMigration string

// Resource kinds stored in the resources table.
const (
	KindLifecyclePolicy   = "lifecycle_policy"
	KindComponentTemplate = "component_template"
	KindIndexTemplate     = "index_template"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Backend stores resources in SQLite.
type Backend struct {
	db *sql.DB
}

var (
	_ backend.Backend        = (*Backend)(nil)
	_ backend.DocumentWriter = (*Backend)(nil)
	_ backend.Closer         = (*Backend)(nil)
)

// Open opens or creates the database at dsn and applies the schema.
func Open(dsn string) (*Backend, error) {
	if dsn != MemoryDSN {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes writes and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	if dsn == MemoryDSN {
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if _, err := db.Exec(initialMigration); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) put(ctx context.Context, kind, name string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", kind, name, err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO resources (kind, name, body, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (kind, name) DO UPDATE SET
			body = excluded.body,
			updated_at = datetime('now')
	`, kind, name, string(data))
	if err != nil {
		return fmt.Errorf("put %s %s: %w", kind, name, err)
	}
	return nil
}

// get decodes a stored resource into out.
func (b *Backend) get(ctx context.Context, kind, name string, out any) error {
	var body string
	err := b.db.QueryRowContext(ctx,
		`SELECT body FROM resources WHERE kind = ? AND name = ?`, kind, name).Scan(&body)
	if stderrors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, name, backend.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", kind, name, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, name, err)
	}
	return nil
}

// PutLifecyclePolicy implements backend.Backend.
func (b *Backend) PutLifecyclePolicy(ctx context.Context, policy resource.LifecyclePolicy) error {
	return b.put(ctx, KindLifecyclePolicy, policy.Name, policy)
}

// PutComponentTemplate implements backend.Backend.
func (b *Backend) PutComponentTemplate(ctx context.Context, tmpl resource.ComponentTemplate) error {
	return b.put(ctx, KindComponentTemplate, tmpl.Name, tmpl)
}

// PutIndexTemplate implements backend.Backend. Every composed component
// template must already exist.
func (b *Backend) PutIndexTemplate(ctx context.Context, tmpl resource.IndexTemplate) error {
	for _, ref := range tmpl.ComposedOf {
		if err := b.get(ctx, KindComponentTemplate, ref, nil); err != nil {
			return fmt.Errorf("index template %s references component template %s: %w", tmpl.Name, ref, err)
		}
	}
	return b.put(ctx, KindIndexTemplate, tmpl.Name, tmpl)
}

// IndexTemplate returns a stored index template.
func (b *Backend) IndexTemplate(ctx context.Context, name string) (resource.IndexTemplate, error) {
	var tmpl resource.IndexTemplate
	if err := b.get(ctx, KindIndexTemplate, name, &tmpl); err != nil {
		return resource.IndexTemplate{}, err
	}
	tmpl.Name = name
	return tmpl, nil
}

// SetIndexTemplatesFieldLimit implements backend.Backend.
func (b *Backend) SetIndexTemplatesFieldLimit(ctx context.Context, componentTemplate string, limit int) error {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name, body FROM resources WHERE kind = ? ORDER BY name`, KindIndexTemplate)
	if err != nil {
		return fmt.Errorf("list index templates: %w", err)
	}

	var update []resource.IndexTemplate
	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			rows.Close()
			return fmt.Errorf("scan index template: %w", err)
		}
		var tmpl resource.IndexTemplate
		if err := json.Unmarshal([]byte(body), &tmpl); err != nil {
			rows.Close()
			return fmt.Errorf("decode index template %s: %w", name, err)
		}
		if slices.Contains(tmpl.ComposedOf, componentTemplate) {
			tmpl.Name = name
			update = append(update, tmpl)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("list index templates: %w", err)
	}
	rows.Close()

	for _, tmpl := range update {
		if tmpl.Template.Settings == nil {
			tmpl.Template.Settings = map[string]any{}
		}
		tmpl.Template.Settings[resource.SettingTotalFieldsLimit] = limit
		if err := b.put(ctx, KindIndexTemplate, tmpl.Name, tmpl); err != nil {
			return err
		}
	}
	return nil
}

// GetAliasedIndices implements backend.Backend.
func (b *Backend) GetAliasedIndices(ctx context.Context, alias string) ([]resource.AliasedIndex, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT index_name, is_write_index
		FROM aliases
		WHERE alias = ?
		ORDER BY index_name
	`, alias)
	if err != nil {
		return nil, fmt.Errorf("get aliases %s: %w", alias, err)
	}
	defer rows.Close()

	var out []resource.AliasedIndex
	for rows.Next() {
		var idx resource.AliasedIndex
		if err := rows.Scan(&idx.Index, &idx.IsWriteIndex); err != nil {
			return nil, fmt.Errorf("scan alias %s: %w", alias, err)
		}
		idx.Alias = alias
		out = append(out, idx)
	}
	return out, rows.Err()
}

// CreateIndex implements backend.Backend.
func (b *Backend) CreateIndex(ctx context.Context, idx resource.ConcreteIndex) error {
	settings, err := json.Marshal(idx.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings of %s: %w", idx.Name, err)
	}
	if idx.Settings == nil {
		settings = []byte("{}")
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM indices WHERE name = ?`, idx.Name).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("index %s: %w", idx.Name, backend.ErrAlreadyExists)
	case !stderrors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check index %s: %w", idx.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indices (name, settings) VALUES (?, ?)`, idx.Name, string(settings)); err != nil {
		return fmt.Errorf("create index %s: %w", idx.Name, err)
	}

	for alias, spec := range idx.Aliases {
		if spec.IsWriteIndex {
			var current string
			err := tx.QueryRowContext(ctx,
				`SELECT index_name FROM aliases WHERE alias = ? AND is_write_index = 1`, alias).Scan(&current)
			if err == nil {
				return fmt.Errorf("alias %s already has write index %s", alias, current)
			}
			if !stderrors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("check alias %s: %w", alias, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO aliases (alias, index_name, is_write_index) VALUES (?, ?, ?)`,
			alias, idx.Name, spec.IsWriteIndex); err != nil {
			return fmt.Errorf("add alias %s to %s: %w", alias, idx.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index %s: %w", idx.Name, err)
	}
	return nil
}

// IndexSettings returns the settings of an index.
func (b *Backend) IndexSettings(ctx context.Context, index string) (map[string]any, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT settings FROM indices WHERE name = ?`, index).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index %s: %w", index, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get index %s: %w", index, err)
	}
	settings := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, fmt.Errorf("decode settings of %s: %w", index, err)
	}
	return settings, nil
}

// UpdateIndexSettings implements backend.Backend.
func (b *Backend) UpdateIndexSettings(ctx context.Context, index string, totalFieldsLimit int) error {
	settings, err := b.IndexSettings(ctx, index)
	if err != nil {
		return err
	}
	settings[resource.SettingTotalFieldsLimit] = totalFieldsLimit

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings of %s: %w", index, err)
	}
	if _, err := b.db.ExecContext(ctx,
		`UPDATE indices SET settings = ? WHERE name = ?`, string(data), index); err != nil {
		return fmt.Errorf("update settings of %s: %w", index, err)
	}
	return nil
}

// IndexDocuments implements backend.DocumentWriter.
func (b *Backend) IndexDocuments(ctx context.Context, alias string, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var index string
	err = tx.QueryRowContext(ctx,
		`SELECT index_name FROM aliases WHERE alias = ? AND is_write_index = 1`, alias).Scan(&index)
	if stderrors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no write index for alias %s: %w", alias, backend.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("resolve alias %s: %w", alias, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (index_name, body) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, index, string(data)); err != nil {
			return fmt.Errorf("insert document into %s: %w", index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit documents: %w", err)
	}
	return nil
}

// Documents returns the documents stored in an index, oldest first.
func (b *Backend) Documents(ctx context.Context, index string) ([]map[string]any, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE index_name = ? ORDER BY id`, index)
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", index, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc := map[string]any{}
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

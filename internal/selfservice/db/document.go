package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	e "github.com/gartstein/selfservice/internal/selfservice/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Collection identifies a JSON array column owned by a keyed row.
// Counter, when set, names the integer column holding the last issued item id.
type Collection struct {
	Table   string
	Key     string
	Column  string
	Counter string
}

// IDPolicy reads and assigns the integer id of a collection item.
type IDPolicy[T any] struct {
	Get func(T) int
	Set func(*T, int)
}

// ReadDocument decodes a JSON column of the row keyed by key.
// It returns e.ErrNotFound when the row is missing and a nil document when the column is NULL.
func ReadDocument[T any](ctx context.Context, tx *gorm.DB, table, keyColumn, key, column string) (*T, error) {
	return readDocument[T](tx.WithContext(ctx), table, keyColumn, key, column, false)
}

// ReadDocumentForUpdate is ReadDocument holding a row lock until the surrounding transaction ends.
func ReadDocumentForUpdate[T any](ctx context.Context, tx *gorm.DB, table, keyColumn, key, column string) (*T, error) {
	return readDocument[T](tx.WithContext(ctx), table, keyColumn, key, column, true)
}

func readDocument[T any](tx *gorm.DB, table, keyColumn, key, column string, lock bool) (*T, error) {
	var raw sql.NullString
	if err := ownerRow(tx, table, keyColumn, key, lock).Select(column).Row().Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, e.ErrNotFound
		}
		return nil, err
	}
	return decodeDocument[T](raw)
}

// WriteDocument replaces a JSON column of an existing row.
func WriteDocument(ctx context.Context, tx *gorm.DB, table, keyColumn, key, column string, value interface{}) error {
	encoded, err := encodeDocument(value)
	if err != nil {
		return err
	}
	result := tx.WithContext(ctx).Table(table).Where(keyColumn+" = ?", key).
		Updates(map[string]interface{}{column: encoded})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// UpsertFields inserts a row keyed by key with the given fields, or updates exactly
// those fields when the row already exists. It is a single INSERT ... ON CONFLICT statement.
// Non-scalar values (slices, maps, structs) are stored as JSON.
func UpsertFields(ctx context.Context, tx *gorm.DB, table, keyColumn, key string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields to update", e.ErrInvalidInput)
	}
	row := make(map[string]interface{}, len(fields)+1)
	columns := make([]string, 0, len(fields))
	for column, value := range fields {
		encoded, err := columnValue(value)
		if err != nil {
			return err
		}
		row[column] = encoded
		columns = append(columns, column)
	}
	row[keyColumn] = key

	return tx.WithContext(ctx).Table(table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: keyColumn}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}

// EnsureRow creates an empty row keyed by key unless it already exists.
func EnsureRow(ctx context.Context, tx *gorm.DB, table, keyColumn, key string) error {
	return tx.WithContext(ctx).Table(table).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{keyColumn: key}).Error
}

// AppendToCollection appends item to the collection, creating the owning row if needed.
// When ids is set the item receives the next id from the counter column.
func AppendToCollection[T any](ctx context.Context, tx *gorm.DB, c Collection, key string, item T, ids *IDPolicy[T]) (T, error) {
	err := tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := EnsureRow(ctx, tx, c.Table, c.Key, key); err != nil {
			return err
		}
		items, counter, err := lockCollection[T](tx, c, key)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if ids != nil {
			next := nextID(items, counter, ids.Get)
			ids.Set(&item, next)
			if c.Counter != "" {
				updates[c.Counter] = next
			}
		}
		items = append(items, item)
		return writeCollection(tx, c, key, items, updates)
	})
	return item, err
}

// ReplaceInCollection applies update to the first item matched by match.
// It returns e.ErrNotFound when the owning row or the item is missing.
func ReplaceInCollection[T any](ctx context.Context, tx *gorm.DB, c Collection, key string, match func(T) bool, update func(*T)) (T, error) {
	var replaced T
	err := tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, _, err := lockCollection[T](tx, c, key)
		if err != nil {
			return err
		}
		for i := range items {
			if match(items[i]) {
				update(&items[i])
				replaced = items[i]
				return writeCollection(tx, c, key, items, nil)
			}
		}
		return e.ErrNotFound
	})
	return replaced, err
}

// RemoveFromCollection deletes the first item matched by match and returns it.
// Counters are left untouched so removed ids are never issued again.
func RemoveFromCollection[T any](ctx context.Context, tx *gorm.DB, c Collection, key string, match func(T) bool) (T, error) {
	var removed T
	err := tx.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, _, err := lockCollection[T](tx, c, key)
		if err != nil {
			return err
		}
		for i := range items {
			if match(items[i]) {
				removed = items[i]
				items = append(items[:i], items[i+1:]...)
				return writeCollection(tx, c, key, items, nil)
			}
		}
		return e.ErrNotFound
	})
	return removed, err
}

func lockCollection[T any](tx *gorm.DB, c Collection, key string) ([]T, int, error) {
	var (
		raw     sql.NullString
		counter sql.NullInt64
		err     error
	)
	query := ownerRow(tx, c.Table, c.Key, key, true)
	if c.Counter != "" {
		err = query.Select([]string{c.Column, c.Counter}).Row().Scan(&raw, &counter)
	} else {
		err = query.Select(c.Column).Row().Scan(&raw)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, e.ErrNotFound
		}
		return nil, 0, err
	}
	items, err := decodeDocument[[]T](raw)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		return nil, int(counter.Int64), nil
	}
	return *items, int(counter.Int64), nil
}

func writeCollection[T any](tx *gorm.DB, c Collection, key string, items []T, updates map[string]interface{}) error {
	if items == nil {
		items = []T{}
	}
	encoded, err := encodeDocument(items)
	if err != nil {
		return err
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates[c.Column] = encoded
	return tx.Table(c.Table).Where(c.Key+" = ?", key).Updates(updates).Error
}

// nextID never hands out an id at or below one already seen, even when the
// counter column predates the stored items.
func nextID[T any](items []T, counter int, get func(T) int) int {
	highest := counter
	for _, item := range items {
		if id := get(item); id > highest {
			highest = id
		}
	}
	return highest + 1
}

func ownerRow(tx *gorm.DB, table, keyColumn, key string, lock bool) *gorm.DB {
	query := tx.Table(table).Where(keyColumn+" = ?", key)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

func decodeDocument[T any](raw sql.NullString) (*T, error) {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil, nil
	}
	var doc T
	if err := json.Unmarshal([]byte(raw.String), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

func encodeDocument(value interface{}) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(b), nil
}

func columnValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, string, *string, int, int64, bool:
		return v, nil
	default:
		return encodeDocument(v)
	}
}

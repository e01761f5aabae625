// Package store keeps the extracted histories in sqlite so they can be
// listed later without going back to the site.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"utrhistory/internal/history"
	"utrhistory/internal/profile"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrNotFound = errors.New("store: player not found")

func wrapOpen(err error) error {
	return fmt.Errorf("open store: %w", err)
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a throwaway database.
func Open(path string) (Store, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return Store{}, wrapOpen(err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, wrapOpen(err)
	}

	// sqlite only allows one writer, a single connection also keeps
	// ":memory:" pointing at the same database
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return Store{}, wrapOpen(err)
		}
	}
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return Store{}, wrapOpen(err)
	}

	return Store{db: db}, nil
}

type Store struct {
	db *sql.DB
}

func (s Store) Close() error {
	return s.db.Close()
}

// Player is a stored player without their history.
type Player struct {
	UserID    int
	Name      string
	Samples   int
	FetchedAt time.Time
}

// Put replaces everything stored for result.UserID with result.
func (s Store) Put(ctx context.Context, result profile.Result, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`insert into player(user_id, name, fetched_at) values (?, ?, ?)
		on conflict(user_id) do update set name = excluded.name, fetched_at = excluded.fetched_at`,
		result.UserID, result.PlayerName, fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put player %d: %w", result.UserID, err)
	}

	_, err = tx.ExecContext(ctx, "delete from rating_history where user_id = ?", result.UserID)
	if err != nil {
		return fmt.Errorf("clear history %d: %w", result.UserID, err)
	}

	stmt, err := tx.PrepareContext(
		ctx,
		"insert into rating_history(user_id, position, date, rating) values (?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, sample := range result.Samples {
		_, err = stmt.ExecContext(ctx, result.UserID, i, sample.Date, sample.Rating)
		if err != nil {
			return fmt.Errorf("put sample %v: %w", sample, err)
		}
	}

	return tx.Commit()
}

// Get returns the stored history of a player in the order it was
// extracted.
func (s Store) Get(ctx context.Context, userID int) (profile.Result, error) {
	result := profile.Result{UserID: userID}
	err := s.db.QueryRowContext(ctx, "select name from player where user_id = ?", userID).
		Scan(&result.PlayerName)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Result{}, ErrNotFound
	}
	if err != nil {
		return profile.Result{}, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		"select date, rating from rating_history where user_id = ? order by position",
		userID,
	)
	if err != nil {
		return profile.Result{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var sample history.Sample
		err = rows.Scan(&sample.Date, &sample.Rating)
		if err != nil {
			return profile.Result{}, err
		}
		result.Samples = append(result.Samples, sample)
	}
	return result, rows.Err()
}

// Players lists every stored player, most recently fetched first.
func (s Store) Players(ctx context.Context) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		select p.user_id, p.name, p.fetched_at, count(h.user_id)
		from player p left join rating_history h on h.user_id = p.user_id
		group by p.user_id
		order by p.fetched_at desc, p.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		var p Player
		var fetchedAt int64
		err = rows.Scan(&p.UserID, &p.Name, &fetchedAt, &p.Samples)
		if err != nil {
			return nil, err
		}
		p.FetchedAt = time.Unix(fetchedAt, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

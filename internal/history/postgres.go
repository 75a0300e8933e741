// Package history archives completed hands to Postgres. The archive is
// write-behind: the engine is authoritative and archive failures never block
// play, they are logged and the hand is dropped.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/feltkit/holdem/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS hands (
	id          BIGSERIAL PRIMARY KEY,
	game_id     TEXT        NOT NULL,
	variant     TEXT        NOT NULL,
	reason      TEXT        NOT NULL,
	pot         BIGINT      NOT NULL,
	board       JSONB       NOT NULL,
	winners     JSONB       NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS hand_actions (
	id              BIGSERIAL PRIMARY KEY,
	hand_id         BIGINT      NOT NULL REFERENCES hands(id) ON DELETE CASCADE,
	seq             INT         NOT NULL,
	player_id       TEXT        NOT NULL,
	action          TEXT        NOT NULL,
	amount          BIGINT      NOT NULL,
	phase           TEXT        NOT NULL,
	bet_to          BIGINT      NOT NULL,
	current_bet     BIGINT      NOT NULL,
	acted_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS hands_game_id_idx ON hands (game_id);
`

// Archive records finished hands and their action logs.
type Archive struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Archive{db: db}, nil
}

// Migrate creates the archive tables. Safe to run on every startup.
func (a *Archive) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate archive schema: %w", err)
	}
	return nil
}

// RecordHand stores one finished hand plus its full action log in a single
// transaction.
func (a *Archive) RecordHand(ctx context.Context, state engine.GameState) error {
	if state.LastHandResult == nil {
		return fmt.Errorf("game %s has no finished hand to record", state.ID)
	}
	result := state.LastHandResult

	board, err := json.Marshal(state.CommunityCards)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	winners, err := json.Marshal(result.Winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	var handID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO hands (game_id, variant, reason, pot, board, winners, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		state.ID, state.Variant, result.Reason, result.Pot, board, winners, result.Timestamp,
	).Scan(&handID)
	if err != nil {
		return fmt.Errorf("insert hand: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO hand_actions (hand_id, seq, player_id, action, amount, phase, bet_to, current_bet, acted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("prepare action insert: %w", err)
	}
	defer stmt.Close()

	for i, action := range state.History {
		_, err := stmt.ExecContext(ctx, handID, i, action.PlayerID, action.Action,
			action.Amount, action.Phase, action.BetTo, action.CurrentBetAfter, action.Timestamp)
		if err != nil {
			return fmt.Errorf("insert action %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// HandCount returns the number of archived hands for a game.
func (a *Archive) HandCount(ctx context.Context, gameID string) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hands WHERE game_id = $1`, gameID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count hands for %s: %w", gameID, err)
	}
	return n, nil
}

// Close releases the connection pool.
func (a *Archive) Close() error {
	return a.db.Close()
}

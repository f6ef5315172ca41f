package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PlayerRow struct {
	SessionID   string
	PlayerName  string
	TotalDeaths int
	Completed   bool
	CompletedAt time.Time // zero while not completed
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LevelDeaths map[int]int
}

type LevelDeathRow struct {
	Level         int
	AverageDeaths float64
	PlayerCount   int
}

func (q queries) GetPlayerRecord(ctx context.Context, sessionID string) (*PlayerRow, error) {
	var p PlayerRow
	var completedAt sql.NullInt64
	var createdAt, updatedAt int64
	err := q.QueryRow(ctx, `
		SELECT session_id, player_name, total_deaths, is_completed, completed_at, created_at, updated_at
		FROM player_records
		WHERE session_id = $1
	`, sessionID).Scan(&p.SessionID, &p.PlayerName, &p.TotalDeaths, &p.Completed, &completedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting player record: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	if completedAt.Valid {
		p.CompletedAt = fromMillis(completedAt.Int64)
	}

	rows, err := q.Query(ctx, `
		SELECT level, deaths FROM player_level_deaths WHERE session_id = $1 ORDER BY level
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting level deaths: %w", err)
	}
	defer rows.Close()

	p.LevelDeaths = make(map[int]int)
	for rows.Next() {
		var level, deaths int
		if err := rows.Scan(&level, &deaths); err != nil {
			return nil, fmt.Errorf("scanning level deaths: %w", err)
		}
		p.LevelDeaths[level] = deaths
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting level deaths: %w", err)
	}
	return &p, nil
}

// SavePlayerRecord writes the record and replaces its per-level deaths. Run it
// inside InTx so readers never see a record without its levels.
func (q queries) SavePlayerRecord(ctx context.Context, p PlayerRow) error {
	completedAt := sql.NullInt64{}
	if p.Completed && !p.CompletedAt.IsZero() {
		completedAt = sql.NullInt64{Int64: toMillis(p.CompletedAt), Valid: true}
	}
	_, err := q.Exec(ctx, `
		INSERT INTO player_records (session_id, player_name, total_deaths, is_completed, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE
		SET player_name = excluded.player_name,
		    total_deaths = excluded.total_deaths,
		    is_completed = excluded.is_completed,
		    completed_at = excluded.completed_at,
		    updated_at = excluded.updated_at
	`, p.SessionID, p.PlayerName, p.TotalDeaths, p.Completed, completedAt, toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving player record: %w", err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM player_level_deaths WHERE session_id = $1`, p.SessionID); err != nil {
		return fmt.Errorf("clearing level deaths: %w", err)
	}
	for level, deaths := range p.LevelDeaths {
		_, err := q.Exec(ctx, `
			INSERT INTO player_level_deaths (session_id, level, deaths)
			VALUES ($1, $2, $3)
		`, p.SessionID, level, deaths)
		if err != nil {
			return fmt.Errorf("saving level %d deaths: %w", level, err)
		}
	}
	return nil
}

// ListCompletedPlayers returns completed, named records ordered by total deaths,
// then completion time, then session id, with their per-level deaths.
func (q queries) ListCompletedPlayers(ctx context.Context, limit int) ([]PlayerRow, error) {
	rows, err := q.Query(ctx, `
		SELECT r.session_id, r.player_name, r.total_deaths, r.completed_at, r.created_at, r.updated_at,
		       d.level, d.deaths
		FROM (
			SELECT session_id, player_name, total_deaths, completed_at, created_at, updated_at
			FROM player_records
			WHERE is_completed AND player_name <> ''
			ORDER BY total_deaths ASC, completed_at ASC, session_id ASC
			LIMIT $1
		) r
		LEFT JOIN player_level_deaths d ON d.session_id = r.session_id
		ORDER BY r.total_deaths ASC, r.completed_at ASC, r.session_id ASC, d.level ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing completed players: %w", err)
	}
	defer rows.Close()

	var players []PlayerRow
	for rows.Next() {
		var p PlayerRow
		var completedAt sql.NullInt64
		var createdAt, updatedAt int64
		var level, deaths sql.NullInt64
		if err := rows.Scan(&p.SessionID, &p.PlayerName, &p.TotalDeaths, &completedAt, &createdAt, &updatedAt, &level, &deaths); err != nil {
			return nil, fmt.Errorf("scanning completed player: %w", err)
		}
		if n := len(players); n == 0 || players[n-1].SessionID != p.SessionID {
			p.Completed = true
			p.CreatedAt = fromMillis(createdAt)
			p.UpdatedAt = fromMillis(updatedAt)
			if completedAt.Valid {
				p.CompletedAt = fromMillis(completedAt.Int64)
			}
			p.LevelDeaths = make(map[int]int)
			players = append(players, p)
		}
		if level.Valid {
			players[len(players)-1].LevelDeaths[int(level.Int64)] = int(deaths.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing completed players: %w", err)
	}
	return players, nil
}

// LevelDeathAverages returns, per level, the mean deaths over completed
// records reporting that level and how many records contributed.
func (q queries) LevelDeathAverages(ctx context.Context) ([]LevelDeathRow, error) {
	rows, err := q.Query(ctx, `
		SELECT d.level, AVG(d.deaths), COUNT(*)
		FROM player_level_deaths d
		JOIN player_records r ON r.session_id = d.session_id
		WHERE r.is_completed
		GROUP BY d.level
		ORDER BY d.level
	`)
	if err != nil {
		return nil, fmt.Errorf("averaging level deaths: %w", err)
	}
	defer rows.Close()

	var out []LevelDeathRow
	for rows.Next() {
		var r LevelDeathRow
		if err := rows.Scan(&r.Level, &r.AverageDeaths, &r.PlayerCount); err != nil {
			return nil, fmt.Errorf("scanning level deaths: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("averaging level deaths: %w", err)
	}
	return out, nil
}

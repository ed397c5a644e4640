package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the task state in two tables. Save replaces both
// tables inside one transaction so readers never see a partial rewrite.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTaskSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initTaskSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_tasks (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			description TEXT NOT NULL,
			owner TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_date DATE NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_tasks_owner ON chat_tasks (owner, seq);`,
		`CREATE TABLE IF NOT EXISTS chat_user_stats (
			owner TEXT PRIMARY KEY,
			daily INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (State, error) {
	state := State{Stats: make(map[string]UserStats)}

	rows, err := s.pool.Query(ctx,
		`SELECT id, description, owner, completed, to_char(created_date, 'YYYY-MM-DD')
		   FROM chat_tasks ORDER BY seq ASC, id ASC`)
	if err != nil {
		return State{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			task    Task
			rawDate string
		)
		if err := rows.Scan(&task.ID, &task.Description, &task.Owner, &task.Completed, &rawDate); err != nil {
			return State{}, fmt.Errorf("scan task row: %w", err)
		}
		task.CreatedDate, err = ParseDate(rawDate)
		if err != nil {
			return State{}, err
		}
		state.Tasks = append(state.Tasks, task)
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("iterate task rows: %w", err)
	}

	statRows, err := s.pool.Query(ctx, `SELECT owner, daily, total FROM chat_user_stats`)
	if err != nil {
		return State{}, fmt.Errorf("list user stats: %w", err)
	}
	defer statRows.Close()
	for statRows.Next() {
		var (
			owner string
			st    UserStats
		)
		if err := statRows.Scan(&owner, &st.Daily, &st.Total); err != nil {
			return State{}, fmt.Errorf("scan user stats row: %w", err)
		}
		state.Stats[owner] = st
	}
	if err := statRows.Err(); err != nil {
		return State{}, fmt.Errorf("iterate user stats rows: %w", err)
	}
	return state, nil
}

func (s *PostgresStore) Save(ctx context.Context, state State) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM chat_tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_user_stats`); err != nil {
		return fmt.Errorf("clear user stats: %w", err)
	}

	for i, task := range state.Tasks {
		_, err := tx.Exec(ctx,
			`INSERT INTO chat_tasks (id, seq, description, owner, completed, created_date)
			 VALUES ($1, $2, $3, $4, $5, $6::date)`,
			task.ID,
			i+1,
			task.Description,
			task.Owner,
			task.Completed,
			task.CreatedDate.String(),
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
	}
	for owner, st := range state.Stats {
		_, err := tx.Exec(ctx,
			`INSERT INTO chat_user_stats (owner, daily, total) VALUES ($1, $2, $3)`,
			owner, st.Daily, st.Total,
		)
		if err != nil {
			return fmt.Errorf("insert user stats: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

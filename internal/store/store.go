// Package store persists the user question overlay, the unknown-question
// queue, and layout configurations in SQLite. The built-in question set ships
// as a JSON file and never touches the database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quizzard/quizzard/internal/layout"
	"github.com/quizzard/quizzard/internal/question"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL UNIQUE,
		answer TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS unknown_questions (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		selected_answer TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS layouts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertUserQuestion stores or replaces one user question.
func (s *Store) UpsertUserQuestion(q question.QuestionAnswer) error {
	_, err := s.db.Exec(
		`INSERT INTO user_questions (question, answer, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(question) DO UPDATE SET answer = excluded.answer`,
		strings.TrimSpace(q.Text), q.Answer, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert user question: %w", err)
	}
	return nil
}

// DeleteUserQuestion removes a user question by its text.
func (s *Store) DeleteUserQuestion(text string) error {
	_, err := s.db.Exec(`DELETE FROM user_questions WHERE question = ?`, strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("delete user question: %w", err)
	}
	return nil
}

// ListUserQuestions returns the whole user overlay.
func (s *Store) ListUserQuestions() ([]question.QuestionAnswer, error) {
	rows, err := s.db.Query(`SELECT question, answer FROM user_questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list user questions: %w", err)
	}
	defer rows.Close()
	var out []question.QuestionAnswer
	for rows.Next() {
		var q question.QuestionAnswer
		if err := rows.Scan(&q.Text, &q.Answer); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// InsertUnknown queues an unmatched question.
func (s *Store) InsertUnknown(u question.UnknownQuestion) error {
	opts, err := json.Marshal(u.DetectedOptions)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO unknown_questions (id, question, options, selected_answer, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID.String(), u.QuestionText, string(opts), u.SelectedAnswer, u.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert unknown: %w", err)
	}
	return nil
}

// DeleteUnknown removes a queued unknown by id.
func (s *Store) DeleteUnknown(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM unknown_questions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete unknown: %w", err)
	}
	return nil
}

// SetUnknownAnswer records a suggested or hand-picked answer on a queued
// unknown without resolving it.
func (s *Store) SetUnknownAnswer(id uuid.UUID, answer string) error {
	_, err := s.db.Exec(`UPDATE unknown_questions SET selected_answer = ? WHERE id = ?`, answer, id.String())
	if err != nil {
		return fmt.Errorf("set unknown answer: %w", err)
	}
	return nil
}

// ListUnknowns returns the queue, oldest first.
func (s *Store) ListUnknowns() ([]question.UnknownQuestion, error) {
	rows, err := s.db.Query(
		`SELECT id, question, options, selected_answer, created_at
		 FROM unknown_questions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list unknowns: %w", err)
	}
	defer rows.Close()
	var out []question.UnknownQuestion
	for rows.Next() {
		var u question.UnknownQuestion
		var id, opts string
		if err := rows.Scan(&id, &u.QuestionText, &opts, &u.SelectedAnswer, &u.Timestamp); err != nil {
			return nil, err
		}
		if u.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("unknown id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(opts), &u.DetectedOptions); err != nil {
			return nil, fmt.Errorf("unknown options: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ResolveUnknown promotes a queued unknown into the user overlay and removes
// it from the queue in one transaction.
func (s *Store) ResolveUnknown(id uuid.UUID, q question.QuestionAnswer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin resolve: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO user_questions (question, answer, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(question) DO UPDATE SET answer = excluded.answer`,
		strings.TrimSpace(q.Text), q.Answer, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("promote unknown: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM unknown_questions WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("dequeue unknown: %w", err)
	}
	return tx.Commit()
}

// SaveLayout inserts or updates a layout. The zone geometry is stored as one
// JSON document; only identity and the active flag get their own columns.
func (s *Store) SaveLayout(l *layout.Layout) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	l.UpdatedAt = time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO layouts (id, name, data, active, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data, updated_at = excluded.updated_at`,
		l.ID.String(), l.Name, string(data), l.CreatedAt.UTC(), l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	return nil
}

// DeleteLayout removes a layout by id.
func (s *Store) DeleteLayout(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM layouts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	return nil
}

// ActivateLayout marks one layout active and every other inactive.
func (s *Store) ActivateLayout(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin activate: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE layouts SET active = 0`); err != nil {
		return fmt.Errorf("deactivate layouts: %w", err)
	}
	res, err := tx.Exec(`UPDATE layouts SET active = 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("activate layout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("layout %s not found", id)
	}
	return tx.Commit()
}

// ActiveLayout returns the active layout, or nil when none is active.
func (s *Store) ActiveLayout() (*layout.Layout, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM layouts WHERE active = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active layout: %w", err)
	}
	var l layout.Layout
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		return nil, fmt.Errorf("unmarshal layout: %w", err)
	}
	return &l, nil
}

// ListLayouts returns every stored layout with its active flag.
func (s *Store) ListLayouts() ([]StoredLayout, error) {
	rows, err := s.db.Query(`SELECT data, active FROM layouts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()
	var out []StoredLayout
	for rows.Next() {
		var data string
		var active int
		if err := rows.Scan(&data, &active); err != nil {
			return nil, err
		}
		var l layout.Layout
		if err := json.Unmarshal([]byte(data), &l); err != nil {
			return nil, fmt.Errorf("unmarshal layout: %w", err)
		}
		out = append(out, StoredLayout{Layout: l, Active: active == 1})
	}
	return out, rows.Err()
}

// StoredLayout pairs a layout with its persisted active flag.
type StoredLayout struct {
	Layout layout.Layout `json:"layout"`
	Active bool          `json:"active"`
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"faqpage/internal/handle"
	"faqpage/internal/ordering"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, COALESCE(handle, ''), display_name, avatar_url, is_boxed, is_numbered, theme, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Handle,
		&user.DisplayName,
		&user.AvatarURL,
		&user.Settings.Boxed,
		&user.Settings.Numbered,
		&user.Settings.Theme,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// EnsureUser creates the owner row on first sign-in. On later sign-ins the avatar
// follows the identity provider, while a display name the owner already set is kept.
func (s *PostgresStore) EnsureUser(ctx context.Context, profile User) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, display_name, avatar_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			avatar_url = EXCLUDED.avatar_url,
			display_name = CASE WHEN users.display_name = '' THEN EXCLUDED.display_name ELSE users.display_name END,
			updated_at = NOW()
		RETURNING `+userColumns, profile.ID, profile.DisplayName, profile.AvatarURL)
	user, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateSettings stores the page options and returns the owner's current handle.
func (s *PostgresStore) UpdateSettings(ctx context.Context, userID string, settings Settings) (string, error) {
	var current string
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET is_boxed=$2, is_numbered=$3, theme=$4, updated_at=NOW()
		WHERE id=$1
		RETURNING COALESCE(handle, '')
	`, userID, settings.Boxed, settings.Numbered, settings.Theme).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update settings: %w", err)
	}
	return current, nil
}

func (s *PostgresStore) UpdateDisplayName(ctx context.Context, userID, name string) (string, error) {
	var current string
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET display_name=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING COALESCE(handle, '')
	`, userID, name).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update display name: %w", err)
	}
	return current, nil
}

// ClaimHandle assigns an already normalized handle and returns the one it replaced.
// The partial unique index on LOWER(handle) settles races between owners.
func (s *PostgresStore) ClaimHandle(ctx context.Context, userID, next string) (string, error) {
	var previous string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := lockOwner(ctx, tx, userID)
		if err != nil {
			return err
		}
		if strings.EqualFold(current, next) {
			return handle.ErrSame
		}

		var taken bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(handle)=LOWER($2) AND id<>$1)
		`, userID, next).Scan(&taken); err != nil {
			return fmt.Errorf("check handle: %w", err)
		}
		if taken {
			return handle.ErrTaken
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET handle=$2, updated_at=NOW() WHERE id=$1`, userID, next); err != nil {
			return fmt.Errorf("update handle: %w", err)
		}
		previous = current
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

const questionColumns = `id, user_id, idx, text, answer, created_at, updated_at`

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var answer []byte
	if err := row.Scan(&q.ID, &q.UserID, &q.Index, &q.Text, &answer, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return Question{}, err
	}
	q.Answer = json.RawMessage(answer)
	return q, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, userID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE user_id=$1 ORDER BY idx ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	items := make([]Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetQuestion(ctx context.Context, userID, questionID string) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `
		SELECT `+questionColumns+` FROM questions WHERE id=$1 AND user_id=$2
	`, questionID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// AddQuestion appends q at the end of the owner's list. The caller supplies the ID;
// the index is assigned here.
func (s *PostgresStore) AddQuestion(ctx context.Context, q Question) (Question, string, error) {
	var (
		created Question
		current string
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		current, err = lockOwner(ctx, tx, q.UserID)
		if err != nil {
			return err
		}
		count, err := countQuestions(ctx, tx, q.UserID)
		if err != nil {
			return err
		}
		next, err := ordering.Append(count)
		if err != nil {
			return err
		}
		created, err = scanQuestion(tx.QueryRowContext(ctx, `
			INSERT INTO questions (id, user_id, idx, text, answer)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+questionColumns, q.ID, q.UserID, next, q.Text, []byte(q.Answer)))
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return nil
	})
	if err != nil {
		return Question{}, "", err
	}
	return created, current, nil
}

// UpdateQuestion replaces text and answer without touching the index.
func (s *PostgresStore) UpdateQuestion(ctx context.Context, userID, questionID, text string, answer json.RawMessage) (string, error) {
	var current string
	err := s.db.QueryRowContext(ctx, `
		UPDATE questions q
		SET text=$3, answer=$4, updated_at=NOW()
		FROM users u
		WHERE q.id=$1 AND q.user_id=$2 AND u.id=q.user_id
		RETURNING COALESCE(u.handle, '')
	`, questionID, userID, text, []byte(answer)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update question: %w", err)
	}
	return current, nil
}

// DeleteQuestion removes a question and closes the gap it leaves.
func (s *PostgresStore) DeleteQuestion(ctx context.Context, userID, questionID string) (string, error) {
	var current string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		current, err = lockOwner(ctx, tx, userID)
		if err != nil {
			return err
		}
		count, err := countQuestions(ctx, tx, userID)
		if err != nil {
			return err
		}
		idx, err := questionIndex(ctx, tx, userID, questionID)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1 AND user_id=$2 AND idx=$3`, questionID, userID, idx)
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		if err := expectOneRow(result); err != nil {
			return err
		}
		return applyShift(ctx, tx, userID, questionID, ordering.CloseGap(idx, count))
	})
	if err != nil {
		return "", err
	}
	return current, nil
}

// MoveQuestion places a question at target, shifting the questions between its old
// and new positions by one.
func (s *PostgresStore) MoveQuestion(ctx context.Context, userID, questionID string, target int) (string, error) {
	var current string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		current, err = lockOwner(ctx, tx, userID)
		if err != nil {
			return err
		}
		count, err := countQuestions(ctx, tx, userID)
		if err != nil {
			return err
		}
		old, err := questionIndex(ctx, tx, userID, questionID)
		if err != nil {
			return err
		}
		shift, err := ordering.Move(old, target, count)
		if err != nil {
			return err
		}
		if err := applyShift(ctx, tx, userID, questionID, shift); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE questions SET idx=$4, updated_at=NOW()
			WHERE id=$1 AND user_id=$2 AND idx=$3
		`, questionID, userID, old, target)
		if err != nil {
			return fmt.Errorf("move question: %w", err)
		}
		return expectOneRow(result)
	})
	if err != nil {
		return "", err
	}
	return current, nil
}

// GetPublicPage loads a page by handle, compared case-insensitively.
func (s *PostgresStore) GetPublicPage(ctx context.Context, pageHandle string) (Page, error) {
	var (
		page   Page
		userID string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, handle, display_name, avatar_url, is_boxed, is_numbered, theme
		FROM users
		WHERE handle IS NOT NULL AND LOWER(handle)=LOWER($1)
	`, pageHandle).Scan(
		&userID,
		&page.Handle,
		&page.DisplayName,
		&page.AvatarURL,
		&page.Settings.Boxed,
		&page.Settings.Numbered,
		&page.Settings.Theme,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("get page owner: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT text, answer FROM questions WHERE user_id=$1 ORDER BY idx ASC`, userID)
	if err != nil {
		return Page{}, fmt.Errorf("list page questions: %w", err)
	}
	defer rows.Close()

	page.Questions = make([]PageQuestion, 0)
	for rows.Next() {
		var (
			item   PageQuestion
			answer []byte
		)
		if err := rows.Scan(&item.Text, &answer); err != nil {
			return Page{}, fmt.Errorf("scan page question: %w", err)
		}
		item.Answer = json.RawMessage(answer)
		page.Questions = append(page.Questions, item)
	}
	return page, rows.Err()
}

// ListHandles returns every claimed handle, used to rebuild the page directory.
func (s *PostgresStore) ListHandles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT handle FROM users WHERE handle IS NOT NULL ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("list handles: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan handle: %w", err)
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}

// withTx runs fn in one transaction and rolls back on any error.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// lockOwner takes the row lock every mutation of an owner's list goes through, so
// writes for one owner run one at a time and each sees the previous one's result.
func lockOwner(ctx context.Context, tx *sql.Tx, userID string) (string, error) {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(handle, '') FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lock owner: %w", err)
	}
	return current, nil
}

func countQuestions(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE user_id=$1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func questionIndex(ctx context.Context, tx *sql.Tx, userID, questionID string) (int, error) {
	var idx int
	err := tx.QueryRowContext(ctx, `SELECT idx FROM questions WHERE id=$1 AND user_id=$2`, questionID, userID).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup question index: %w", err)
	}
	return idx, nil
}

// applyShift moves every other question inside the shift range by its delta.
func applyShift(ctx context.Context, tx *sql.Tx, userID, exceptID string, shift ordering.Shift) error {
	if shift.Empty() {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE questions SET idx=idx+$5, updated_at=NOW()
		WHERE user_id=$1 AND id<>$2 AND idx BETWEEN $3 AND $4
	`, userID, exceptID, shift.Lo, shift.Hi, shift.Delta); err != nil {
		return fmt.Errorf("shift questions %s: %w", shift, err)
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return ErrConflict
	}
	return nil
}

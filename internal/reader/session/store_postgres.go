package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/readfolio/api/internal/platform/apperr"
	"github.com/readfolio/api/internal/platform/database/schema"
	"github.com/readfolio/api/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) StartSession(context context.Context, s *Session) (*Session, error) {
	tx, err := repository.db.Begin(context)
	if err != nil {
		return nil, dberr.Wrap(err, "begin_start_session")
	}
	defer tx.Rollback(context)

	if err := lockUser(context, tx, s.UserID); err != nil {
		return nil, err
	}

	autoClosed, err := closeOpenSessions(context, tx, s.UserID, s.StartTime)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
	`,
		schema.ReaderSession.Table, schema.ReaderSession.ID, schema.ReaderSession.UserID,
		schema.ReaderSession.BookID, schema.ReaderSession.StartTime,
	)
	if _, err := tx.Exec(context, query, s.ID, s.UserID, s.BookID, s.StartTime); err != nil {
		return nil, dberr.Wrap(err, "insert_session")
	}

	if err := refreshProfile(context, tx, s.UserID); err != nil {
		return nil, err
	}

	if err := tx.Commit(context); err != nil {
		return nil, dberr.Wrap(err, "commit_start_session")
	}
	return autoClosed, nil
}

func (repository *PostgresRepository) StopSession(context context.Context, id, userID string, endTime time.Time) (*Session, error) {
	tx, err := repository.db.Begin(context)
	if err != nil {
		return nil, dberr.Wrap(err, "begin_stop_session")
	}
	defer tx.Rollback(context)

	if err := lockUser(context, tx, userID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2
		FOR UPDATE
	`,
		schema.ReaderSession.ID, schema.ReaderSession.UserID, schema.ReaderSession.BookID,
		schema.ReaderSession.StartTime, schema.ReaderSession.EndTime,
		schema.ReaderSession.Table, schema.ReaderSession.ID, schema.ReaderSession.UserID,
	)

	s := &Session{}
	err = tx.QueryRow(context, query, id, userID).Scan(&s.ID, &s.UserID, &s.BookID, &s.StartTime, &s.EndTime)
	if err != nil {
		return nil, dberr.Wrap(err, "get_session_for_stop")
	}
	if s.EndTime != nil {
		return nil, apperr.Conflict("Reading session has already ended")
	}

	update := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.ReaderSession.Table, schema.ReaderSession.EndTime, schema.ReaderSession.ID,
	)
	if _, err := tx.Exec(context, update, s.ID, endTime); err != nil {
		return nil, dberr.Wrap(err, "stop_session")
	}
	s.EndTime = &endTime

	if err := touchBook(context, tx, s.BookID, endTime); err != nil {
		return nil, err
	}
	if err := refreshProfile(context, tx, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(context); err != nil {
		return nil, dberr.Wrap(err, "commit_stop_session")
	}
	return s, nil
}

func (repository *PostgresRepository) DeleteSession(context context.Context, id, userID string) (*Session, error) {
	tx, err := repository.db.Begin(context)
	if err != nil {
		return nil, dberr.Wrap(err, "begin_delete_session")
	}
	defer tx.Rollback(context)

	if err := lockUser(context, tx, userID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s = $1 AND %s = $2
		RETURNING %s, %s, %s, %s, %s
	`,
		schema.ReaderSession.Table, schema.ReaderSession.ID, schema.ReaderSession.UserID,
		schema.ReaderSession.ID, schema.ReaderSession.UserID, schema.ReaderSession.BookID,
		schema.ReaderSession.StartTime, schema.ReaderSession.EndTime,
	)

	s := &Session{}
	err = tx.QueryRow(context, query, id, userID).Scan(&s.ID, &s.UserID, &s.BookID, &s.StartTime, &s.EndTime)
	if err != nil {
		return nil, dberr.Wrap(err, "delete_session")
	}

	if err := refreshProfile(context, tx, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(context); err != nil {
		return nil, dberr.Wrap(err, "commit_delete_session")
	}
	return s, nil
}

func (repository *PostgresRepository) GetSession(context context.Context, id, userID string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2
	`,
		schema.ReaderSession.ID, schema.ReaderSession.UserID, schema.ReaderSession.BookID,
		schema.ReaderSession.StartTime, schema.ReaderSession.EndTime,
		schema.ReaderSession.Table, schema.ReaderSession.ID, schema.ReaderSession.UserID,
	)

	s := &Session{}
	err := repository.db.QueryRow(context, query, id, userID).Scan(&s.ID, &s.UserID, &s.BookID, &s.StartTime, &s.EndTime)
	if err != nil {
		return nil, dberr.Wrap(err, "get_session")
	}
	return s, nil
}

func (repository *PostgresRepository) OpenSession(context context.Context, userID string) (*Session, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL
	`,
		schema.ReaderSession.ID, schema.ReaderSession.UserID, schema.ReaderSession.BookID,
		schema.ReaderSession.StartTime, schema.ReaderSession.EndTime,
		schema.ReaderSession.Table, schema.ReaderSession.UserID, schema.ReaderSession.EndTime,
	)

	s := &Session{}
	err := repository.db.QueryRow(context, query, userID).Scan(&s.ID, &s.UserID, &s.BookID, &s.StartTime, &s.EndTime)
	if err != nil {
		return nil, dberr.Wrap(err, "get_open_session")
	}
	return s, nil
}

func (repository *PostgresRepository) ListSessions(context context.Context, userID string, limit, offset int) ([]*Session, int, error) {
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s = $1`,
		schema.ReaderSession.Table, schema.ReaderSession.UserID,
	)

	var total int
	if err := repository.db.QueryRow(context, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_sessions")
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC, %s DESC
		LIMIT $2 OFFSET $3
	`,
		schema.ReaderSession.ID, schema.ReaderSession.UserID, schema.ReaderSession.BookID,
		schema.ReaderSession.StartTime, schema.ReaderSession.EndTime,
		schema.ReaderSession.Table, schema.ReaderSession.UserID,
		schema.ReaderSession.StartTime, schema.ReaderSession.ID,
	)

	rows, err := repository.db.Query(context, query, userID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_sessions")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.BookID, &s.StartTime, &s.EndTime); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_session")
		}
		sessions = append(sessions, s)
	}

	return sessions, total, nil
}

// lockUser takes a transaction-scoped advisory lock keyed on the user, so
// concurrent lifecycle calls for the same user serialize.
func lockUser(context context.Context, tx pgx.Tx, userID string) error {
	if _, err := tx.Exec(context, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return dberr.Wrap(err, "lock_user_sessions")
	}
	return nil
}

// closeOpenSessions ends every open session of the user at endTime and
// advances lasttimeread on the affected books. The invariant keeps this to at
// most one row; closing all of them also repairs any pre-invariant data.
func closeOpenSessions(context context.Context, tx pgx.Tx, userID string, endTime time.Time) (*Session, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2
		WHERE %s = $1 AND %s IS NULL
		RETURNING %s, %s, %s, %s, %s
	`,
		schema.ReaderSession.Table, schema.ReaderSession.EndTime,
		schema.ReaderSession.UserID, schema.ReaderSession.EndTime,
		schema.ReaderSession.ID, schema.ReaderSession.UserID, schema.ReaderSession.BookID,
		schema.ReaderSession.StartTime, schema.ReaderSession.EndTime,
	)

	rows, err := tx.Query(context, query, userID, endTime)
	if err != nil {
		return nil, dberr.Wrap(err, "close_open_sessions")
	}
	defer rows.Close()

	var closed []*Session
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.BookID, &s.StartTime, &s.EndTime); err != nil {
			return nil, dberr.Wrap(err, "scan_closed_session")
		}
		closed = append(closed, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "close_open_sessions")
	}

	for _, s := range closed {
		if err := touchBook(context, tx, s.BookID, endTime); err != nil {
			return nil, err
		}
	}

	if len(closed) == 0 {
		return nil, nil
	}
	return closed[len(closed)-1], nil
}

// touchBook advances the book's lasttimeread to endTime unless the stored
// value is already newer.
func touchBook(context context.Context, tx pgx.Tx, bookID string, endTime time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = $2
		WHERE %s = $1 AND (%s IS NULL OR %s < $2)
	`,
		schema.ReaderBook.Table, schema.ReaderBook.LastTimeRead,
		schema.ReaderBook.ID, schema.ReaderBook.LastTimeRead, schema.ReaderBook.LastTimeRead,
	)
	if _, err := tx.Exec(context, query, bookID, endTime); err != nil {
		return dberr.Wrap(err, "touch_book_last_time_read")
	}
	return nil
}

// refreshProfile recomputes all derived profile fields from the session
// table in one statement. Session count includes open sessions; reading time
// and the last-book pointer only consider finished ones, ties on endtime
// resolved by the higher (younger) id.
func refreshProfile(context context.Context, tx pgx.Tx, userID string) error {
	const query = `
		UPDATE reader.profile SET
			numberofreadingsessions = (
				SELECT count(*) FROM reader.session WHERE userid = $1),
			totalreadingseconds = (
				SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (endtime - starttime))), 0)::BIGINT
				FROM reader.session WHERE userid = $1 AND endtime IS NOT NULL),
			lastactivity = (
				SELECT MAX(starttime) FROM reader.session WHERE userid = $1),
			lastbookreadid = (
				SELECT bookid FROM reader.session
				WHERE userid = $1 AND endtime IS NOT NULL
				ORDER BY endtime DESC, id DESC
				LIMIT 1),
			updatedat = NOW()
		WHERE userid = $1`

	cmd, err := tx.Exec(context, query, userID)
	if err != nil {
		return dberr.Wrap(err, "refresh_profile")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.Internal(errors.New("profile row missing for user"))
	}
	return nil
}

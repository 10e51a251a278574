package book

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/readfolio/api/internal/platform/database/schema"
	"github.com/readfolio/api/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) ListBooks(context context.Context, f Filter, limit, offset int) ([]*Summary, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE TRUE
	`,
		schema.ReaderBook.ID, schema.ReaderBook.Title, schema.ReaderBook.Author,
		schema.ReaderBook.YearOfPublishing, schema.ReaderBook.ShortDescription,
		schema.ReaderBook.LastTimeRead, schema.ReaderBook.Table,
	)
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE TRUE`, schema.ReaderBook.Table)

	args := []any{}
	countArgs := []any{}

	if f.Query != "" {
		searchTerm := "%" + f.Query + "%"
		query += ` AND (title ILIKE $1 OR author ILIKE $1)`
		countQuery += ` AND (title ILIKE $1 OR author ILIKE $1)`
		args = append(args, searchTerm)
		countArgs = append(countArgs, searchTerm)
	}

	query += fmt.Sprintf(" ORDER BY %s ASC LIMIT $", schema.ReaderBook.ID) + itos(len(args)+1) + ` OFFSET $` + itos(len(args)+2)
	args = append(args, limit, offset)

	var total int
	if err := repository.db.QueryRow(context, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_books")
	}

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_books")
	}
	defer rows.Close()

	var books []*Summary
	for rows.Next() {
		b := &Summary{}
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.YearOfPublishing, &b.ShortDescription, &b.LastTimeRead); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_book")
		}
		books = append(books, b)
	}

	return books, total, nil
}

func (repository *PostgresRepository) GetBook(context context.Context, id string) (*Book, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.ReaderBook.ID, schema.ReaderBook.Title, schema.ReaderBook.Author,
		schema.ReaderBook.YearOfPublishing, schema.ReaderBook.ShortDescription,
		schema.ReaderBook.LongDescription, schema.ReaderBook.LastTimeRead,
		schema.ReaderBook.CreatedAt, schema.ReaderBook.UpdatedAt,
		schema.ReaderBook.Table, schema.ReaderBook.ID,
	)
	b := &Book{}

	err := repository.db.QueryRow(context, query, id).Scan(
		&b.ID, &b.Title, &b.Author, &b.YearOfPublishing, &b.ShortDescription,
		&b.LongDescription, &b.LastTimeRead, &b.CreatedAt, &b.UpdatedAt,
	)

	return b, dberr.Wrap(err, "get_book")
}

func (repository *PostgresRepository) CreateBook(context context.Context, b *Book) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING %s, %s
	`,
		schema.ReaderBook.Table, schema.ReaderBook.ID, schema.ReaderBook.Title,
		schema.ReaderBook.Author, schema.ReaderBook.YearOfPublishing,
		schema.ReaderBook.ShortDescription, schema.ReaderBook.LongDescription,
		schema.ReaderBook.CreatedAt, schema.ReaderBook.UpdatedAt,
		schema.ReaderBook.CreatedAt, schema.ReaderBook.UpdatedAt,
	)

	err := repository.db.QueryRow(context, query,
		b.ID, b.Title, b.Author, b.YearOfPublishing, b.ShortDescription, b.LongDescription,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return dberr.Wrap(err, "create_book")
}

func (repository *PostgresRepository) UpdateBook(context context.Context, b *Book) error {
	// lasttimeread is deliberately absent: it is only advanced by the
	// session lifecycle, never by catalogue edits.
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = NOW()
		WHERE %s = $1
		RETURNING %s, %s, %s
	`,
		schema.ReaderBook.Table, schema.ReaderBook.Title, schema.ReaderBook.Author,
		schema.ReaderBook.YearOfPublishing, schema.ReaderBook.ShortDescription,
		schema.ReaderBook.LongDescription, schema.ReaderBook.UpdatedAt,
		schema.ReaderBook.ID, schema.ReaderBook.LastTimeRead, schema.ReaderBook.CreatedAt,
		schema.ReaderBook.UpdatedAt,
	)

	err := repository.db.QueryRow(context, query,
		b.ID, b.Title, b.Author, b.YearOfPublishing, b.ShortDescription, b.LongDescription,
	).Scan(&b.LastTimeRead, &b.CreatedAt, &b.UpdatedAt)
	return dberr.Wrap(err, "update_book")
}

func (repository *PostgresRepository) DeleteBook(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.ReaderBook.Table, schema.ReaderBook.ID)

	cmd, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_book")
	}

	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) BookStats(context context.Context, bookID string) (*Stats, error) {
	const query = `
		SELECT
			count(*),
			COALESCE(SUM(EXTRACT(EPOCH FROM (endtime - starttime)))
				FILTER (WHERE endtime IS NOT NULL), 0)::BIGINT
		FROM reader.session
		WHERE bookid = $1`

	stats := &Stats{BookID: bookID}
	err := repository.db.QueryRow(context, query, bookID).Scan(&stats.SessionCount, &stats.TotalReadingSeconds)
	if err != nil {
		return nil, dberr.Wrap(err, "book_stats")
	}

	return stats, nil
}

func (repository *PostgresRepository) UserBookStats(context context.Context, bookID, userID string) (*UserStats, error) {
	const query = `
		SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (endtime - starttime))), 0)::BIGINT
		FROM reader.session
		WHERE bookid = $1 AND userid = $2 AND endtime IS NOT NULL`

	stats := &UserStats{BookID: bookID, UserID: userID}
	err := repository.db.QueryRow(context, query, bookID, userID).Scan(&stats.TotalReadingSeconds)
	if err != nil {
		return nil, dberr.Wrap(err, "user_book_stats")
	}

	return stats, nil
}

func itos(i int) string {
	return strconv.Itoa(i)
}

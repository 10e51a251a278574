package profile

import (
	"context"
	"fmt"

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

func (repository *PostgresRepository) CreateProfile(context context.Context, userID string) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1)`,
		schema.ReaderProfile.Table, schema.ReaderProfile.UserID,
	)

	_, err := repository.db.Exec(context, query, userID)
	return dberr.Wrap(err, "create_profile")
}

func (repository *PostgresRepository) GetProfile(context context.Context, userID string) (*Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.ReaderProfile.UserID, schema.ReaderProfile.LastActivity,
		schema.ReaderProfile.NumberOfReadingSessions, schema.ReaderProfile.TotalReadingSeconds,
		schema.ReaderProfile.LastBookReadID, schema.ReaderProfile.UpdatedAt,
		schema.ReaderProfile.Table, schema.ReaderProfile.UserID,
	)

	p := &Profile{}
	err := repository.db.QueryRow(context, query, userID).Scan(
		&p.UserID, &p.LastActivity, &p.NumberOfReadingSessions,
		&p.TotalReadingSeconds, &p.LastBookReadID, &p.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_profile")
	}
	return p, nil
}

package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/myrjola/aivisibility/internal/sqlite"
)

const timeLayout = time.RFC3339Nano

type ContactRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewContactRepository(db *sqlite.Database, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{
		db:     db,
		logger: logger,
	}
}

type contactRow struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	Brand     string `db:"brand"`
	Domain    string `db:"domain"`
	DocID     string `db:"doc_id"`
	CreatedAt string `db:"created_at"`
}

// Save stores contact and returns it with ID and CreatedAt filled in when they were empty.
func (r *ContactRepository) Save(ctx context.Context, contact models.Contact) (models.Contact, error) {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now()
	}
	row := contactRow{
		ID:        contact.ID,
		Email:     contact.Email,
		Brand:     contact.Brand,
		Domain:    contact.Domain,
		DocID:     contact.DocID,
		CreatedAt: contact.CreatedAt.UTC().Format(timeLayout),
	}
	stmt := `INSERT INTO contacts (id, email, brand, domain, doc_id, created_at)
VALUES (:id, :email, :brand, :domain, :doc_id, :created_at)`
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, row); err != nil {
		return models.Contact{}, errors.Wrap(err, "insert contact", slog.String("doc_id", contact.DocID))
	}
	return contact, nil
}

// List returns the most recent contacts first.
func (r *ContactRepository) List(ctx context.Context, limit int) ([]models.Contact, error) {
	var rows []contactRow
	stmt := `SELECT id, email, brand, domain, doc_id, created_at
FROM contacts
ORDER BY created_at DESC, id
LIMIT ?`
	if err := r.db.ReadOnly.SelectContext(ctx, &rows, stmt, limit); err != nil {
		return nil, errors.Wrap(err, "select contacts")
	}

	contacts := make([]models.Contact, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(timeLayout, row.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "parse created_at", slog.String("id", row.ID))
		}
		contacts = append(contacts, models.Contact{
			ID:        row.ID,
			Email:     row.Email,
			Brand:     row.Brand,
			Domain:    row.Domain,
			DocID:     row.DocID,
			CreatedAt: createdAt,
		})
	}
	return contacts, nil
}

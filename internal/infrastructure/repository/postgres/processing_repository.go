package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kmrl/documind/internal/core/domain"
)

type ProcessingRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewProcessingRepository(db *sql.DB) *ProcessingRepository {
	return &ProcessingRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ProcessingRepository) Save(ctx context.Context, rec *domain.ProcessingRecord) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	clsJSON, err := marshalClassification(rec.Classification)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO processing_records (
	id, filename, file_kind, extracted_text, translated_text, result,
	classification_status, classification, classification_error, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
	extracted_text = EXCLUDED.extracted_text,
	translated_text = EXCLUDED.translated_text,
	result = EXCLUDED.result,
	classification_status = EXCLUDED.classification_status,
	classification = EXCLUDED.classification,
	classification_error = EXCLUDED.classification_error,
	updated_at = EXCLUDED.updated_at
`,
		rec.ID, rec.Filename, string(rec.FileKind), rec.Text, rec.TranslatedText, resultJSON,
		string(rec.ClassificationStatus), clsJSON, rec.ClassificationError, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert processing record: %w", err)
	}
	return nil
}

func (r *ProcessingRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, file_kind, extracted_text, translated_text, result,
	classification_status, classification, classification_error, created_at, updated_at
FROM processing_records
WHERE id = $1
`, id)

	var (
		rec       domain.ProcessingRecord
		kind      string
		status    string
		resultRaw []byte
		clsRaw    []byte
	)
	err := row.Scan(
		&rec.ID, &rec.Filename, &kind, &rec.Text, &rec.TranslatedText, &resultRaw,
		&status, &clsRaw, &rec.ClassificationError, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get processing record", fmt.Errorf("processing id %s", id))
		}
		return nil, fmt.Errorf("scan processing record: %w", err)
	}

	if err := json.Unmarshal(resultRaw, &rec.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	if len(clsRaw) > 0 {
		var cls domain.ClassificationResult
		if err := json.Unmarshal(clsRaw, &cls); err != nil {
			return nil, fmt.Errorf("unmarshal classification: %w", err)
		}
		rec.Classification = &cls
	}
	rec.FileKind = domain.FileKind(kind)
	rec.ClassificationStatus = domain.ClassificationStatus(status)
	return &rec, nil
}

func (r *ProcessingRepository) UpdateClassification(
	ctx context.Context,
	id string,
	status domain.ClassificationStatus,
	cls *domain.ClassificationResult,
	errMessage string,
) error {
	clsJSON, err := marshalClassification(cls)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE processing_records
SET classification_status = $2, classification = $3, classification_error = $4, updated_at = $5
WHERE id = $1
`, id, string(status), clsJSON, errMessage, r.now())
	if err != nil {
		return fmt.Errorf("update classification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update classification rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "update classification", fmt.Errorf("processing id %s", id))
	}
	return nil
}

// marshalClassification returns an untyped nil for a missing result so the column is stored as NULL.
func marshalClassification(cls *domain.ClassificationResult) (any, error) {
	if cls == nil {
		return nil, nil
	}
	raw, err := json.Marshal(cls)
	if err != nil {
		return nil, fmt.Errorf("marshal classification: %w", err)
	}
	return raw, nil
}

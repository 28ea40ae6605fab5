package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

// withSavepoint runs one row's write inside a savepoint so a failing row
// rolls back alone and the rest of the batch proceeds. rowErr carries the
// row's own failure; err reports savepoint bookkeeping failures, which
// abort the whole batch.
func withSavepoint(ctx context.Context, tx *sqlx.Tx, fn func() error) (rowErr error, err error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT batch_row"); err != nil {
		return nil, fmt.Errorf("create savepoint: %w", err)
	}
	if fnErr := fn(); fnErr != nil {
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT batch_row"); err != nil {
			return nil, fmt.Errorf("rollback savepoint: %w", err)
		}
		return fnErr, nil
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT batch_row"); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	return nil, nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}

func nullStringToString(value sql.NullString) string {
	if !value.Valid {
		return ""
	}
	return value.String
}

func encodeJSONMap(value map[string]any) string {
	if len(value) == 0 {
		return "{}"
	}
	encoded, err := sonic.Marshal(value)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func decodeJSONMap(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := sonic.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

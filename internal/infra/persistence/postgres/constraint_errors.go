package postgres

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Driver messages and SQLSTATE codes per constraint kind. The PostgreSQL
// entries cover sessions without TranslateError, the SQLite entries cover tests.
var (
	uniqueViolationMarkers     = []string{"duplicate key", "23505", "unique constraint"}
	foreignKeyViolationMarkers = []string{"foreign key constraint", "23503"}
	notNullViolationMarkers    = []string{"null value in column", "not null constraint", "23502"}
)

func isUniqueConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || messageHasAny(err, uniqueViolationMarkers)
}

func isForeignKeyConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || messageHasAny(err, foreignKeyViolationMarkers)
}

func isNotNullConstraintViolation(err error) bool {
	return messageHasAny(err, notNullViolationMarkers)
}

func messageHasAny(err error, markers []string) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

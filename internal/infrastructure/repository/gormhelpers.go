package repository

import (
	"strings"

	apperrors "github.com/orris-inc/payrecon/internal/shared/errors"
)

// violatesIndex reports whether err is a unique violation on the named column.
func violatesIndex(err error, column string) bool {
	return apperrors.IsDuplicateError(err) && strings.Contains(err.Error(), column)
}

// queryLimit maps a non-positive limit to no limit.
func queryLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

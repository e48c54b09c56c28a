package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

func isUniqueViolation(err error) bool {
	return isPQCode(err, codeUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return isPQCode(err, codeForeignKeyViolation)
}

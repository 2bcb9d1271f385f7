package service

import (
	"errors"

	"github.com/palmmar/prommis/internal/apperror"
)

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

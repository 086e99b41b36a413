// Package app holds the farm services the CLI drives. Services validate
// input, enforce team permissions and coordinate repositories with the
// location, classification and notification collaborators.
package app

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

var (
	ErrValidation         = errors.New("app: validation failed")
	ErrDuplicate          = errors.New("app: already exists")
	ErrPermissionDenied   = errors.New("app: permission denied")
	ErrInvalidCredentials = errors.New("app: invalid credentials")
	ErrNotSignedIn        = errors.New("app: not signed in")
)

const dayLayout = "2006-01-02"

func validDay(raw string) bool {
	_, err := time.Parse(dayLayout, raw)
	return err == nil
}

func today() string {
	return time.Now().UTC().Format(dayLayout)
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// checkFinite rejects NaN and the infinities, which flag parsing accepts
// but neither store nor decimal arithmetic can hold.
func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return validationf("%s must be a finite number", field)
	}
	return nil
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/config"
	"github.com/NatDug/Field-Buddy/internal/geo"
	"github.com/NatDug/Field-Buddy/internal/storage"
)

const (
	ExitCodeSuccess     = 0
	ExitCodeGeneric     = 1
	ExitCodeUsage       = 2
	ExitCodeNotFound    = 3
	ExitCodePermission  = 4
	ExitCodeAuthFailed  = 5
	ExitCodeUnsupported = 6
	ExitCodeIO          = 7
	ExitCodeConflict    = 8
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}

	switch {
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, storage.ErrInvalidCommand),
		errors.Is(err, config.ErrInvalidConfig):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, geo.ErrAddressNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, app.ErrPermissionDenied),
		errors.Is(err, geo.ErrPermissionDenied):
		return asExitError(ExitCodePermission, err)
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrNotSignedIn):
		return asExitError(ExitCodeAuthFailed, err)
	case errors.Is(err, storage.ErrUnsupportedCommand),
		errors.Is(err, storage.ErrSchemaTooNew):
		return asExitError(ExitCodeUnsupported, err)
	case errors.Is(err, app.ErrDuplicate):
		return asExitError(ExitCodeConflict, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return asExitError(ExitCodeIO, err)
	}
	return asExitError(ExitCodeGeneric, err)
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}

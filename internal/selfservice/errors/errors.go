package errors

import (
	"fmt"
)

var (
	ErrNotFound            = fmt.Errorf("not found")
	ErrInvalidInput        = fmt.Errorf("invalid input")
	ErrInvalidRange        = fmt.Errorf("invalid date range")
	ErrUnsupportedFileType = fmt.Errorf("file type not allowed")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrConflict            = fmt.Errorf("conflict")
	ErrInsufficientBalance = fmt.Errorf("insufficient leave balance")
	ErrTenantUnavailable   = fmt.Errorf("tenant unavailable")
	ErrBlobStorage         = fmt.Errorf("blob storage failure")
	ErrTooManyAttempts     = fmt.Errorf("too many attempts")
)

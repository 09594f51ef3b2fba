package errors

import (
	"fmt"
)

var (
	ErrNotFound       = fmt.Errorf("not found")
	ErrDuplicateNIP   = fmt.Errorf("duplicate nip")
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrRosterTooSmall = fmt.Errorf("roster smaller than safety threshold")
	ErrUnresolvedName = fmt.Errorf("unresolved organization name")
)

//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package inference

import "fmt"

// Kind classifies inference failures.
type Kind string

const (
	// KindUnavailable covers transport failures, non-2xx replies and
	// timeouts.
	KindUnavailable Kind = "unavailable"

	// KindMalformed covers replies that cannot be decoded into the
	// declared shape.
	KindMalformed Kind = "malformed"
)

// Error is returned by Gateway.Invoke.
type Error struct {
	Kind        Kind
	Instruction string
	Message     string
	Raw         string // Raw model reply, for malformed output
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Instruction, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Instruction, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

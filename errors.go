// errors.go: structured error handling for warden cache operations
//
// This file provides structured error types using the go-errors library,
// enabling rich error context, categorization, and standardized error
// codes for all cache operations, per the canonical error kinds of
// spec §6/§7.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package warden

import (
	goerrors "errors"
	"fmt"

	werrors "github.com/agilira/go-errors"
)

// Canonical error codes for warden cache operations (spec §6/§7).
const (
	ErrCodeNoCache           werrors.ErrorCode = "WARDEN_NO_CACHE"
	ErrCodeNotStarted        werrors.ErrorCode = "WARDEN_NOT_STARTED"
	ErrCodeInvalidName       werrors.ErrorCode = "WARDEN_INVALID_NAME"
	ErrCodeInvalidOption     werrors.ErrorCode = "WARDEN_INVALID_OPTION"
	ErrCodeInvalidPairs      werrors.ErrorCode = "WARDEN_INVALID_PAIRS"
	ErrCodeInvalidMatch      werrors.ErrorCode = "WARDEN_INVALID_MATCH"
	ErrCodeInvalidCommand    werrors.ErrorCode = "WARDEN_INVALID_COMMAND"
	ErrCodeInvalidExpiration werrors.ErrorCode = "WARDEN_INVALID_EXPIRATION"
	ErrCodeInvalidHook       werrors.ErrorCode = "WARDEN_INVALID_HOOK"
	ErrCodeInvalidLimit      werrors.ErrorCode = "WARDEN_INVALID_LIMIT"
	ErrCodeInvalidRouter     werrors.ErrorCode = "WARDEN_INVALID_ROUTER"
	ErrCodeInvalidWarmer     werrors.ErrorCode = "WARDEN_INVALID_WARMER"
	ErrCodeJanitorDisabled   werrors.ErrorCode = "WARDEN_JANITOR_DISABLED"
	ErrCodeStatsDisabled     werrors.ErrorCode = "WARDEN_STATS_DISABLED"
	ErrCodeNonNumericValue   werrors.ErrorCode = "WARDEN_NON_NUMERIC_VALUE"
	ErrCodeNonDistributed    werrors.ErrorCode = "WARDEN_NON_DISTRIBUTED"
	ErrCodeCrossSlot         werrors.ErrorCode = "WARDEN_CROSS_SLOT"
	ErrCodeEISDIR            werrors.ErrorCode = "WARDEN_EISDIR"
	ErrCodeENOENT            werrors.ErrorCode = "WARDEN_ENOENT"

	// Internal/operational, not in the spec's canonical table but
	// needed to isolate hook and loader failures per spec §7.
	ErrCodeHookPanic   werrors.ErrorCode = "WARDEN_HOOK_PANIC"
	ErrCodeLoaderPanic werrors.ErrorCode = "WARDEN_LOADER_PANIC"
	ErrCodeDecodeError werrors.ErrorCode = "WARDEN_DECODE_ERROR"
	ErrCodeShortFrame  werrors.ErrorCode = "WARDEN_SHORT_FRAME"
)

// NewErrInvalidName reports an empty or malformed cache name.
func NewErrInvalidName(name string) error {
	return werrors.NewWithField(ErrCodeInvalidName, "cache name is invalid", "name", name)
}

// NewErrInvalidOption reports a rejected configuration option.
func NewErrInvalidOption(option string, reason string) error {
	return werrors.NewWithContext(ErrCodeInvalidOption, "invalid cache option", map[string]interface{}{
		"option": option,
		"reason": reason,
	})
}

// NewErrInvalidPairs reports a malformed put_many batch; no partial
// write is performed when this is returned (spec §4.I put_many).
func NewErrInvalidPairs(reason string) error {
	return werrors.NewWithField(ErrCodeInvalidPairs, "invalid key/value pairs", "reason", reason)
}

// NewErrInvalidMatch reports a match spec the store's predicate
// compiler does not recognize (spec §4.A).
func NewErrInvalidMatch(spec string) error {
	return werrors.NewWithField(ErrCodeInvalidMatch, "invalid match specification", "spec", spec)
}

// NewErrInvalidCommand reports an invoke() for an unregistered command
// name (spec §4.I invoke).
func NewErrInvalidCommand(name string) error {
	return werrors.NewWithField(ErrCodeInvalidCommand, "no command registered with this name", "command", name)
}

// NewErrInvalidExpiration reports a negative (and not -1, the delete
// sentinel) expiration duration.
func NewErrInvalidExpiration(ms int64) error {
	return werrors.NewWithField(ErrCodeInvalidExpiration, "invalid expiration duration", "milliseconds", ms)
}

// NewErrInvalidHook reports a hook with a duplicate name or a bad
// action subscription set (spec §4.F).
func NewErrInvalidHook(name string, reason string) error {
	return werrors.NewWithContext(ErrCodeInvalidHook, "invalid hook registration", map[string]interface{}{
		"hook":   name,
		"reason": reason,
	})
}

// NewErrInvalidLimit reports a SizeLimit/ReclaimFraction outside the
// valid range of spec §4.E.
func NewErrInvalidLimit(reason string) error {
	return werrors.NewWithField(ErrCodeInvalidLimit, "invalid size/reclaim limit", "reason", reason)
}

// NewErrInvalidRouter reports a router that refused attach/detach or
// returned a nil node.
func NewErrInvalidRouter(reason string) error {
	return werrors.NewWithField(ErrCodeInvalidRouter, "invalid router", "reason", reason)
}

// NewErrInvalidWarmer reports a warmer with a duplicate name or a
// non-positive interval (spec §4.H).
func NewErrInvalidWarmer(name string, reason string) error {
	return werrors.NewWithContext(ErrCodeInvalidWarmer, "invalid warmer registration", map[string]interface{}{
		"warmer": name,
		"reason": reason,
	})
}

// NewErrJanitorDisabled builds the janitor_disabled error. No
// operation in this package returns it: Purge and InspectJanitor both
// work on a cache whose JanitorInterval is zero.
func NewErrJanitorDisabled() error {
	return werrors.New(ErrCodeJanitorDisabled, "janitor is disabled for this cache")
}

// NewErrStatsDisabled reports an inspect(stats) call when no stats
// hook is installed.
func NewErrStatsDisabled() error {
	return werrors.New(ErrCodeStatsDisabled, "no stats hook installed on this cache")
}

// NewErrNonNumericValue reports an increment() against a value whose
// dynamic type is not numeric (spec §3 invariant, §4.I increment).
func NewErrNonNumericValue(key interface{}) error {
	return werrors.NewWithContext(ErrCodeNonNumericValue, "value is not numeric", map[string]interface{}{
		"key": fmt.Sprintf("%v", key),
	})
}

// NewErrNonDistributed reports a router operation attempted on a cache
// with no router configured.
func NewErrNonDistributed() error {
	return werrors.New(ErrCodeNonDistributed, "cache has no router configured")
}

// NewErrCrossSlot reports a multi-key operation whose keys resolve to
// more than one node (spec §4.K).
func NewErrCrossSlot(nodes int) error {
	return werrors.NewWithField(ErrCodeCrossSlot, "operation keys span more than one node", "node_count", nodes)
}

// NewErrEISDIR reports a dump/save/load/restore path that is a
// directory (spec §4.J).
func NewErrEISDIR(path string) error {
	return werrors.NewWithField(ErrCodeEISDIR, "path is a directory", "path", path)
}

// NewErrENOENT reports an unreachable dump/save/load/restore path.
func NewErrENOENT(path string, cause error) error {
	return werrors.Wrap(cause, ErrCodeENOENT, "path is unreachable").WithContext("path", path)
}

// NewErrDecode reports a frame that failed to decode during restore.
func NewErrDecode(cause error) error {
	return werrors.Wrap(cause, ErrCodeDecodeError, "failed to decode snapshot frame")
}

// NewErrShortFrame reports a frame shorter than its declared length.
func NewErrShortFrame(declared, got int) error {
	return werrors.NewWithContext(ErrCodeShortFrame, "frame shorter than declared length", map[string]interface{}{
		"declared_bytes": declared,
		"read_bytes":     got,
	})
}

// newErrHookPanic wraps a recovered hook panic (spec §4.F error
// isolation); the originating operation is never aborted by this.
func newErrHookPanic(hook string, recovered interface{}) error {
	return werrors.NewWithContext(ErrCodeHookPanic, "hook panicked", map[string]interface{}{
		"hook":  hook,
		"value": fmt.Sprintf("%v", recovered),
	}).WithSeverity("warning")
}

// newErrLoaderPanic wraps a recovered courier loader panic (spec §4.G).
func newErrLoaderPanic(key interface{}, recovered interface{}) error {
	return werrors.NewWithContext(ErrCodeLoaderPanic, "loader panicked", map[string]interface{}{
		"key":   fmt.Sprintf("%v", key),
		"value": fmt.Sprintf("%v", recovered),
	})
}

// IsCrossSlot reports whether err is a cross_slot routing failure.
func IsCrossSlot(err error) bool {
	return HasCode(err, ErrCodeCrossSlot)
}

// IsRetryable reports whether the error can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable werrors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// HasCode reports whether err carries the given canonical error code.
func HasCode(err error, code werrors.ErrorCode) bool {
	return werrors.HasCode(err, code)
}

// ErrorCode extracts the canonical error code from an error, or "" if
// err does not carry one.
func ErrorCode(err error) werrors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder werrors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// ErrorContext extracts structured context from an error, or nil.
func ErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var we *werrors.Error
	if goerrors.As(err, &we) {
		return we.Context
	}
	return nil
}

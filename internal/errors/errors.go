package errors

import (
	"fmt"
	"time"
)

// ErrorCode identifies a class of run failure or flagged condition.
type ErrorCode string

const (
	// Configuration errors: fatal before any trading date is processed.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigMissing ErrorCode = "CONFIG_MISSING"

	// Data errors: flagged per date, fatal only in aggregate.
	ErrCodeDataGap         ErrorCode = "DATA_GAP"
	ErrCodeDataMissingFile ErrorCode = "DATA_MISSING_FILE"
	ErrCodeSignalUnlagged  ErrorCode = "SIGNAL_UNLAGGED"
	ErrCodeLookahead       ErrorCode = "LOOKAHEAD_GUARD"

	// Roll engine conditions.
	ErrCodeRollUnavailable ErrorCode = "ROLL_UNAVAILABLE"

	// Accounting invariants.
	ErrCodeAttributionImbalance ErrorCode = "ATTRIBUTION_IMBALANCE"
	ErrCodeCapViolation         ErrorCode = "CAP_VIOLATION"

	// Infrastructure errors.
	ErrCodeDBConnection ErrorCode = "DB_CONNECTION_ERROR"
	ErrCodeDBQuery      ErrorCode = "DB_QUERY_ERROR"
	ErrCodeCacheOp      ErrorCode = "CACHE_OPERATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// ErrorSeverity classifies how an error affects a run.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// RunError is the error type carried through the backtest pipeline. Abort
// conditions must report the offending date/symbol and the rule that
// triggered so a run can be replayed and audited.
type RunError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Severity  ErrorSeverity          `json:"severity"`
	Timestamp time.Time              `json:"timestamp"`
	Date      string                 `json:"date,omitempty"`
	Symbol    string                 `json:"symbol,omitempty"`
	Rule      string                 `json:"rule,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Date != "" {
		msg += fmt.Sprintf(" (date=%s", e.Date)
		if e.Symbol != "" {
			msg += fmt.Sprintf(" symbol=%s", e.Symbol)
		}
		if e.Rule != "" {
			msg += fmt.Sprintf(" rule=%s", e.Rule)
		}
		msg += ")"
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error must abort the run. Only invariant-breaking
// or configuration-level faults abort; recoverable conditions become flagged
// records in the output stream.
func (e *RunError) Fatal() bool {
	switch e.Code {
	case ErrCodeConfigInvalid, ErrCodeConfigMissing, ErrCodeCapViolation,
		ErrCodeLookahead, ErrCodeSignalUnlagged:
		return true
	default:
		return false
	}
}

// New creates a RunError with severity derived from the code.
func New(code ErrorCode, message string, cause error) *RunError {
	return &RunError{
		Code:      code,
		Message:   message,
		Severity:  severityByCode(code),
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// Newf creates a RunError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *RunError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithDate attaches the offending trading date.
func (e *RunError) WithDate(date time.Time) *RunError {
	e.Date = date.Format("2006-01-02")
	return e
}

// WithSymbol attaches the offending symbol or contract.
func (e *RunError) WithSymbol(symbol string) *RunError {
	e.Symbol = symbol
	return e
}

// WithRule attaches the triggering rule name.
func (e *RunError) WithRule(rule string) *RunError {
	e.Rule = rule
	return e
}

// WithContext attaches an arbitrary key/value pair.
func (e *RunError) WithContext(key string, value interface{}) *RunError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func severityByCode(code ErrorCode) ErrorSeverity {
	switch code {
	case ErrCodeCapViolation, ErrCodeLookahead, ErrCodeConfigInvalid, ErrCodeConfigMissing:
		return SeverityCritical
	case ErrCodeDBConnection, ErrCodeSignalUnlagged:
		return SeverityHigh
	case ErrCodeAttributionImbalance, ErrCodeDBQuery, ErrCodeDataMissingFile:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Wrap converts an arbitrary error into a RunError, passing RunErrors through.
func Wrap(err error, code ErrorCode, message string) *RunError {
	if err == nil {
		return nil
	}
	if runErr, ok := err.(*RunError); ok {
		return runErr
	}
	return New(code, message, err)
}

// IsRunError checks whether err is a RunError.
func IsRunError(err error) bool {
	_, ok := err.(*RunError)
	return ok
}

// GetRunError extracts the RunError from err, or nil.
func GetRunError(err error) *RunError {
	if runErr, ok := err.(*RunError); ok {
		return runErr
	}
	return nil
}

package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error by how the panel reacts to it.
type Kind string

const (
	// KindConnection means the chain or contract could not be reached at session start.
	KindConnection Kind = "CONNECTION"
	// KindValidation means locally detected invalid input; nothing was sent.
	KindValidation Kind = "VALIDATION"
	// KindSubmission means the node rejected or failed a transaction send.
	KindSubmission Kind = "SUBMISSION"
	// KindRead means a contract query failed; the affected section keeps its cached value.
	KindRead Kind = "READ"
	// KindAccess means the session account is not an admin.
	KindAccess Kind = "ACCESS"
	// KindCircuit means the contract is paused.
	KindCircuit Kind = "CIRCUIT_OPEN"
)

// Error carries the kind, the operation or section it happened in, and the
// offending fields for validation failures.
type Error struct {
	Kind   Kind
	Op     string
	Fields []string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Connection wraps a startup connectivity failure.
func Connection(msg string, err error) error {
	return &Error{Kind: KindConnection, Msg: msg, Err: err}
}

// Validation reports invalid input fields for an operation.
func Validation(op, msg string, fields ...string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg, Fields: fields}
}

// Submission wraps a transaction send failure.
func Submission(op string, err error) error {
	return &Error{Kind: KindSubmission, Op: op, Msg: "transaction not completed", Err: err}
}

// Read wraps a failed contract query for a mirror section.
func Read(section string, err error) error {
	return &Error{Kind: KindRead, Op: section, Msg: "contract query failed", Err: err}
}

// Access refuses an operation for a non-admin account.
func Access(op, account string) error {
	return &Error{Kind: KindAccess, Op: op, Msg: fmt.Sprintf("account %s is not an admin", account)}
}

// Circuit refuses an operation while the contract is paused.
func Circuit(op string) error {
	return &Error{Kind: KindCircuit, Op: op, Msg: "contract is paused"}
}

// KindOf returns the kind of the first *Error in the chain, or "" when none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

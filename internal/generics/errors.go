package generics

import (
	"fmt"

	"carbide/internal/source"
)

// FailureKind classifies why a candidate was rejected. Every kind except
// FailHard is soft: the engine moves to the next candidate instead of
// aborting (substitution failure is not an error).
type FailureKind uint8

const (
	FailArity FailureKind = iota
	FailDeduceConflict
	FailUnbound
	FailTypeMismatch
	FailConstraint
	FailDependent
	FailReparse
	FailRecursionLimit
	FailInProgress // the same instantiation is already being resolved
	FailHard       // registry corruption etc., never retried
)

func (k FailureKind) String() string {
	switch k {
	case FailArity:
		return "arity mismatch"
	case FailDeduceConflict:
		return "deduction conflict"
	case FailUnbound:
		return "unbound parameter"
	case FailTypeMismatch:
		return "type mismatch"
	case FailConstraint:
		return "constraint not satisfied"
	case FailDependent:
		return "unresolved dependent name"
	case FailReparse:
		return "body substitution failed"
	case FailRecursionLimit:
		return "instantiation depth exceeded"
	case FailInProgress:
		return "instantiation not yet available"
	case FailHard:
		return "hard error"
	default:
		return "unknown failure"
	}
}

// Failure describes one soft rejection. It is a value, not an error: the
// failing path must stay side-effect free.
type Failure struct {
	Kind       FailureKind
	Msg        string
	Suggestion string
	Span       source.Span
}

func failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Soft reports whether trying the next candidate is allowed.
func (f *Failure) Soft() bool {
	return f != nil && f.Kind != FailHard
}

func (f *Failure) String() string {
	if f == nil {
		return "<nil>"
	}
	if f.Msg == "" {
		return f.Kind.String()
	}
	return f.Kind.String() + ": " + f.Msg
}

// candidateFailure pairs a rejected candidate with its failure, for the
// no-viable-candidate report.
type candidateFailure struct {
	Decl    *GenericDecl
	Failure *Failure
}

package diag

import "fmt"

// Code identifies one diagnostic condition. Ranges are reserved per phase:
// 1xxx lexer, 2xxx syntax, 4xxx template engine, 5xxx registry/internal.
type Code uint16

const (
	UnknownCode Code = 0

	// lexer
	LexInfo                Code = 1000
	LexUnknownChar         Code = 1001
	LexUnterminatedString  Code = 1002
	LexUnterminatedComment Code = 1003

	// syntax
	SynInfo               Code = 2000
	SynUnexpectedToken    Code = 2001
	SynExpectIdentifier   Code = 2002
	SynExpectType         Code = 2003
	SynUnclosedDelimiter  Code = 2004
	SynExpectSemicolon    Code = 2005
	SynBadTemplateHeader  Code = 2006
	SynPackNotLast        Code = 2007
	SynBadDeductionGuide  Code = 2008
	SynExpectExpression   Code = 2009
	SynUnexpectedTopLevel Code = 2010

	// template engine
	TmplInfo                Code = 4000
	TmplNoViableCandidate   Code = 4001
	TmplArityMismatch       Code = 4002
	TmplDeductionConflict   Code = 4003
	TmplUnboundParameter    Code = 4004
	TmplConstraintFailed    Code = 4005
	TmplDependentUnresolved Code = 4006
	TmplBodyReparseFailed   Code = 4007
	TmplRecursionLimit      Code = 4008
	TmplGuideMismatch       Code = 4009

	// registry / internal invariants
	RegInfo            Code = 5000
	RegDuplicate       Code = 5001
	RegUnknownName     Code = 5002
	RegCacheViolation  Code = 5003
	RegInvalidArgument Code = 5004
	RegInternal        Code = 5005
)

func (c Code) String() string {
	return fmt.Sprintf("CB%04d", uint16(c))
}

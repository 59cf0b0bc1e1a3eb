package generics

import (
	"strconv"

	"carbide/internal/ast"
	"carbide/internal/lexer"
	"carbide/internal/symbols"
	"carbide/internal/types"
)

// Reparser is the slice of the parser the engine needs for deferred bodies:
// cursor control over the token stream plus re-entrant block parsing.
// Implemented by parser.Parser; the indirection keeps the engine free of a
// parser dependency.
type Reparser interface {
	Stream() *lexer.Stream
	ReparseDeclarationOrBlock() (*ast.Expr, bool)

	// quiet mode suspends the parser's user-facing diagnostics; a failed
	// trial re-parse is a candidate rejection, not a syntax error
	BeginQuiet()
	EndQuiet()
}

// BodyState tracks one deferred-body resolution through its phases. The
// machine exists so a leaked binding or a missed stream restore shows up as
// a state mismatch instead of silent corruption.
type BodyState uint8

const (
	BodyNotStarted BodyState = iota
	BodyBindingsInstalled
	BodyReparsed
	BodyFinalized
	BodyRejected
)

func (s BodyState) String() string {
	switch s {
	case BodyNotStarted:
		return "not-started"
	case BodyBindingsInstalled:
		return "bindings-installed"
	case BodyReparsed:
		return "reparsed"
	case BodyFinalized:
		return "finalized"
	case BodyRejected:
		return "rejected"
	default:
		return "invalid"
	}
}

// bodyResolution runs one deferred re-parse: save the stream position, seek
// to the recorded body cursor, install trial bindings, parse, then restore
// everything regardless of outcome.
type bodyResolution struct {
	table   *symbols.Table
	rp      Reparser
	state   BodyState
	handles []symbols.BindingHandle
	saved   lexer.Cursor
}

// reparseBody resolves a deferred body under concrete bindings. The
// bindings map parameter names to the deduced concrete types; they shadow
// any same-named table entries and are removed on every exit path.
func reparseBody(table *symbols.Table, rp Reparser, cursor lexer.Cursor, bindings []namedType) (*ast.Expr, *Failure) {
	r := &bodyResolution{table: table, rp: rp, saved: rp.Stream().Pos()}
	defer r.teardown()

	rp.BeginQuiet()
	r.install(bindings)
	rp.Stream().Seek(cursor)

	tree, ok := rp.ReparseDeclarationOrBlock()
	if !ok {
		r.state = BodyRejected
		return nil, failf(FailReparse, "body does not parse for these arguments")
	}
	r.state = BodyReparsed
	return tree, nil
}

// namedType pairs a parameter name with its concrete binding.
type namedType struct {
	Name string
	Type types.TypeID
}

func (r *bodyResolution) install(bindings []namedType) {
	for _, b := range bindings {
		r.handles = append(r.handles, r.table.RegisterTemporaryType(b.Name, b.Type))
	}
	r.state = BodyBindingsInstalled
}

// teardown removes bindings in reverse install order, restores the stream
// and lifts quiet mode. Reverse order matters when two bindings shadow the
// same name.
func (r *bodyResolution) teardown() {
	for i := len(r.handles) - 1; i >= 0; i-- {
		r.table.RemoveTemporaryType(r.handles[i])
	}
	r.handles = nil
	r.rp.Stream().Seek(r.saved)
	r.rp.EndQuiet()
	if r.state == BodyReparsed {
		r.state = BodyFinalized
	}
}

// bindingTypes flattens a binding into the temporary-table entries a body
// re-parse needs: every bound type parameter, plus indexed entries for each
// pack element.
func bindingTypes(b *Binding) []namedType {
	var out []namedType
	for _, p := range b.decl.Params {
		if p.Pack {
			for i, elem := range b.Pack(p.Name) {
				if elem.Kind == ArgType {
					out = append(out, namedType{Name: indexedName(p.Name, i), Type: elem.Type})
				}
			}
			continue
		}
		arg, ok := b.Get(p.Name)
		if ok && arg.Kind == ArgType {
			out = append(out, namedType{Name: p.Name, Type: arg.Type})
		}
	}
	return out
}

// indexedName matches the pack element naming of signature expansion.
func indexedName(base string, i int) string {
	return base + "_" + strconv.Itoa(i)
}

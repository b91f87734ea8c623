// Package compiler wires the whole pipeline together: lex, parse, build
// the typed AST (which owns the symbol table), lower to 3AC, run the
// peephole optimizer, and allocate registers into the final assembly
// text. It is the only package that imports every pipeline stage, and the
// only place a raw stage error gets tagged with the compileerr.Kind the
// CLI's exit-code contract needs.
package compiler

import (
	"microc/internal/ast"
	"microc/internal/compileerr"
	"microc/internal/lexer"
	"microc/internal/parsetree"
	"microc/internal/regalloc"
	"microc/internal/symtable"
	"microc/internal/threeac"
)

// MinRegisterCount is the register-allocator floor: fewer than 8 registers
// is itself a RegAlloc error, not something the CLI silently clamps.
const MinRegisterCount = 8

// Result is a successful compile's output plus anything Stats observed.
type Result struct {
	Assembly string
	AST      []*ast.Function
	Table    *symtable.Table
	Stats    *regalloc.Stats
}

// Options controls observation-only behavior that never changes the
// emitted assembly: WithStats attaches a counter to the allocator pass.
type Options struct {
	WithStats bool
}

// Compile runs the full pipeline over src with regCount registers
// available to the allocator, returning a *compileerr.Error tagged with
// the failing stage on any error.
func Compile(src string, regCount int, opts Options) (*Result, error) {
	if regCount < MinRegisterCount {
		return nil, compileerr.New(compileerr.RegAlloc, &registerCountError{regCount})
	}

	toks, err := lexer.NewScanner(src).ScanTokens()
	if err != nil {
		return nil, compileerr.New(compileerr.Parse, err)
	}

	prog, err := parsetree.Parse(toks)
	if err != nil {
		return nil, compileerr.New(compileerr.Parse, err)
	}

	fns, table, err := ast.Build(prog)
	if err != nil {
		return nil, compileerr.New(classifyASTError(err), err)
	}

	instrs, err := threeac.NewLowerer(table).Program(fns)
	if err != nil {
		return nil, compileerr.New(compileerr.ThreeAC, err)
	}
	instrs = threeac.Optimize(instrs)

	var stats *regalloc.Stats
	if opts.WithStats {
		stats = &regalloc.Stats{}
	}
	asm, err := regalloc.AllocateWithStats(instrs, regCount, stats)
	if err != nil {
		return nil, compileerr.New(compileerr.RegAlloc, err)
	}

	return &Result{Assembly: asm, AST: fns, Table: table, Stats: stats}, nil
}

// classifyASTError distinguishes a genuine Micro-C type violation
// (ast.TypeError, exit 7) from every other ast.Build failure (a missing
// symbol, a redeclaration, a malformed statement — all SymTable-ish,
// generic non-zero exit).
func classifyASTError(err error) compileerr.Kind {
	if ast.IsTypeError(err) {
		return compileerr.Type
	}
	return compileerr.SymTable
}

type registerCountError struct{ n int }

func (e *registerCountError) Error() string {
	return "register count must be at least 8"
}

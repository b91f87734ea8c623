package parsetree

import (
	"testing"

	"microc/internal/lexer"
)

func parse(t *testing.T, src string) *Program {
	t.Helper()
	toks, err := lexer.NewScanner(src).ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Parse(toks)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestGlobalAndStringDecls(t *testing.T) {
	prog := parse(t, `int g; string s = "hello"; `)
	if len(prog.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(prog.Decls))
	}
	if prog.Decls[0].Rule != RuleVarDecl || prog.Decls[0].Name != "g" {
		t.Errorf("decl 0 = %+v", prog.Decls[0])
	}
	if prog.Decls[1].Rule != RuleStrDecl || prog.Decls[1].StrValue != "hello" {
		t.Errorf("decl 1 = %+v", prog.Decls[1])
	}
}

func TestFunctionDefWithLocalsAndIfElse(t *testing.T) {
	src := `
	int main() {
		int a;
		a = 1 + 2;
		if (a == 1) {
			print(a);
		} else {
			a = 0;
		}
		return a;
	}`
	prog := parse(t, src)
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(prog.Decls))
	}
	fn := prog.Decls[0]
	if fn.Rule != RuleFuncDef || fn.Name != "main" {
		t.Fatalf("got %+v", fn)
	}
	if len(fn.VarDecls) != 1 || fn.VarDecls[0].Name != "a" {
		t.Errorf("var decls = %+v", fn.VarDecls)
	}
	if len(fn.Body) != 3 {
		t.Fatalf("got %d statements, want 3: %+v", len(fn.Body), fn.Body)
	}
	if fn.Body[0].Rule != RuleAssignStmt {
		t.Errorf("stmt 0 rule = %s", fn.Body[0].Rule)
	}
	ifStmt := fn.Body[1]
	if ifStmt.Rule != RuleIfStmt {
		t.Fatalf("stmt 1 rule = %s", ifStmt.Rule)
	}
	if len(ifStmt.Then) != 1 || ifStmt.Then[0].CallKind != CallPrint {
		t.Errorf("then branch = %+v", ifStmt.Then)
	}
	if len(ifStmt.Else) != 1 {
		t.Errorf("else branch = %+v", ifStmt.Else)
	}
	if fn.Body[2].Rule != RuleReturnStmt || len(fn.Body[2].Value) == 0 {
		t.Errorf("return stmt = %+v", fn.Body[2])
	}
}

func TestFunctionCallAndPointerParam(t *testing.T) {
	prog := parse(t, `int add(int *p, int n) { return *p + n; } `)
	fn := prog.Decls[0]
	if len(fn.Params) != 2 || fn.Params[0].Type.Stars != 1 || fn.Params[1].Type.Stars != 0 {
		t.Errorf("params = %+v", fn.Params)
	}
}

func TestCallStatementArgs(t *testing.T) {
	prog := parse(t, `
	int g;
	int main() {
		g = add(1, 2);
		free(g);
	}`)
	fn := prog.Decls[1]
	if fn.Body[0].Rule != RuleAssignStmt {
		t.Fatalf("stmt 0 = %+v", fn.Body[0])
	}
	if fn.Body[1].Rule != RuleCallStmt || fn.Body[1].CallKind != CallFree {
		t.Errorf("stmt 1 = %+v", fn.Body[1])
	}
}

package lexer

import "testing"

func TestScanTokensBasic(t *testing.T) {
	src := `int main() { int a; a = 1 + 2; return a; }`
	toks, err := NewScanner(src).ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenType{
		TokenInt, TokenIdent, TokenLParen, TokenRParen, TokenLBrace,
		TokenInt, TokenIdent, TokenSemi,
		TokenIdent, TokenAssign, TokenIntLit, TokenPlus, TokenIntLit, TokenSemi,
		TokenReturn, TokenIdent, TokenSemi,
		TokenRBrace, TokenEOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
}

func TestScanFloatAndString(t *testing.T) {
	toks, err := NewScanner(`float x = 3.5; print("hi");`).ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	if toks[3].Type != TokenFloatLit || toks[3].Lexeme != "3.5" {
		t.Errorf("got %v, want FLOAT_LIT 3.5", toks[3])
	}
	foundStr := false
	for _, tk := range toks {
		if tk.Type == TokenStringLit && tk.Lexeme == "hi" {
			foundStr = true
		}
	}
	if !foundStr {
		t.Error("expected a STRING_LIT \"hi\" token")
	}
}

func TestUnterminatedStringIsAnError(t *testing.T) {
	if _, err := NewScanner(`"unterminated`).ScanTokens(); err == nil {
		t.Error("expected an error for an unterminated string literal")
	}
}

func TestLineCommentsAreSkipped(t *testing.T) {
	toks, err := NewScanner("int a; // a comment\nint b;").ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, tk := range toks {
		if tk.Type == TokenInt {
			count++
		}
	}
	if count != 2 {
		t.Errorf("got %d INT tokens, want 2", count)
	}
}

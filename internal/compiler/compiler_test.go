package compiler

import "testing"

type compilerTestCase struct {
	input string
}

func TestCompilerSmoke(t *testing.T) {
	tests := []compilerTestCase{
		{"1 + 2;"},
		{"var x = 1; print x;"},
		{"if (true) { print 1; } else { print 2; }"},
		{"while (false) { print 1; }"},
		{"for (var i = 0; i < 3; i = i + 1) { print i; }"},
		{"fun add(a, b) { return a + b; } print add(1, 2);"},
	}
	runCompilerTests(t, tests)
}

func TestCompilerReportsErrors(t *testing.T) {
	tests := []string{
		"var;",
		"1 +;",
		"print",
		"fun f( { }",
		"x = 1",
	}
	for _, input := range tests {
		_, _, errs := Compile(input)
		if len(errs) == 0 {
			t.Errorf("expected a compile error for %q, got none", input)
		}
	}
}

func TestCompilerRejectsOwnInitializerReference(t *testing.T) {
	_, _, errs := Compile("{ var a = a; }")
	if len(errs) == 0 {
		t.Fatalf("expected a compile error for self-referential initializer")
	}
}

func TestCompilerRejectsInvalidAssignmentTarget(t *testing.T) {
	_, _, errs := Compile("1 + 2 = 3;")
	if len(errs) == 0 {
		t.Fatalf("expected a compile error for an invalid assignment target")
	}
}

func runCompilerTests(t *testing.T, tests []compilerTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Logf("compiling: %s", tt.input)
		_, store, errs := Compile(tt.input)
		if len(errs) > 0 {
			t.Fatalf("compiler error for input %q: %v", tt.input, errs[0])
		}
		if store.Len() < 1 {
			t.Fatalf("expected at least the root chunk for input %q", tt.input)
		}
	}
}

package vm

import (
	"testing"

	"noxy-vm/internal/value"
)

type vmTestCase struct {
	input    string
	expected interface{}
}

func TestArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"return 1;", 1.0},
		{"return 2;", 2.0},
		{"return 1 + 2;", 3.0},
		{"return 1 - 2;", -1.0},
		{"return 1 * 2;", 2.0},
		{"return 4 / 2;", 2.0},
		{"return 50 / 2 * 2 + 10;", 60.0},
		{"return 2 * (5 + 10);", 30.0},
		{"return 3 * 3 * 3 + 10;", 37.0},
		{"return (5 + 10 * 2 + 15 / 3) * 2 + -10;", 50.0},
	}
	runVMTests(t, tests)
}

func TestBooleanLogic(t *testing.T) {
	tests := []vmTestCase{
		{"return true;", true},
		{"return false;", false},
		{"return 1 < 2;", true},
		{"return 1 > 2;", false},
		{"return 1 == 1;", true},
		{"return 1 != 1;", false},
		{"return !true;", false},
		{"return !false;", true},
		{"return !nil;", true},
		{"return !0;", false},
		{"return (1 < 2) == true;", true},
		{"return true and false;", false},
		{"return true and true;", true},
		{"return false or true;", true},
		{"return false or false;", false},
	}
	runVMTests(t, tests)
}

func TestStringConcatenation(t *testing.T) {
	tests := []vmTestCase{
		{`return "foo" + "bar";`, "foobar"},
		{`return "count: " + 3;`, "count: 3"},
		{`return 3 + " apples";`, "3 apples"},
	}
	runVMTests(t, tests)
}

func TestGlobalVariables(t *testing.T) {
	tests := []vmTestCase{
		{"var x = 5; return x;", 5.0},
		{"var x = 5; x = x + 1; return x;", 6.0},
		{"var x; return x;", nil},
	}
	runVMTests(t, tests)
}

func TestLocalScopesAndControlFlow(t *testing.T) {
	tests := []vmTestCase{
		{"var x = 1; { var x = 2; } return x;", 1.0},
		{"var total = 0; for (var i = 0; i < 5; i = i + 1) { total = total + i; } return total;", 10.0},
		{"var n = 3; var r = 1; while (n > 0) { r = r * n; n = n - 1; } return r;", 6.0},
		{"if (true) { return 1; } return 2;", 1.0},
		{"if (false) { return 1; } return 2;", 2.0},
	}
	runVMTests(t, tests)
}

func TestFunctionsAndRecursion(t *testing.T) {
	tests := []vmTestCase{
		{"fun add(a, b) { return a + b; } return add(2, 3);", 5.0},
		{`
		fun fib(n) {
			if (n < 2) { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		return fib(10);
		`, 55.0},
		{`
		fun counter() {
			var i = 0;
			i = i + 1;
			return i;
		}
		counter();
		return counter();
		`, 1.0},
	}
	runVMTests(t, tests)
}

func TestNativeFunctions(t *testing.T) {
	tests := []vmTestCase{
		{"return sin(0);", 0.0},
	}
	runVMTests(t, tests)
}

func TestSortedGlobalNamesIsStableAndAlphabetical(t *testing.T) {
	vm := New()
	if _, err := vm.Interpret("var zebra = 1; var apple = 2; fun mango() { return 3; }"); err != nil {
		t.Fatalf("interpret: %s", err)
	}

	names := vm.SortedGlobalNames()
	want := []string{"apple", "clock", "mango", "sin", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestFunctionDeclaredOnOnePersistedCallRemainsCallableOnTheNext(t *testing.T) {
	vm := New()
	if _, err := vm.Interpret("fun f() { return 1; }"); err != nil {
		t.Fatalf("first interpret: %s", err)
	}
	// A second, independent Interpret call compiles into a fresh script
	// chunk but must not disturb the chunk f's body lives in — this is
	// the REPL's one-persistent-VM contract (spec §6.2): a function
	// declared on one line has to still be callable on a later one.
	result, err := vm.Interpret("return f();")
	if err != nil {
		t.Fatalf("second interpret: %s", err)
	}
	if result.Type != value.Number || result.Num != 1 {
		t.Fatalf("got %s, want number 1", result.String())
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []string{
		`return x;`,
		`return 1 + true;`,
		`return -"oops";`,
		`fun f(a, b) { return a; } return f(1);`,
		`return nil();`,
	}
	for _, input := range tests {
		vm := New()
		if _, err := vm.Interpret(input); err == nil {
			t.Errorf("expected runtime error for %q, got none", input)
		}
	}
}

func runVMTests(t *testing.T, tests []vmTestCase) {
	t.Helper()
	for _, tt := range tests {
		vm := New()
		result, err := vm.Interpret(tt.input)
		if err != nil {
			t.Fatalf("vm error for %q: %s", tt.input, err)
		}
		assertExpected(t, tt.input, tt.expected, result)
	}
}

func assertExpected(t *testing.T, input string, expected interface{}, actual value.Value) {
	t.Helper()
	switch want := expected.(type) {
	case float64:
		if actual.Type != value.Number || actual.Num != want {
			t.Errorf("%q: got=%s, want number %v", input, actual.String(), want)
		}
	case bool:
		if actual.Type != value.Boolean || actual.Bool != want {
			t.Errorf("%q: got=%s, want bool %v", input, actual.String(), want)
		}
	case string:
		if actual.Type != value.String || actual.Str != want {
			t.Errorf("%q: got=%s, want string %q", input, actual.String(), want)
		}
	case nil:
		if actual.Type != value.Nil {
			t.Errorf("%q: got=%s, want nil", input, actual.String())
		}
	default:
		t.Fatalf("%q: unsupported expectation type %T", input, expected)
	}
}

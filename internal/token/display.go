package token

var display = map[Type]string{
	LeftParen:  "'('",
	RightParen: "')'",
	LeftBrace:  "'{'",
	RightBrace: "'}'",
	Comma:      "','",
	Dot:        "'.'",
	Minus:      "'-'",
	Plus:       "'+'",
	Semicolon:  "';'",
	Slash:      "'/'",
	Star:       "'*'",

	Bang:         "'!'",
	BangEqual:    "'!='",
	Equal:        "'='",
	EqualEqual:   "'=='",
	Greater:      "'>'",
	GreaterEqual: "'>='",
	Less:         "'<'",
	LessEqual:    "'<='",

	Identifier: "identifier",
	String:     "string",
	Number:     "number",

	And:    "'and'",
	Class:  "'class'",
	Else:   "'else'",
	False:  "'false'",
	For:    "'for'",
	Fun:    "'fun'",
	If:     "'if'",
	Nil:    "'nil'",
	Or:     "'or'",
	Print:  "'print'",
	Return: "'return'",
	Super:  "'super'",
	This:   "'this'",
	True:   "'true'",
	Var:    "'var'",
	While:  "'while'",

	Error: "invalid token",
	EOF:   "end of file",
}

// Display renders a Type for use in a human-facing diagnostic message,
// e.g. "Expect expression, found 'while'".
func (t Type) Display() string {
	if s, ok := display[t]; ok {
		return s
	}
	return string(t)
}

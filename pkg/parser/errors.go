package parser

import "fmt"

// ParseError reports a syntax error with source position and the token
// classes the parser would have accepted instead (§4.3, §7).
type ParseError struct {
	Line     int
	Column   int
	Found    string
	Expected []string
}

func (e *ParseError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("parse error at %d:%d: unexpected %s", e.Line, e.Column, e.Found)
	}
	return fmt.Sprintf("parse error at %d:%d: unexpected %s, expected one of %v", e.Line, e.Column, e.Found, e.Expected)
}

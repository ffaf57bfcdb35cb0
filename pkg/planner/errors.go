package planner

import "fmt"

// SemanticErrorKind names the category of a semantic validation failure
// raised while lowering an AST to a LogicalPlan (§4.4).
type SemanticErrorKind string

const (
	ColumnNameConflict SemanticErrorKind = "ColumnNameConflict"
	NoExpressionAlias  SemanticErrorKind = "NoExpressionAlias"
	UndefinedVariable  SemanticErrorKind = "UndefinedVariable"
	UnionShapeMismatch SemanticErrorKind = "UnionShapeMismatch"
)

// SemanticError is a plan-time validation failure.
type SemanticError struct {
	Kind    SemanticErrorKind
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("SemanticError:%s: %s", e.Kind, e.Message)
}

func semErr(kind SemanticErrorKind, format string, args ...interface{}) error {
	return &SemanticError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

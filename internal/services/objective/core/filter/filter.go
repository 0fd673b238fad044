// Package filter translates AIP-160 filter expressions over objective views
// into SQL conditions.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ObjectiveDeclarations returns the identifiers a ListObjectives filter may use.
func ObjectiveDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("title", filtering.TypeString),
		filtering.DeclareIdent("period", filtering.TypeString),
		filtering.DeclareIdent("user_id", filtering.TypeString),
		filtering.DeclareIdent("org_unit_id", filtering.TypeString),
		filtering.DeclareIdent("deleted", filtering.TypeBool),
		filtering.DeclareIdent("progress", filtering.TypeInt),
		filtering.DeclareIdent("key_result_count", filtering.TypeInt),
	)
}

// SQLCondition is a WHERE clause fragment with positional parameters.
type SQLCondition struct {
	Clause string
	Params []any
}

// Empty reports whether the condition matches everything.
func (c SQLCondition) Empty() bool {
	return c.Clause == ""
}

var columns = map[string]string{
	"title":            "title",
	"period":           "period",
	"user_id":          "user_id",
	"org_unit_id":      "org_unit_id",
	"deleted":          "deleted",
	"progress":         "progress",
	"key_result_count": "key_result_count",
}

var booleans = map[string]bool{"deleted": true}

// ParseObjectiveFilter parses and type-checks filterStr. An empty filter
// yields an empty condition.
func ParseObjectiveFilter(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}
	decls, err := ObjectiveDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translate(parsed.CheckedExpr.GetExpr())
}

func translate(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// bare boolean field, e.g. "deleted" or "NOT deleted"
		name := kind.IdentExpr.Name
		if !booleans[name] {
			return SQLCondition{}, fmt.Errorf("field %s is not boolean", name)
		}
		return SQLCondition{Clause: columns[name] + " = 1"}, nil
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return translateJunction(call.Args, "AND")
	case "_||_", "OR":
		return translateJunction(call.Args, "OR")
	case "!_", "NOT":
		if len(call.Args) != 1 {
			return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translate(call.Args[0])
		if err != nil {
			return SQLCondition{}, err
		}
		return SQLCondition{Clause: "NOT (" + inner.Clause + ")", Params: inner.Params}, nil
	case "_==_", "=":
		return translateComparison(call.Args, "=")
	case "_!=_", "!=":
		return translateComparison(call.Args, "!=")
	case "_<_", "<":
		return translateComparison(call.Args, "<")
	case "_<=_", "<=":
		return translateComparison(call.Args, "<=")
	case "_>_", ">":
		return translateComparison(call.Args, ">")
	case "_>=_", ">=":
		return translateComparison(call.Args, ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateJunction(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translate(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	right, err := translate(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	params := make([]any, 0, len(left.Params)+len(right.Params))
	params = append(params, left.Params...)
	params = append(params, right.Params...)
	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: params,
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	column, err := columnOf(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	value, err := constantOf(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	if s, ok := value.(string); ok && strings.Contains(s, "*") && (op == "=" || op == "!=") {
		like := "LIKE"
		if op == "!=" {
			like = "NOT LIKE"
		}
		return SQLCondition{
			Clause: fmt.Sprintf("%s %s ?", column, like),
			Params: []any{strings.ReplaceAll(s, "*", "%")},
		}, nil
	}
	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func columnOf(e *expr.Expr) (string, error) {
	ident, ok := e.GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return "", fmt.Errorf("expected identifier, got %T", e.GetExprKind())
	}
	column, ok := columns[ident.IdentExpr.Name]
	if !ok {
		return "", fmt.Errorf("unknown field: %s", ident.IdentExpr.Name)
	}
	return column, nil
}

func constantOf(e *expr.Expr) (any, error) {
	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant, got %T", e.GetExprKind())
	}
	switch kind := c.ConstExpr.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

// Package filter translates AIP-160 filter expressions into SQL conditions
// against a per-entity schema.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ErrInvalid wraps every parse or translation failure.
var ErrInvalid = errors.New("invalid filter")

// Kind is the filter-visible type of a field.
type Kind int

const (
	String Kind = iota
	Int
	Bool
	// Timestamp fields are stored as unix milliseconds and compared with
	// timestamp("RFC3339") literals.
	Timestamp
)

// Field maps a filter identifier to its column.
type Field struct {
	Column string
	Kind   Kind
}

// Schema is the set of filterable fields for one entity.
type Schema map[string]Field

// Condition is a SQL WHERE clause fragment with positional parameters.
type Condition struct {
	Clause string
	Params []any
}

// Empty reports whether the condition adds no constraint.
func (c Condition) Empty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

// Parse parses an AIP-160 filter and translates it against schema. An empty
// filter yields an empty condition.
func Parse(schema Schema, raw string) (Condition, error) {
	if strings.TrimSpace(raw) == "" {
		return Condition{}, nil
	}
	decls, err := schema.declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(raw, decls)
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	t := translator{schema: schema}
	cond, err := t.expr(parsed.CheckedExpr.GetExpr())
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cond, nil
}

func (s Schema) declarations() (*filtering.Declarations, error) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := []filtering.DeclarationOption{
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("true", filtering.TypeBool),
		filtering.DeclareIdent("false", filtering.TypeBool),
	}
	for _, name := range names {
		opts = append(opts, filtering.DeclareIdent(name, s[name].Kind.exprType()))
	}
	return filtering.NewDeclarations(opts...)
}

func (k Kind) exprType() *expr.Type {
	switch k {
	case Int:
		return filtering.TypeInt
	case Bool:
		return filtering.TypeBool
	case Timestamp:
		return filtering.TypeTimestamp
	default:
		return filtering.TypeString
	}
}

type translator struct {
	schema Schema
}

func (t translator) expr(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return t.call(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// A bare boolean field reads as "field = true".
		field, ok := t.schema[kind.IdentExpr.Name]
		if !ok || field.Kind != Bool {
			return Condition{}, fmt.Errorf("field %q is not a boolean", kind.IdentExpr.Name)
		}
		return Condition{Clause: field.Column + " = ?", Params: []any{1}}, nil
	default:
		return Condition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func (t translator) call(call *expr.Expr_Call) (Condition, error) {
	switch call.Function {
	case filtering.FunctionAnd, "_&&_":
		return t.join(call.Args, "AND")
	case filtering.FunctionOr, "_||_":
		return t.join(call.Args, "OR")
	case filtering.FunctionNot:
		if len(call.Args) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := t.expr(call.Args[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "NOT (" + inner.Clause + ")", Params: inner.Params}, nil
	case filtering.FunctionEquals:
		return t.comparison(call.Args, "=")
	case filtering.FunctionNotEquals:
		return t.comparison(call.Args, "!=")
	case filtering.FunctionLessThan:
		return t.comparison(call.Args, "<")
	case filtering.FunctionLessEquals:
		return t.comparison(call.Args, "<=")
	case filtering.FunctionGreaterThan:
		return t.comparison(call.Args, ">")
	case filtering.FunctionGreaterEquals:
		return t.comparison(call.Args, ">=")
	case filtering.FunctionHas:
		return t.has(call.Args)
	default:
		return Condition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func (t translator) join(args []*expr.Expr, op string) (Condition, error) {
	if len(args) < 2 {
		return Condition{}, fmt.Errorf("%s requires at least 2 arguments", op)
	}
	clauses := make([]string, 0, len(args))
	var params []any
	for _, arg := range args {
		cond, err := t.expr(arg)
		if err != nil {
			return Condition{}, err
		}
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	return Condition{
		Clause: "(" + strings.Join(clauses, " "+op+" ") + ")",
		Params: params,
	}, nil
}

func (t translator) comparison(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	field, err := t.field(args[0])
	if err != nil {
		return Condition{}, err
	}
	value, err := t.value(field, args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("%s %s ?", field.Column, op),
		Params: []any{value},
	}, nil
}

// has translates `field:"text"` into a case-insensitive substring match on
// string fields.
func (t translator) has(args []*expr.Expr) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("has requires 2 arguments")
	}
	field, err := t.field(args[0])
	if err != nil {
		return Condition{}, err
	}
	if field.Kind != String {
		return Condition{}, fmt.Errorf("has is only supported on text fields")
	}
	value, err := t.value(field, args[1])
	if err != nil {
		return Condition{}, err
	}
	text, _ := value.(string)
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(text)
	return Condition{
		Clause: fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, field.Column),
		Params: []any{"%" + strings.ToLower(escaped) + "%"},
	}, nil
}

func (t translator) field(e *expr.Expr) (Field, error) {
	ident, ok := e.GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return Field{}, fmt.Errorf("expected field name, got %T", e.GetExprKind())
	}
	field, ok := t.schema[ident.IdentExpr.Name]
	if !ok {
		return Field{}, fmt.Errorf("unknown field: %s", ident.IdentExpr.Name)
	}
	return field, nil
}

func (t translator) value(field Field, e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		if field.Kind == Timestamp {
			return timestampValue(e)
		}
		return constValue(field, kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		// Boolean literals parse as the identifiers true and false.
		switch kind.IdentExpr.Name {
		case "true":
			return 1, nil
		case "false":
			return 0, nil
		}
		return nil, fmt.Errorf("unexpected identifier %q in value position", kind.IdentExpr.Name)
	case *expr.Expr_CallExpr:
		if kind.CallExpr.Function == filtering.FunctionTimestamp && len(kind.CallExpr.Args) == 1 {
			return timestampValue(kind.CallExpr.Args[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
	default:
		return nil, fmt.Errorf("expected constant, got %T", kind)
	}
}

func constValue(field Field, c *expr.Constant) (any, error) {
	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		if kind.BoolValue {
			return 1, nil
		}
		return 0, nil
	default:
		return nil, fmt.Errorf("unsupported constant for %s: %T", field.Column, kind)
	}
}

func timestampValue(e *expr.Expr) (int64, error) {
	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
	s, ok := c.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return 0, fmt.Errorf("timestamp argument must be a string")
	}
	parsed, err := time.Parse(time.RFC3339Nano, s.StringValue)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp format: %s", s.StringValue)
	}
	return parsed.UTC().UnixMilli(), nil
}

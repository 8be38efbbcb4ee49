package dto

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

const (
	FilterOperatorEq        = "eq"
	FilterOperatorLike      = "like"
	FilterOperatorIn        = "in"
	FilterOperatorNotEq     = "not_eq"
	FilterOperatorLessEq    = "less_eq"
	FilterOperatorGreaterEq = "greater_eq"
)

const (
	FilterGroupOperatorAnd = "AND"
	FilterGroupOperatorOr  = "OR"
)

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var comparisons = map[string]string{
	FilterOperatorEq:        "=",
	FilterOperatorNotEq:     "!=",
	FilterOperatorLessEq:    "<=",
	FilterOperatorGreaterEq: ">=",
}

// Filter renders one named-parameter predicate for sqlx.Named.
type Filter struct {
	ArgName  string
	Field    string
	Value    any
	Operator string `validate:"required,oneof=eq like in not_eq less_eq greater_eq"`
	Table    string
}

func (f *Filter) column() string {
	if f.Table == "" {
		return f.Field
	}

	return f.Table + "." + f.Field
}

func (f *Filter) argName() string {
	if f.ArgName == "" {
		return f.Field
	}

	return f.ArgName
}

func (f *Filter) GetWhereClause() (string, map[string]any) {
	column, name := f.column(), f.argName()

	if symbol, ok := comparisons[f.Operator]; ok {
		return fmt.Sprintf("%s %s :%s", column, symbol, name), map[string]any{name: f.Value}
	}

	switch f.Operator {
	case FilterOperatorLike:
		return fmt.Sprintf(`LOWER(%s) LIKE LOWER(:%s) ESCAPE '\'`, column, name), map[string]any{name: "%" + likeEscaper.Replace(fmt.Sprint(f.Value)) + "%"}
	case FilterOperatorIn:
		return f.inClause(column, name)
	}

	return "", map[string]any{}
}

// inClause expands a slice into one placeholder per element. An empty slice matches nothing.
func (f *Filter) inClause(column, name string) (string, map[string]any) {
	args := map[string]any{}

	val := reflect.ValueOf(f.Value)
	if kind := val.Kind(); kind != reflect.Slice && kind != reflect.Array {
		args[name] = f.Value

		return fmt.Sprintf("%s IN (:%s)", column, name), args
	}

	if val.Len() == 0 {
		return "FALSE", args
	}

	placeholders := make([]string, 0, val.Len())

	for idx := range val.Len() {
		key := fmt.Sprintf("%s_%d", name, idx)
		args[key] = val.Index(idx).Interface()
		placeholders = append(placeholders, ":"+key)
	}

	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

type FilterGroup struct {
	Filters  []any
	Operator string
}

func (f *FilterGroup) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	clauses := make([]string, 0, len(f.Filters))

	for _, item := range f.Filters {
		var (
			where string
			arg   map[string]any
		)

		switch typed := item.(type) {
		case Filter:
			where, arg = typed.GetWhereClause()
		case FilterGroup:
			where, arg = typed.GetWhereClause()
		default:
			continue
		}

		if where == "" {
			continue
		}

		clauses = append(clauses, where)
		maps.Copy(args, arg)
	}

	if len(clauses) == 0 {
		return "", args
	}

	operator := f.Operator
	if operator == "" {
		operator = FilterGroupOperatorAnd
	}

	return "(" + strings.Join(clauses, " "+operator+" ") + ")", args
}

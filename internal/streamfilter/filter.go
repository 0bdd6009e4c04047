// Package streamfilter compiles CEL expressions that select which movie-info
// events a stream subscriber receives.
//
// Expressions see these variables:
//
//	name          string
//	year          int
//	cast          list(string)
//	release_date  string, "YYYY-MM-DD" or "" when unknown
//	movie         the record as its JSON object
//
// For example: year >= 2005 && "Christian Bale" in cast
package streamfilter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/Clark-Hu/reactive-movies/internal/domain"
)

// Filter is a compiled expression. The zero value matches everything.
type Filter struct {
	prog cel.Program
	expr string
}

// Compile parses and type-checks expr. A blank expression compiles to a
// filter that matches every record.
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("year", cel.IntType),
		cel.Variable("cast", cel.ListType(cel.StringType)),
		cel.Variable("release_date", cel.StringType),
		cel.Variable("movie", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, fmt.Errorf("parse filter: %w", iss.Err())
	}
	checked, iss := env.Check(ast)
	if iss != nil && iss.Err() != nil {
		return Filter{}, fmt.Errorf("check filter: %w", iss.Err())
	}
	if out := checked.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return Filter{}, fmt.Errorf("filter must evaluate to bool, got %s", out)
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, expr: expr}, nil
}

// String returns the source expression.
func (f Filter) String() string { return f.expr }

// Match reports whether info satisfies the expression. Evaluation errors and
// non-bool results count as a mismatch.
func (f Filter) Match(info domain.MovieInfo) bool {
	if f.prog == nil {
		return true
	}
	releaseDate := ""
	if !info.ReleaseDate.IsZero() {
		releaseDate = info.ReleaseDate.String()
	}
	cast := info.Cast
	if cast == nil {
		cast = []string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"name":         info.Name,
		"year":         int64(info.Year),
		"cast":         cast,
		"release_date": releaseDate,
		"movie":        asJSONObject(info),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

func asJSONObject(info domain.MovieInfo) map[string]any {
	obj := map[string]any{}
	raw, err := json.Marshal(info)
	if err != nil {
		return obj
	}
	_ = json.Unmarshal(raw, &obj)
	return obj
}

package testutil

import (
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// filterExpr is a parsed query-target-filter expression.
type filterExpr struct {
	op    string
	prop  string
	value string
	args  []filterExpr
}

// parseFilter understands eq, ne, wcard, and, or. An empty expression
// matches everything.
func parseFilter(raw string) (filterExpr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return filterExpr{op: "all"}, nil
	}

	open := strings.IndexByte(raw, '(')
	if open <= 0 || !strings.HasSuffix(raw, ")") {
		return filterExpr{}, errors.Newf("malformed filter %q", raw)
	}

	op := raw[:open]
	args := splitArgs(raw[open+1 : len(raw)-1])

	switch op {
	case "and", "or":
		expr := filterExpr{op: op}
		for _, arg := range args {
			sub, err := parseFilter(arg)
			if err != nil {
				return filterExpr{}, err
			}
			expr.args = append(expr.args, sub)
		}
		return expr, nil
	case "eq", "ne", "wcard":
		if len(args) != 2 {
			return filterExpr{}, errors.Newf("%s expects two arguments in %q", op, raw)
		}
		value := strings.TrimSpace(args[1])
		if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
			return filterExpr{}, errors.New("filter value must be quoted")
		}
		return filterExpr{op: op, prop: strings.TrimSpace(args[0]), value: value[1 : len(value)-1]}, nil
	default:
		return filterExpr{}, errors.Newf("unsupported filter operator %q", op)
	}
}

// splitArgs splits on commas that are outside parentheses and quotes.
func splitArgs(raw string) []string {
	var (
		args    []string
		depth   int
		quoted  bool
		current strings.Builder
	)

	for _, r := range raw {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			args = append(args, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}

func (f filterExpr) match(obj storedObject) bool {
	switch f.op {
	case "all":
		return true
	case "and":
		for _, arg := range f.args {
			if !arg.match(obj) {
				return false
			}
		}
		return true
	case "or":
		for _, arg := range f.args {
			if arg.match(obj) {
				return true
			}
		}
		return false
	}

	class, attr, ok := strings.Cut(f.prop, ".")
	if !ok {
		return false
	}

	// Properties of other classes do not constrain this object
	if class != obj.class {
		return f.op == "ne"
	}

	actual := obj.attributes[attr]

	switch f.op {
	case "eq":
		return actual == f.value
	case "ne":
		return actual != f.value
	case "wcard":
		matched, err := path.Match("*"+f.value+"*", actual)
		return err == nil && matched
	default:
		return false
	}
}

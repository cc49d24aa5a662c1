package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/asaidimu/go-maktaba/core/query"
)

// querySpec collects the query-shaping options a command line supplies,
// shared by the query command's flags and the shell's pipeline stages.
// Limit and skip arrive as strings: parsing numbers is this layer's job,
// the builder itself accepts integers only.
type querySpec struct {
	wheres      []string
	search      string
	searchField string
	sorts       []string
	only        []string
	limit       string
	skip        string
	surround    string
	before      int
	after       int
}

// apply drives the builder with every option set on the spec. Parse
// failures are usage errors reported before the engine is touched.
func (spec *querySpec) apply(qb *query.QueryBuilder) error {
	for _, raw := range spec.wheres {
		filter, err := parseWhere(raw)
		if err != nil {
			return err
		}
		qb.Where(filter)
	}
	if spec.search != "" {
		qb.Search(spec.search)
	}
	if spec.searchField != "" {
		field, text, found := strings.Cut(spec.searchField, "=")
		if !found || field == "" || text == "" {
			return fmt.Errorf("invalid search field %q: want field=text", spec.searchField)
		}
		qb.SearchField(field, text)
	}
	for _, raw := range spec.sorts {
		field, direction := parseSort(raw)
		if field == "" {
			return fmt.Errorf("invalid sort %q: want field or field:desc", raw)
		}
		qb.SortBy(field, direction)
	}
	if len(spec.only) > 0 {
		qb.Only(spec.only...)
	}
	if spec.surround != "" {
		qb.Surround(spec.surround, &query.SurroundOptions{Before: spec.before, After: spec.after})
	}
	if spec.limit != "" {
		n, err := parseCount("limit", spec.limit)
		if err != nil {
			return err
		}
		qb.Limit(n)
	}
	if spec.skip != "" {
		n, err := parseCount("skip", spec.skip)
		if err != nil {
			return err
		}
		qb.Skip(n)
	}
	return nil
}

// parseWhere parses a filter of the form field=op:value. The operator
// must be a standard comparison operator; exists and nexists take no
// value, and in/nin split their value on commas.
func parseWhere(raw string) (query.QueryFilter, error) {
	field, rest, found := strings.Cut(raw, "=")
	if !found || field == "" {
		return query.QueryFilter{}, fmt.Errorf("invalid filter %q: want field=op:value", raw)
	}
	opToken, value, hasValue := strings.Cut(rest, ":")
	op := query.ComparisonOperator(opToken)
	if !op.IsStandard() {
		return query.QueryFilter{}, fmt.Errorf("unknown operator %q in filter %q", opToken, raw)
	}

	switch op {
	case query.ComparisonOperatorExists, query.ComparisonOperatorNotExists:
		return query.CreateSimpleFilter(field, op, nil), nil
	case query.ComparisonOperatorIn, query.ComparisonOperatorNin:
		if !hasValue || value == "" {
			return query.QueryFilter{}, fmt.Errorf("filter %q needs comma-separated values", raw)
		}
		parts := strings.Split(value, ",")
		items := make([]any, len(parts))
		for i, part := range parts {
			items[i] = typedValue(part)
		}
		return query.CreateSimpleFilter(field, op, items), nil
	}

	if !hasValue {
		return query.QueryFilter{}, fmt.Errorf("filter %q needs a value: field=%s:value", raw, opToken)
	}
	return query.CreateSimpleFilter(field, op, typedValue(value)), nil
}

// typedValue guesses the Go type of a flag value: booleans and numbers
// convert, everything else stays a string.
func typedValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// parseSort splits field or field:desc. Any direction other than the
// literal desc sorts ascending, matching the builder's contract.
func parseSort(raw string) (string, query.SortDirection) {
	field, direction, _ := strings.Cut(raw, ":")
	return field, query.SortDirection(direction)
}

// parseCount parses a numeric limit or skip string.
func parseCount(name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: not an integer", name, raw)
	}
	return n, nil
}

// parsePipeline parses a shell line of the form
//
//	<collection> | where field op value | sort field desc | limit 5
//
// into the target collection and a query spec. Stage arguments are
// rendered back into the flag syntax so both front ends share one parser.
func parsePipeline(input string) (string, *querySpec, error) {
	segments := strings.Split(input, "|")
	collection := strings.TrimSpace(segments[0])
	if collection == "" || len(strings.Fields(collection)) > 1 {
		return "", nil, fmt.Errorf("pipeline must start with a collection name")
	}

	spec := &querySpec{before: 1, after: 1}
	for _, segment := range segments[1:] {
		words := strings.Fields(segment)
		if len(words) == 0 {
			return "", nil, fmt.Errorf("empty pipeline stage")
		}
		stage, args := words[0], words[1:]
		switch stage {
		case "where":
			switch {
			case len(args) == 2:
				// where field exists
				spec.wheres = append(spec.wheres, args[0]+"="+args[1])
			case len(args) >= 3:
				spec.wheres = append(spec.wheres, args[0]+"="+args[1]+":"+strings.Join(args[2:], " "))
			default:
				return "", nil, fmt.Errorf("where wants: where <field> <op> <value>")
			}
		case "search":
			if len(args) == 0 {
				return "", nil, fmt.Errorf("search wants: search <text>")
			}
			spec.search = strings.Join(args, " ")
		case "search-field":
			if len(args) < 2 {
				return "", nil, fmt.Errorf("search-field wants: search-field <field> <text>")
			}
			spec.searchField = args[0] + "=" + strings.Join(args[1:], " ")
		case "sort":
			switch len(args) {
			case 1:
				spec.sorts = append(spec.sorts, args[0])
			case 2:
				spec.sorts = append(spec.sorts, args[0]+":"+args[1])
			default:
				return "", nil, fmt.Errorf("sort wants: sort <field> [desc]")
			}
		case "only":
			if len(args) == 0 {
				return "", nil, fmt.Errorf("only wants: only <field>...")
			}
			spec.only = args
		case "limit":
			if len(args) != 1 {
				return "", nil, fmt.Errorf("limit wants: limit <n>")
			}
			spec.limit = args[0]
		case "skip":
			if len(args) != 1 {
				return "", nil, fmt.Errorf("skip wants: skip <n>")
			}
			spec.skip = args[0]
		case "surround":
			switch len(args) {
			case 1:
				spec.surround = args[0]
			case 3:
				spec.surround = args[0]
				before, err := parseCount("before", args[1])
				if err != nil {
					return "", nil, err
				}
				after, err := parseCount("after", args[2])
				if err != nil {
					return "", nil, err
				}
				spec.before, spec.after = before, after
			default:
				return "", nil, fmt.Errorf("surround wants: surround <slug> [before after]")
			}
		default:
			return "", nil, fmt.Errorf("unknown pipeline stage %q", stage)
		}
	}
	return collection, spec, nil
}

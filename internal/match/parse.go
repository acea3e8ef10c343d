package match

import (
	"math"
	"regexp"
	"strings"

	"github.com/roach88/arraypull/internal/doc"
)

// maxDepth bounds nesting of logical operators and $elemMatch.
const maxDepth = 100

// ExtensionPolicy decides how operators that need an evaluation context
// beyond a single object ($where, $text, $expr, $jsonSchema) are handled.
type ExtensionPolicy uint8

const (
	// DisallowExtensions rejects extension operators with a ParseError.
	DisallowExtensions ExtensionPolicy = iota
	// IgnoreExtensions compiles extension operators to an always-true clause.
	IgnoreExtensions
)

var extensionOperators = map[string]bool{
	"$where":      true,
	"$text":       true,
	"$expr":       true,
	"$jsonSchema": true,
}

var unsupportedOperators = map[string]bool{
	"$near": true, "$nearSphere": true, "$within": true,
	"$geoWithin": true, "$geoIntersects": true, "$maxDistance": true,
	"$minDistance": true,
	"$bitsAllSet": true, "$bitsAllClear": true,
	"$bitsAnySet": true, "$bitsAnyClear": true,
}

var typeCodes = map[int64]doc.Type{
	1:  doc.DoubleType,
	2:  doc.StringType,
	3:  doc.ObjectType,
	4:  doc.ArrayType,
	8:  doc.BoolType,
	10: doc.NullType,
	11: doc.RegexType,
	16: doc.IntType,
	18: doc.IntType,
}

type parser struct {
	policy ExtensionPolicy
}

func (p *parser) compileObject(cond doc.Value, depth int) (node, error) {
	if depth > maxDepth {
		return nil, parseErrorf("", "condition exceeds maximum nesting depth %d", maxDepth)
	}
	var clauses andNode
	for _, f := range cond.Fields() {
		n, err := p.compileTopLevel(f, depth)
		if err != nil {
			return nil, err
		}
		if n != nil {
			clauses = append(clauses, n)
		}
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return clauses, nil
}

func (p *parser) compileTopLevel(f doc.Field, depth int) (node, error) {
	if !strings.HasPrefix(f.Name, "$") {
		return p.compileField(f.Name, f.Value, depth)
	}
	switch f.Name {
	case "$and", "$or", "$nor":
		children, err := p.compileList(f, depth)
		if err != nil {
			return nil, err
		}
		switch f.Name {
		case "$and":
			return andNode(children), nil
		case "$or":
			return orNode(children), nil
		}
		return norNode(children), nil
	case "$comment":
		return nil, nil
	}
	if extensionOperators[f.Name] {
		if p.policy == IgnoreExtensions {
			return constNode(true), nil
		}
		return nil, parseErrorf(f.Name, "operator is not allowed in this context")
	}
	return nil, parseErrorf(f.Name, "unknown top level operator")
}

func (p *parser) compileList(f doc.Field, depth int) ([]node, error) {
	if f.Value.Type() != doc.ArrayType {
		return nil, parseErrorf(f.Name, "argument must be an array")
	}
	if f.Value.Len() == 0 {
		return nil, parseErrorf(f.Name, "argument must be a non-empty array")
	}
	children := make([]node, 0, f.Value.Len())
	for _, e := range f.Value.Elems() {
		if e.Type() != doc.ObjectType {
			return nil, parseErrorf(f.Name, "array entries must be objects")
		}
		n, err := p.compileObject(e, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return children, nil
}

func (p *parser) compileField(name string, operand doc.Value, depth int) (node, error) {
	path := strings.Split(name, ".")
	if isOperatorObject(operand) {
		clauses, err := p.compileClauses(name, operand, depth)
		if err != nil {
			return nil, err
		}
		return clausesToNode(path, clauses), nil
	}
	if operand.Type() == doc.RegexType {
		re, err := compileRegex(name, operand.Pattern(), operand.Options())
		if err != nil {
			return nil, err
		}
		return fieldNode{path: path, pred: re}, nil
	}
	return fieldNode{path: path, pred: eqPred{operand: operand}}, nil
}

func isOperatorObject(v doc.Value) bool {
	if v.Type() != doc.ObjectType {
		return false
	}
	first, ok := v.FirstField()
	return ok && strings.HasPrefix(first.Name, "$")
}

// clause is one compiled operator of a field operand.
type clause struct {
	pred   leafPred
	negate bool
	// inner is set for $not and holds the negated operand's clauses.
	inner []clause
	// all is set for $all and holds one clause per entry.
	all []clause
}

func clausesToNode(path []string, clauses []clause) node {
	nodes := make(andNode, 0, len(clauses))
	for _, c := range clauses {
		nodes = append(nodes, clauseToNode(path, c))
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	return nodes
}

func clauseToNode(path []string, c clause) node {
	switch {
	case c.inner != nil:
		return notNode{child: clausesToNode(path, c.inner)}
	case c.all != nil:
		return clausesToNode(path, c.all)
	case c.negate:
		return notNode{child: fieldNode{path: path, pred: c.pred}}
	}
	return fieldNode{path: path, pred: c.pred}
}

// clausesToPred folds clauses into one predicate over a single value, as
// needed by the value form of $elemMatch.
func clausesToPred(clauses []clause) conjPred {
	preds := make(conjPred, 0, len(clauses))
	for _, c := range clauses {
		switch {
		case c.inner != nil:
			preds = append(preds, notPred{pred: clausesToPred(c.inner)})
		case c.all != nil:
			preds = append(preds, clausesToPred(c.all)...)
		case c.negate:
			preds = append(preds, notPred{pred: c.pred})
		default:
			preds = append(preds, c.pred)
		}
	}
	return preds
}

func (p *parser) compileClauses(field string, ops doc.Value, depth int) ([]clause, error) {
	if depth > maxDepth {
		return nil, parseErrorf(field, "condition exceeds maximum nesting depth %d", maxDepth)
	}
	var (
		clauses    []clause
		regex      *doc.Value
		options    *doc.Value
		regexIndex = -1
	)
	for _, f := range ops.Fields() {
		if !strings.HasPrefix(f.Name, "$") {
			return nil, parseErrorf(field, "unknown operator %s mixed with operators", f.Name)
		}
		switch f.Name {
		case "$regex":
			v := f.Value
			regex = &v
			regexIndex = len(clauses)
			continue
		case "$options":
			v := f.Value
			options = &v
			continue
		}
		c, err := p.compileOperator(field, f, depth)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}

	if options != nil && regex == nil {
		return nil, parseErrorf("$options", "needs a $regex")
	}
	if regex != nil {
		re, err := regexOperand(field, *regex, options)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses[:regexIndex], append([]clause{{pred: re}}, clauses[regexIndex:]...)...)
	}
	return clauses, nil
}

func (p *parser) compileOperator(field string, f doc.Field, depth int) (clause, error) {
	v := f.Value
	switch f.Name {
	case "$eq":
		return clause{pred: eqPred{operand: v}}, nil
	case "$ne":
		if v.Type() == doc.RegexType {
			return clause{}, parseErrorf("$ne", "cannot take a regex operand")
		}
		return clause{pred: eqPred{operand: v}, negate: true}, nil
	case "$gt":
		return clause{pred: cmpPred{op: opGT, operand: v}}, nil
	case "$gte":
		return clause{pred: cmpPred{op: opGTE, operand: v}}, nil
	case "$lt":
		return clause{pred: cmpPred{op: opLT, operand: v}}, nil
	case "$lte":
		return clause{pred: cmpPred{op: opLTE, operand: v}}, nil
	case "$in", "$nin":
		in, err := compileIn(f)
		if err != nil {
			return clause{}, err
		}
		return clause{pred: in, negate: f.Name == "$nin"}, nil
	case "$exists":
		return clause{pred: existsPred{}, negate: !truthy(v)}, nil
	case "$type":
		t, err := compileType(v)
		if err != nil {
			return clause{}, err
		}
		return clause{pred: t}, nil
	case "$size":
		n, ok := nonNegativeInt(v)
		if !ok {
			return clause{}, parseErrorf("$size", "needs a non-negative integer, got %s", v)
		}
		return clause{pred: sizePred{size: int(n)}}, nil
	case "$all":
		return p.compileAll(field, v, depth)
	case "$elemMatch":
		pred, err := p.compileElemMatch(field, v, depth)
		if err != nil {
			return clause{}, err
		}
		return clause{pred: pred}, nil
	case "$mod":
		m, err := compileMod(v)
		if err != nil {
			return clause{}, err
		}
		return clause{pred: m}, nil
	case "$not":
		return p.compileNot(field, v, depth)
	}
	if unsupportedOperators[f.Name] {
		return clause{}, parseErrorf(f.Name, "operator is not supported")
	}
	return clause{}, parseErrorf(f.Name, "unknown operator")
}

// compileAll holds when the path matches every operand. Each entry is
// tested on its own, so [1, 2] matches a path holding [2, 1].
func (p *parser) compileAll(field string, v doc.Value, depth int) (clause, error) {
	if v.Type() != doc.ArrayType {
		return clause{}, parseErrorf("$all", "needs an array")
	}
	if v.Len() == 0 {
		return clause{pred: constPred(false)}, nil
	}
	var all []clause
	for _, e := range v.Elems() {
		switch {
		case e.Type() == doc.RegexType:
			re, err := compileRegex("$all", e.Pattern(), e.Options())
			if err != nil {
				return clause{}, err
			}
			all = append(all, clause{pred: re})
		case isOperatorObject(e):
			first, _ := e.FirstField()
			if first.Name != "$elemMatch" {
				return clause{}, parseErrorf("$all", "no $ expressions allowed in $all")
			}
			c, err := p.compileClauses(field, e, depth+1)
			if err != nil {
				return clause{}, err
			}
			all = append(all, c...)
		default:
			all = append(all, clause{pred: eqPred{operand: e}})
		}
	}
	if len(all) == 1 {
		return all[0], nil
	}
	return clause{all: all}, nil
}

func (p *parser) compileElemMatch(field string, v doc.Value, depth int) (leafPred, error) {
	if v.Type() != doc.ObjectType {
		return nil, parseErrorf("$elemMatch", "needs an object")
	}
	first, ok := v.FirstField()
	if ok && strings.HasPrefix(first.Name, "$") && !isLogicalOrExtension(first.Name) {
		clauses, err := p.compileClauses(field, v, depth+1)
		if err != nil {
			return nil, err
		}
		return elemMatchValuePred{preds: clausesToPred(clauses)}, nil
	}
	expr, err := p.compileObject(v, depth+1)
	if err != nil {
		return nil, err
	}
	return elemMatchObjectPred{expr: expr}, nil
}

func isLogicalOrExtension(name string) bool {
	switch name {
	case "$and", "$or", "$nor", "$comment":
		return true
	}
	return extensionOperators[name]
}

func (p *parser) compileNot(field string, v doc.Value, depth int) (clause, error) {
	switch v.Type() {
	case doc.RegexType:
		re, err := compileRegex("$not", v.Pattern(), v.Options())
		if err != nil {
			return clause{}, err
		}
		return clause{inner: []clause{{pred: re}}}, nil
	case doc.ObjectType:
		if v.Len() == 0 {
			return clause{}, parseErrorf("$not", "cannot be empty")
		}
		if !isOperatorObject(v) {
			return clause{}, parseErrorf("$not", "needs a regex or an operator object")
		}
		inner, err := p.compileClauses(field, v, depth+1)
		if err != nil {
			return clause{}, err
		}
		return clause{inner: inner}, nil
	}
	return clause{}, parseErrorf("$not", "needs a regex or an operator object")
}

func compileIn(f doc.Field) (inPred, error) {
	if f.Value.Type() != doc.ArrayType {
		return inPred{}, parseErrorf(f.Name, "needs an array")
	}
	var in inPred
	for _, e := range f.Value.Elems() {
		if isOperatorObject(e) {
			return inPred{}, parseErrorf(f.Name, "cannot nest $ operators")
		}
		if e.Type() == doc.RegexType {
			re, err := compileRegex(f.Name, e.Pattern(), e.Options())
			if err != nil {
				return inPred{}, err
			}
			in.regexes = append(in.regexes, re)
			continue
		}
		in.values = append(in.values, e)
	}
	return in, nil
}

func compileType(v doc.Value) (typePred, error) {
	var t typePred
	add := func(e doc.Value) error {
		switch e.Type() {
		case doc.StringType:
			if e.Str() == "number" {
				t.number = true
				return nil
			}
			if e.Str() == "long" {
				t.types = append(t.types, doc.IntType)
				return nil
			}
			typ, ok := doc.TypeFromName(e.Str())
			if !ok {
				return parseErrorf("$type", "unknown type name %q", e.Str())
			}
			t.types = append(t.types, typ)
			return nil
		case doc.IntType, doc.DoubleType:
			code, ok := nonNegativeInt(e)
			if !ok {
				return parseErrorf("$type", "invalid type code %s", e)
			}
			typ, ok := typeCodes[code]
			if !ok {
				return parseErrorf("$type", "unknown type code %d", code)
			}
			t.types = append(t.types, typ)
			return nil
		}
		return parseErrorf("$type", "needs a type name or code, got %s", e)
	}

	if v.Type() == doc.ArrayType {
		for _, e := range v.Elems() {
			if err := add(e); err != nil {
				return typePred{}, err
			}
		}
		return t, nil
	}
	if err := add(v); err != nil {
		return typePred{}, err
	}
	return t, nil
}

func compileMod(v doc.Value) (modPred, error) {
	if v.Type() != doc.ArrayType || v.Len() != 2 {
		return modPred{}, parseErrorf("$mod", "needs an array of [divisor, remainder]")
	}
	div, ok := truncate(v.Elems()[0])
	if !ok {
		return modPred{}, parseErrorf("$mod", "divisor must be a number")
	}
	rem, ok := truncate(v.Elems()[1])
	if !ok {
		return modPred{}, parseErrorf("$mod", "remainder must be a number")
	}
	if div == 0 {
		return modPred{}, parseErrorf("$mod", "divisor cannot be 0")
	}
	return modPred{divisor: div, remainder: rem}, nil
}

func regexOperand(field string, pattern doc.Value, options *doc.Value) (regexPred, error) {
	var opts string
	if options != nil {
		if options.Type() != doc.StringType {
			return regexPred{}, parseErrorf("$options", "needs a string")
		}
		opts = options.Str()
	}
	switch pattern.Type() {
	case doc.StringType:
		return compileRegex(field, pattern.Str(), opts)
	case doc.RegexType:
		if options != nil && pattern.Options() != "" {
			return regexPred{}, parseErrorf("$options", "options set in both $regex and $options")
		}
		if options == nil {
			opts = pattern.Options()
		}
		return compileRegex(field, pattern.Pattern(), opts)
	}
	return regexPred{}, parseErrorf("$regex", "needs a string or regex")
}

func compileRegex(op, pattern, options string) (regexPred, error) {
	var flags strings.Builder
	for _, r := range options {
		switch r {
		case 'i', 'm', 's':
			if !strings.ContainsRune(flags.String(), r) {
				flags.WriteRune(r)
			}
		default:
			return regexPred{}, parseErrorf(op, "unsupported regex option %q", r)
		}
	}
	expr := pattern
	if flags.Len() > 0 {
		expr = "(?" + flags.String() + ")" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return regexPred{}, parseErrorf(op, "invalid regex %q: %v", pattern, err)
	}
	return regexPred{pattern: pattern, options: options, re: re}, nil
}

func truthy(v doc.Value) bool {
	switch v.Type() {
	case doc.NullType:
		return false
	case doc.BoolType:
		return v.Bool()
	case doc.IntType, doc.DoubleType:
		return v.Number() != 0
	}
	return true
}

func truncate(v doc.Value) (int64, bool) {
	switch v.Type() {
	case doc.IntType:
		return v.Int(), true
	case doc.DoubleType:
		f := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 0x1p63 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func nonNegativeInt(v doc.Value) (int64, bool) {
	switch v.Type() {
	case doc.IntType:
		return v.Int(), v.Int() >= 0
	case doc.DoubleType:
		f := v.Double()
		if f < 0 || f != math.Trunc(f) || f >= 0x1p63 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// Package dice parses and rolls tabletop dice expressions like "2d6+3".
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidExpression indicates a string that does not match the
// [count]d<faces>[+|-modifier] grammar, or has count or faces outside the
// table limits.
var ErrInvalidExpression = errors.New("invalid dice expression")

// Table limits: rolls allocate Count ints, so both ends are bounded.
const (
	MaxCount = 100
	MaxFaces = 1000
)

// Expression is the parsed form of a dice string.
type Expression struct {
	Count    int
	Faces    int
	Modifier int
}

// Result captures one evaluation of an expression.
type Result struct {
	Expression Expression
	Rolls      []int
	Total      int
}

// Parse parses a dice string. The count defaults to 1, so "d20" rolls one
// twenty-sided die.
func Parse(s string) (Expression, error) {
	expr := Expression{Count: 1}
	s = strings.ToLower(strings.TrimSpace(s))

	body := s
	if idx := strings.IndexAny(s, "+-"); idx >= 0 {
		body = s[:idx]
		modifier, err := strconv.Atoi(s[idx+1:])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: bad modifier in %q", ErrInvalidExpression, s)
		}
		if s[idx] == '-' {
			modifier = -modifier
		}
		expr.Modifier = modifier
	}

	countStr, facesStr, found := strings.Cut(body, "d")
	if !found {
		return Expression{}, fmt.Errorf("%w: %q has no die", ErrInvalidExpression, s)
	}

	if countStr != "" {
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("%w: bad count in %q", ErrInvalidExpression, s)
		}
		expr.Count = count
	}

	faces, err := strconv.Atoi(facesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: bad faces in %q", ErrInvalidExpression, s)
	}
	expr.Faces = faces

	if expr.Count <= 0 || expr.Count > MaxCount {
		return Expression{}, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidExpression, MaxCount)
	}
	if expr.Faces < 2 || expr.Faces > MaxFaces {
		return Expression{}, fmt.Errorf("%w: faces must be between 2 and %d", ErrInvalidExpression, MaxFaces)
	}

	return expr, nil
}

// Roll evaluates the expression with the provided random source.
func (e Expression) Roll(rng *rand.Rand) Result {
	rolls := make([]int, e.Count)
	total := e.Modifier
	for i := range rolls {
		rolls[i] = rng.Intn(e.Faces) + 1
		total += rolls[i]
	}
	return Result{
		Expression: e,
		Rolls:      rolls,
		Total:      total,
	}
}

// Roll parses and evaluates a dice string with a time-seeded source.
func Roll(s string) (Result, error) {
	expr, err := Parse(s)
	if err != nil {
		return Result{}, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return expr.Roll(rng), nil
}

// String renders the expression in its canonical written form.
func (e Expression) String() string {
	s := fmt.Sprintf("%dd%d", e.Count, e.Faces)
	if e.Modifier > 0 {
		s += fmt.Sprintf("+%d", e.Modifier)
	} else if e.Modifier < 0 {
		s += strconv.Itoa(e.Modifier)
	}
	return s
}

// String renders a result the way it is announced at the table:
// "2d6+3: [4, 2] +3 = 9".
func (r Result) String() string {
	var b strings.Builder
	b.WriteString(r.Expression.String())
	b.WriteString(": [")
	for i, roll := range r.Rolls {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(roll))
	}
	b.WriteString("]")
	if r.Expression.Modifier > 0 {
		fmt.Fprintf(&b, " +%d", r.Expression.Modifier)
	} else if r.Expression.Modifier < 0 {
		fmt.Fprintf(&b, " %d", r.Expression.Modifier)
	}
	fmt.Fprintf(&b, " = %d", r.Total)
	return b.String()
}

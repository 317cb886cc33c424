// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// ItemCost is a material and amount, written "MATERIAL:AMOUNT".
// The amount defaults to 1 when omitted.
type ItemCost struct {
	Material string
	Amount   int
}

// LevelRange is an inclusive level interval, written "min-max" or "level".
type LevelRange struct {
	Min int
	Max int
}

// Contains reports whether level falls in the range.
func (r LevelRange) Contains(level int) bool {
	return level >= r.Min && level <= r.Max
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type costAST struct {
	Material string `parser:"@Ident"`
	Amount   *int   `parser:"( ':' @Int )?"`
}

type rangeAST struct {
	Min int  `parser:"@Int"`
	Max *int `parser:"( '-' @Int )?"`
}

var (
	costParser = participle.MustBuild[costAST](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
	)
	rangeParser = participle.MustBuild[rangeAST](
		participle.Lexer(exprLexer),
		participle.Elide("Whitespace"),
	)
)

// ParseItemCost parses a "MATERIAL:AMOUNT" expression. Materials are upper-cased.
func ParseItemCost(expr string) (ItemCost, error) {
	ast, err := costParser.ParseString("", expr)
	if err != nil {
		return ItemCost{}, oops.In("definitions").
			Code(CodeInvalidExpression).
			With("expression", expr).
			Wrapf(err, "invalid item cost %q", expr)
	}
	cost := ItemCost{Material: strings.ToUpper(ast.Material), Amount: 1}
	if ast.Amount != nil {
		cost.Amount = *ast.Amount
	}
	if cost.Amount <= 0 {
		return ItemCost{}, oops.In("definitions").
			Code(CodeInvalidExpression).
			With("expression", expr).
			Errorf("item cost amount must be positive")
	}
	return cost, nil
}

// ParseLevelRange parses "min-max" or a single level.
func ParseLevelRange(expr string) (LevelRange, error) {
	ast, err := rangeParser.ParseString("", expr)
	if err != nil {
		return LevelRange{}, oops.In("definitions").
			Code(CodeInvalidExpression).
			With("expression", expr).
			Wrapf(err, "invalid level range %q", expr)
	}
	r := LevelRange{Min: ast.Min, Max: ast.Min}
	if ast.Max != nil {
		r.Max = *ast.Max
	}
	if r.Min < 1 || r.Max < r.Min {
		return LevelRange{}, oops.In("definitions").
			Code(CodeInvalidExpression).
			With("expression", expr).
			Errorf("level range must satisfy 1 <= min <= max")
	}
	return r, nil
}

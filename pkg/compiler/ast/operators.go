package ast

// BinaryOperator is the source spelling of an infix operator.
type BinaryOperator string

const (
	Add         BinaryOperator = "+"
	Subtract    BinaryOperator = "-"
	Multiply    BinaryOperator = "*"
	Divide      BinaryOperator = "/"
	Equals      BinaryOperator = "="
	GreaterThan BinaryOperator = ">"
	LessThan    BinaryOperator = "<"
	And         BinaryOperator = "and"
	Or          BinaryOperator = "or"
)

// UnaryOperator is the source spelling of a prefix operator.
type UnaryOperator string

const (
	Negate     UnaryOperator = "-"
	Complement UnaryOperator = "!"
)

// Priority ranks. The parser splits a token span at the operator with the
// lowest rank, so a lower rank binds looser.
const (
	RankLogical    = 1
	RankComparison = 2
	RankAdditive   = 3
	RankMultiplic  = 4
	RankUnary      = 5
)

var binaryRanks = map[BinaryOperator]int{
	And:         RankLogical,
	Or:          RankLogical,
	Equals:      RankComparison,
	GreaterThan: RankComparison,
	LessThan:    RankComparison,
	Add:         RankAdditive,
	Subtract:    RankAdditive,
	Multiply:    RankMultiplic,
	Divide:      RankMultiplic,
}

var unaryOperators = map[UnaryOperator]bool{
	Negate:     true,
	Complement: true,
}

// LookupBinary reports whether s spells a binary operator and returns its rank.
func LookupBinary(s string) (BinaryOperator, int, bool) {
	op := BinaryOperator(s)
	rank, ok := binaryRanks[op]
	return op, rank, ok
}

// LookupUnary reports whether s spells a unary operator.
func LookupUnary(s string) (UnaryOperator, bool) {
	op := UnaryOperator(s)
	return op, unaryOperators[op]
}

// Rank returns the priority rank of a binary operator, or 0 if unknown.
func (op BinaryOperator) Rank() int {
	return binaryRanks[op]
}

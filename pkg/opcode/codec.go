package opcode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/zurustar/robologo/pkg/compiler/ast"
)

// FormatVersion is written into every encoded program.
const FormatVersion = 1

// ErrFormat is wrapped by decoding errors caused by malformed input.
var ErrFormat = errors.New("malformed program encoding")

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("opcode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	// expression trees nest one level per operator
	dm, err := cbor.DecOptions{MaxNestedLevels: 1024}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("opcode: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

type nodeKind uint8

const (
	nodeNull nodeKind = iota
	nodeLiteral
	nodeVariable
	nodeUnary
	nodeBinary
)

type wireNode struct {
	Kind  nodeKind  `cbor:"1,keyasint"`
	Value int       `cbor:"2,keyasint,omitempty"`
	Name  string    `cbor:"3,keyasint,omitempty"`
	Op    string    `cbor:"4,keyasint,omitempty"`
	Left  *wireNode `cbor:"5,keyasint,omitempty"`
	Right *wireNode `cbor:"6,keyasint,omitempty"`
}

type wireInstruction struct {
	Cmd    Cmd       `cbor:"1,keyasint"`
	Name   string    `cbor:"2,keyasint,omitempty"`
	Expr   *wireNode `cbor:"3,keyasint,omitempty"`
	Target int       `cbor:"4,keyasint,omitempty"`
	True   int       `cbor:"5,keyasint,omitempty"`
	False  int       `cbor:"6,keyasint,omitempty"`
	Action ActionID  `cbor:"7,keyasint,omitempty"`
}

type wireProgram struct {
	Version int               `cbor:"1,keyasint"`
	Code    []wireInstruction `cbor:"2,keyasint"`
}

// Marshal serializes a validated Program to canonical CBOR bytes.
func Marshal(p Program) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("opcode: marshal: %w", err)
	}
	w := wireProgram{Version: FormatVersion, Code: make([]wireInstruction, len(p))}
	for i, ins := range p {
		expr, err := encodeNode(ins.Expr)
		if err != nil {
			return nil, fmt.Errorf("opcode: marshal instruction %d: %w", i, err)
		}
		w.Code[i] = wireInstruction{
			Cmd:    ins.Cmd,
			Name:   ins.Name,
			Expr:   expr,
			Target: ins.Target,
			True:   ins.True,
			False:  ins.False,
			Action: ins.Action,
		}
	}
	return cborEncMode.Marshal(&w)
}

// Unmarshal deserializes a Program from CBOR bytes and validates it.
func Unmarshal(data []byte) (Program, error) {
	var w wireProgram
	if err := cborDecMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("opcode: unmarshal: %w: %v", ErrFormat, err)
	}
	if w.Version != FormatVersion {
		return nil, fmt.Errorf("opcode: unmarshal: %w: unsupported version %d", ErrFormat, w.Version)
	}

	p := make(Program, len(w.Code))
	for i, wi := range w.Code {
		var expr ast.Node
		if wi.Expr != nil {
			var err error
			if expr, err = decodeNode(wi.Expr); err != nil {
				return nil, fmt.Errorf("opcode: unmarshal instruction %d: %w", i, err)
			}
		}
		p[i] = Instruction{
			Cmd:    wi.Cmd,
			Name:   wi.Name,
			Expr:   expr,
			Target: wi.Target,
			True:   wi.True,
			False:  wi.False,
			Action: wi.Action,
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("opcode: unmarshal: %w: %v", ErrFormat, err)
	}
	return p, nil
}

func encodeNode(n ast.Node) (*wireNode, error) {
	switch v := n.(type) {
	case nil:
		return nil, nil
	case ast.Null, *ast.Null:
		return &wireNode{Kind: nodeNull}, nil
	case *ast.Literal:
		return &wireNode{Kind: nodeLiteral, Value: v.Value}, nil
	case *ast.Variable:
		return &wireNode{Kind: nodeVariable, Name: v.Name}, nil
	case *ast.UnaryOp:
		operand, err := encodeNode(v.Operand)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: nodeUnary, Op: string(v.Op), Left: operand}, nil
	case *ast.BinaryOp:
		left, err := encodeNode(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		return &wireNode{Kind: nodeBinary, Op: string(v.Op), Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("unsupported expression node %T", n)
	}
}

func decodeNode(w *wireNode) (ast.Node, error) {
	switch w.Kind {
	case nodeNull:
		return ast.Null{}, nil
	case nodeLiteral:
		return &ast.Literal{Value: w.Value}, nil
	case nodeVariable:
		if w.Name == "" {
			return nil, fmt.Errorf("%w: variable without a name", ErrFormat)
		}
		return &ast.Variable{Name: w.Name}, nil
	case nodeUnary:
		op, ok := ast.LookupUnary(w.Op)
		if !ok || w.Left == nil {
			return nil, fmt.Errorf("%w: bad unary node %q", ErrFormat, w.Op)
		}
		operand, err := decodeNode(w.Left)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: op, Operand: operand}, nil
	case nodeBinary:
		op, _, ok := ast.LookupBinary(w.Op)
		if !ok || w.Left == nil || w.Right == nil {
			return nil, fmt.Errorf("%w: bad binary node %q", ErrFormat, w.Op)
		}
		left, err := decodeNode(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(w.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Op: op, Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("%w: unknown node kind %d", ErrFormat, w.Kind)
	}
}

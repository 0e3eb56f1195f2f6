// Package refexpr statically parses the reference expressions embedded in
// compound-action fields: literals, dotted paths rooted at data/meta_info/
// loop bindings, and operator chains over them. Nothing is evaluated.
package refexpr

import (
	"strconv"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Root is one root identifier referenced by an expression, with the
// statically-known dotted path below it. For data.user_info.user.name the
// root is "data" and the path is ["user_info", "user", "name"]. Dynamic
// subscripts end the static path early.
type Root struct {
	Name string
	Path []string
}

// Expr is the static shape of a parsed reference expression.
type Expr struct {
	Source string
	Roots  []Root

	// ConstOnly is true when the expression parsed and references nothing:
	// a plain literal like 42, true, or "text".
	ConstOnly bool

	// SingleIdent is true when the whole expression is one bare
	// identifier with no member access or operators. Such values are
	// indistinguishable from prose and resolved leniently.
	SingleIdent bool
}

// Parse statically parses src. A nil result with nil error means src is
// not parseable as an expression and should be treated as plain text.
// A non-nil error is reserved for empty input.
func Parse(src string) (*Expr, error) {
	if src == "" {
		return nil, nil
	}

	tree, err := parser.Parse(src)
	if err != nil {
		// Free text ("Hello there!") is a legal literal value. The
		// caller decides whether context demanded an expression.
		return nil, nil
	}

	e := &Expr{Source: src}
	collectRoots(tree.Node, &e.Roots)
	e.ConstOnly = len(e.Roots) == 0

	if ident, ok := tree.Node.(*ast.IdentifierNode); ok {
		e.SingleIdent = true
		e.Roots = []Root{{Name: ident.Value}}
		e.ConstOnly = false
	}

	return e, nil
}

// collectRoots walks the AST gathering root identifiers and their static
// member paths. Operator and call nodes are descended through; literal
// nodes contribute nothing.
func collectRoots(node ast.Node, out *[]Root) {
	switch n := node.(type) {
	case nil:
	case *ast.IdentifierNode:
		*out = append(*out, Root{Name: n.Value})
	case *ast.MemberNode:
		collectMember(n, out)
	case *ast.UnaryNode:
		collectRoots(n.Node, out)
	case *ast.BinaryNode:
		collectRoots(n.Left, out)
		collectRoots(n.Right, out)
	case *ast.ConditionalNode:
		collectRoots(n.Cond, out)
		collectRoots(n.Exp1, out)
		collectRoots(n.Exp2, out)
	case *ast.ChainNode:
		collectRoots(n.Node, out)
	case *ast.CallNode:
		collectRoots(n.Callee, out)
		for _, arg := range n.Arguments {
			collectRoots(arg, out)
		}
	case *ast.BuiltinNode:
		for _, arg := range n.Arguments {
			collectRoots(arg, out)
		}
	case *ast.ArrayNode:
		for _, el := range n.Nodes {
			collectRoots(el, out)
		}
	case *ast.MapNode:
		for _, pair := range n.Pairs {
			collectRoots(pair, out)
		}
	case *ast.PairNode:
		collectRoots(n.Key, out)
		collectRoots(n.Value, out)
	case *ast.SliceNode:
		collectRoots(n.Node, out)
		collectRoots(n.From, out)
		collectRoots(n.To, out)
	case *ast.PredicateNode:
		collectRoots(n.Node, out)
	}
	// Literal nodes (StringNode, IntegerNode, FloatNode, BoolNode,
	// NilNode, ConstantNode) and anything unrecognized are terminal.
}

// collectMember flattens a member-access chain into a Root when the chain
// bottoms out at an identifier with string/integer properties. Chains over
// non-identifier bases, and dynamic subscripts, degrade gracefully: the
// static path stops where static knowledge ends.
func collectMember(n *ast.MemberNode, out *[]Root) {
	var reversed []string
	cur := ast.Node(n)

	for {
		m, ok := cur.(*ast.MemberNode)
		if !ok {
			break
		}
		switch prop := m.Property.(type) {
		case *ast.StringNode:
			reversed = append(reversed, prop.Value)
		case *ast.IntegerNode:
			reversed = append(reversed, strconv.Itoa(prop.Value))
		default:
			// Dynamic subscript: its expression may itself hold
			// references, and the outer static path resets.
			collectRoots(m.Property, out)
			reversed = reversed[:0]
		}
		cur = m.Node
	}

	ident, ok := cur.(*ast.IdentifierNode)
	if !ok {
		// e.g. a call result or literal being dereferenced.
		collectRoots(cur, out)
		return
	}

	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	*out = append(*out, Root{Name: ident.Value, Path: path})
}

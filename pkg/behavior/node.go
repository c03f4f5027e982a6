// Package behavior implements the condition/action trees that steer agents.
//
// A tree is built once (decoded from a definition, generated, or assembled
// in code) and never mutated afterwards. Evaluation takes the agent as an
// explicit argument, so one tree can be shared by every agent of a group and
// evaluated from several goroutines at once.
package behavior

import (
	"fmt"
	"strings"
)

// Comparator selects the relation tested by a node.
type Comparator int

const (
	GreaterThan Comparator = iota
	LessThan
	Equal
)

func (c Comparator) String() string {
	switch c {
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case Equal:
		return "=="
	default:
		return "?"
	}
}

// Action is the mutation applied to a target parameter.
type Action int

const (
	Increment Action = iota
	Decrement
	SetTo
)

// DefaultOperand is the operand used by every action unless a definition
// explicitly binds a number bank.
const DefaultOperand = 1.0

// Step pairs one action with its target parameter.
type Step struct {
	Action  Action
	Target  ParamID
	Operand float64
}

// Apply runs the step against t. Every write goes through t.SetParam.
func (s Step) Apply(t Target) {
	switch s.Action {
	case Increment:
		t.SetParam(s.Target, read(t, s.Target)+s.Operand)
	case Decrement:
		t.SetParam(s.Target, read(t, s.Target)-s.Operand)
	case SetTo:
		t.SetParam(s.Target, s.Operand)
	}
}

func (s Step) String() string {
	switch s.Action {
	case Increment:
		return fmt.Sprintf("%s +%g", s.Target, s.Operand)
	case Decrement:
		return fmt.Sprintf("%s -%g", s.Target, s.Operand)
	case SetTo:
		return fmt.Sprintf("%s =%g", s.Target, s.Operand)
	default:
		return fmt.Sprintf("%s ?", s.Target)
	}
}

// Node is one node of a behavior tree.
type Node struct {
	Comparator Comparator
	Left       ParamID
	Right      ParamID
	// RightIsLiteral makes the right operand come from Snapshot instead of
	// the agent's live value.
	RightIsLiteral bool
	Depth          int

	Then []Step
	Else []Step

	// Snapshot holds the node-local parameter values, indexed by ParamID.
	Snapshot [NumParams]float64

	// Children run after the branch, whichever branch fired.
	Children []*Node
}

// NewStep constructs a step with the default operand.
func NewStep(a Action, target ParamID) Step {
	return Step{Action: a, Target: target, Operand: DefaultOperand}
}

// read returns the live value of id, falling back to the id itself for
// ids outside the enumeration.
func read(t Target, id ParamID) float64 {
	if !id.Valid() {
		return id.Literal()
	}
	return t.Param(id)
}

func (n *Node) literal(id ParamID) float64 {
	if !id.Valid() {
		return id.Literal()
	}
	return n.Snapshot[id]
}

// Compare evaluates the node's condition against t.
// The left operand is always read live.
func (n *Node) Compare(t Target) bool {
	left := read(t, n.Left)
	var right float64
	if n.RightIsLiteral {
		right = n.literal(n.Right)
	} else {
		right = read(t, n.Right)
	}

	switch n.Comparator {
	case GreaterThan:
		return left > right
	case LessThan:
		return left < right
	case Equal:
		return left == right
	default:
		return false
	}
}

// Execute applies the branch selected by Compare, then every child in
// order. The node keeps no reference to t.
func (n *Node) Execute(t Target) {
	steps := n.Else
	if n.Compare(t) {
		steps = n.Then
	}
	for _, s := range steps {
		s.Apply(t)
	}
	for _, child := range n.Children {
		child.Execute(t)
	}
}

// Walk visits n and its descendants depth first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Size returns the number of nodes in the tree rooted at n.
func (n *Node) Size() int {
	count := 0
	n.Walk(func(*Node) { count++ })
	return count
}

// MaxDepthLevel returns the deepest Depth value found under n.
func (n *Node) MaxDepthLevel() int {
	deepest := n.Depth
	n.Walk(func(c *Node) {
		if c.Depth > deepest {
			deepest = c.Depth
		}
	})
	return deepest
}

// String renders the tree as pseudocode.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, indent int) {
	pad := strings.Repeat("  ", indent)

	right := n.Right.String()
	if n.RightIsLiteral {
		right = fmt.Sprintf("%g", n.literal(n.Right))
	}
	fmt.Fprintf(sb, "%sif (%s %s %s) {\n", pad, n.Left, n.Comparator, right)
	for _, s := range n.Then {
		fmt.Fprintf(sb, "%s  %s\n", pad, s)
	}
	fmt.Fprintf(sb, "%s} else {\n", pad)
	for _, s := range n.Else {
		fmt.Fprintf(sb, "%s  %s\n", pad, s)
	}
	fmt.Fprintf(sb, "%s}\n", pad)
	for _, child := range n.Children {
		child.write(sb, indent+1)
	}
}

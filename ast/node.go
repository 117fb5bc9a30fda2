package ast

// Node is any AST node. Every concrete node embeds a Line so the compiler
// can attribute errors.CompileError to a source position.
type Node interface {
	Pos() int
}

// Statement is any node valid in statement position (a sequence node's
// body, a method's body). Smalltalk has no separate statement grammar --
// a cascade, a block literal, or a bare message send are all expressions
// that may also appear as statements -- so this is a plain alias rather
// than its own interface.
type Statement = Node

// base carries the line number every node embeds; concrete node types
// embed it to satisfy Node.Pos without repeating the method.
type base struct {
	Line int
}

func (b base) Pos() int { return b.Line }

// Program is the ordered sequence of top-level class/method DSL forms the
// Script Host (spec.md §4.5) consumes. Each top-level form is itself a
// Statement -- typically a MessageSendNode sending a class-definition
// selector to a class object, or a cascade of method-definition sends.
type Program struct {
	base
	Statements []Statement
}

// MethodNode is a single method definition: a selector, its formal
// arguments, its temporaries, and its body statements. Grounded on
// AST.hpp's MethodHeader+MethodAST pair, flattened into one node since Go
// has no need for the header/body split the visitor hierarchy used it for.
type MethodNode struct {
	base
	Selector    string
	Arguments   []string
	Temporaries []string
	Body        []Statement
}

// BlockNode is a block literal ([:x | ...]), valid in expression position.
// Grounded on AST.hpp's BlockExpression.
type BlockNode struct {
	base
	Arguments   []string
	Temporaries []string
	Body        []Statement
}

// MessageSendNode is a unary, binary, or keyword message send. IsSuper
// marks a send through "super" (the receiver is still evaluated as
// SelfReference would be, but method lookup starts above the defining
// class -- see AST.hpp's SuperReference). Grounded on AST.hpp's
// MessageSendNode, minus its chained-message list: this implementation
// represents a chain of sends as nested MessageSendNodes (each one's
// Receiver is the previous send) rather than a flat chainedMessages
// vector, since that is how compiler/ walks a parse tree recursively.
type MessageSendNode struct {
	base
	Receiver  Node
	Selector  string
	Arguments []Node
	IsSuper   bool
}

// CascadeMessage is one message in a cascade (the part after each ';').
type CascadeMessage struct {
	Selector  string
	Arguments []Node
	Line      int
}

// CascadeNode sends every Messages entry to the same Receiver in order,
// yielding the last message's result (receiver msg1; msg2; msg3).
// Grounded on the cascade construct original_source's parser recognizes,
// even though AST.hpp itself folds cascades into chainedMessages --
// spec.md §2 calls cascades out as their own construct, so they get their
// own node here.
type CascadeNode struct {
	base
	Receiver Node
	Messages []CascadeMessage
}

// IdentifierNode references a variable: a temporary, argument, instance
// variable, global, or pseudo-variable (self/super/thisContext resolve to
// the same node shape; compiler/ disambiguates by name during scope
// resolution, matching AST.hpp's separate SelfReference/SuperReference/
// ThisContextReference classes collapsing into ordinary identifier lookup
// in the original's own compiler front end).
type IdentifierNode struct {
	base
	Name string
}

// AssignmentNode assigns Value to the variable Name references.
type AssignmentNode struct {
	base
	Name  string
	Value Node
}

// ReturnNode is a method-level "^expr" non-local or local return.
type ReturnNode struct {
	base
	Value Node
}

// SymbolLiteral distinguishes a #symbol literal's Value from an ordinary
// 'string' literal's Value, both of which are represented as Go strings.
type SymbolLiteral string

// LiteralNode is a compile-time constant: an integer, float, character,
// string, symbol, nil/true/false, or a literal array. Value holds the Go
// native representation: int64, float64, rune, string, SymbolLiteral,
// bool, nil, or []any for a literal array (whose elements are themselves
// one of these same Go types, recursively -- literal arrays may nest).
type LiteralNode struct {
	base
	Value any
}

// NewProgram, NewMethodNode, ... are convenience constructors mirroring
// AST.hpp's node constructors; the external parser is free to build these
// structs with literal syntax directly instead.

func NewProgram(line int, statements ...Statement) *Program {
	return &Program{base: base{line}, Statements: statements}
}

func NewMethodNode(line int, selector string, arguments, temporaries []string, body []Statement) *MethodNode {
	return &MethodNode{base: base{line}, Selector: selector, Arguments: arguments, Temporaries: temporaries, Body: body}
}

func NewBlockNode(line int, arguments, temporaries []string, body []Statement) *BlockNode {
	return &BlockNode{base: base{line}, Arguments: arguments, Temporaries: temporaries, Body: body}
}

func NewMessageSendNode(line int, receiver Node, selector string, arguments []Node, isSuper bool) *MessageSendNode {
	return &MessageSendNode{base: base{line}, Receiver: receiver, Selector: selector, Arguments: arguments, IsSuper: isSuper}
}

func NewCascadeNode(line int, receiver Node, messages ...CascadeMessage) *CascadeNode {
	return &CascadeNode{base: base{line}, Receiver: receiver, Messages: messages}
}

func NewIdentifierNode(line int, name string) *IdentifierNode {
	return &IdentifierNode{base: base{line}, Name: name}
}

func NewAssignmentNode(line int, name string, value Node) *AssignmentNode {
	return &AssignmentNode{base: base{line}, Name: name, Value: value}
}

func NewReturnNode(line int, value Node) *ReturnNode {
	return &ReturnNode{base: base{line}, Value: value}
}

func NewLiteralNode(line int, value any) *LiteralNode {
	return &LiteralNode{base: base{line}, Value: value}
}

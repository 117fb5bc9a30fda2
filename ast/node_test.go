package ast

import "testing"

// nodeKinds confirms every exported node type satisfies Node and reports
// its own line, since that is the entire contract this package promises
// downstream packages.
func TestNodeKindsImplementNodeAndReportLine(t *testing.T) {
	nodes := []Node{
		NewProgram(1),
		NewMethodNode(2, "foo", nil, nil, nil),
		NewBlockNode(3, []string{"x"}, nil, nil),
		NewMessageSendNode(4, NewIdentifierNode(4, "self"), "foo", nil, false),
		NewCascadeNode(5, NewIdentifierNode(5, "Transcript")),
		NewIdentifierNode(6, "x"),
		NewAssignmentNode(7, "x", NewLiteralNode(7, int64(1))),
		NewReturnNode(8, NewIdentifierNode(8, "self")),
		NewLiteralNode(9, int64(42)),
	}
	for i, n := range nodes {
		if n.Pos() != i+1 {
			t.Errorf("node %d: Pos() = %d, want %d", i, n.Pos(), i+1)
		}
	}
}

func TestMessageSendNodeCapturesSuperAndArguments(t *testing.T) {
	recv := NewIdentifierNode(1, "self")
	arg := NewLiteralNode(1, int64(5))
	send := NewMessageSendNode(1, recv, "foo:", []Node{arg}, true)

	if !send.IsSuper {
		t.Error("IsSuper = false, want true")
	}
	if send.Receiver != Node(recv) {
		t.Error("Receiver not preserved")
	}
	if len(send.Arguments) != 1 || send.Arguments[0] != Node(arg) {
		t.Error("Arguments not preserved")
	}
}

func TestCascadeNodeHoldsOrderedMessages(t *testing.T) {
	recv := NewIdentifierNode(1, "Transcript")
	cascade := NewCascadeNode(1, recv,
		CascadeMessage{Selector: "show:", Arguments: []Node{NewLiteralNode(1, "a")}, Line: 1},
		CascadeMessage{Selector: "show:", Arguments: []Node{NewLiteralNode(2, "b")}, Line: 2},
	)
	if len(cascade.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(cascade.Messages))
	}
	if cascade.Messages[0].Selector != "show:" || cascade.Messages[1].Line != 2 {
		t.Error("cascade message fields not preserved in order")
	}
}

func TestLiteralNodeHoldsNativeValuesIncludingSymbolsAndArrays(t *testing.T) {
	cases := []any{
		int64(7), 3.5, 'a', "hello", SymbolLiteral("foo"), true, false, nil,
		[]any{int64(1), SymbolLiteral("bar"), []any{int64(2)}},
	}
	for _, v := range cases {
		lit := NewLiteralNode(1, v)
		if lit.Value == nil && v != nil {
			t.Errorf("literal value lost: got nil, want %#v", v)
		}
	}
}

func TestMethodNodeBodyAcceptsMixedStatements(t *testing.T) {
	body := []Statement{
		NewAssignmentNode(2, "x", NewLiteralNode(2, int64(1))),
		NewReturnNode(3, NewIdentifierNode(3, "x")),
	}
	m := NewMethodNode(1, "compute", []string{"a"}, []string{"x"}, body)
	if len(m.Body) != 2 {
		t.Fatalf("len(Body) = %d, want 2", len(m.Body))
	}
	if _, ok := m.Body[1].(*ReturnNode); !ok {
		t.Errorf("Body[1] = %T, want *ReturnNode", m.Body[1])
	}
}

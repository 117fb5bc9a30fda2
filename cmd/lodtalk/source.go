package main

import (
	"encoding/json"
	"fmt"

	"github.com/lodtalk-go/vm/ast"
)

// Package main's source loader fills the gap spec.md §1 leaves explicit:
// "the parser and lexical grammar" is an external collaborator, out of
// scope for this repository. loadProgram is not that parser -- it is a
// plain JSON decoder for the node shapes package ast (ast/node.go) defines
// as the contract an external parser is assumed to produce, letting
// spec.md §6's "positional source path" name a file this CLI can actually
// read without this repository growing a Smalltalk grammar.
//
// Wire shape, one JSON object per node, discriminated by "type":
//
//	{"type":"send","selector":"foo:","receiver":<node>,"args":[<node>,...]}
//	{"type":"cascade","receiver":<node>,"messages":[{"selector":"...","args":[...]}]}
//	{"type":"identifier","name":"Counter"}
//	{"type":"assignment","name":"x","value":<node>}
//	{"type":"return","value":<node>}
//	{"type":"literal","kind":"int","int":3}
//	{"type":"block","params":["x"],"temporaries":["y"],"body":[<stmt>,...]}
//	{"type":"method","selector":"at:put:","params":["k","v"],"temporaries":[],"body":[<stmt>,...]}
//
// A literal's "kind" is one of "int", "float", "char", "string",
// "symbol", "bool", "nil" or "array", and its value sits under the key
// that kind names ("nil" has none; "array" holds a list of literal
// objects, each with its own "kind"). A top-level program is a bare JSON
// array of statement nodes.
type wireNode struct {
	Type       string          `json:"type"`
	Line       int             `json:"line"`
	Name       string          `json:"name"`
	Value      json.RawMessage `json:"value"`
	Receiver   json.RawMessage `json:"receiver"`
	Selector   string          `json:"selector"`
	Arguments  []json.RawMessage `json:"args"`
	IsSuper    bool            `json:"isSuper"`
	Messages   []wireCascadeMessage `json:"messages"`
	Kind       string          `json:"kind"`
	Int        int64           `json:"int"`
	Float      float64         `json:"float"`
	Char       string          `json:"char"`
	Str        string          `json:"string"`
	Symbol     string          `json:"symbol"`
	Bool       bool            `json:"bool"`
	Array      []json.RawMessage `json:"array"`
	Params     []string        `json:"params"`
	Temps      []string        `json:"temporaries"`
	Body       []json.RawMessage `json:"body"`
}

type wireCascadeMessage struct {
	Selector string            `json:"selector"`
	Args     []json.RawMessage `json:"args"`
	Line     int               `json:"line"`
}

// loadProgram decodes data (a JSON array of top-level statement nodes)
// into an *ast.Program.
func loadProgram(data []byte) (*ast.Program, error) {
	var rawStatements []json.RawMessage
	if err := json.Unmarshal(data, &rawStatements); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	statements := make([]ast.Statement, 0, len(rawStatements))
	for _, raw := range rawStatements {
		stmt, err := decodeNode(raw)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return ast.NewProgram(1, statements...), nil
}

func decodeNode(raw json.RawMessage) (ast.Node, error) {
	if raw == nil {
		return nil, nil
	}
	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	switch w.Type {
	case "identifier":
		return ast.NewIdentifierNode(w.Line, w.Name), nil
	case "assignment":
		value, err := decodeNode(w.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewAssignmentNode(w.Line, w.Name, value), nil
	case "return":
		value, err := decodeNode(w.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewReturnNode(w.Line, value), nil
	case "send":
		receiver, err := decodeNode(w.Receiver)
		if err != nil {
			return nil, err
		}
		args, err := decodeNodes(w.Arguments)
		if err != nil {
			return nil, err
		}
		return ast.NewMessageSendNode(w.Line, receiver, w.Selector, args, w.IsSuper), nil
	case "cascade":
		receiver, err := decodeNode(w.Receiver)
		if err != nil {
			return nil, err
		}
		messages := make([]ast.CascadeMessage, 0, len(w.Messages))
		for _, m := range w.Messages {
			args, err := decodeNodes(m.Args)
			if err != nil {
				return nil, err
			}
			line := m.Line
			if line == 0 {
				line = w.Line
			}
			messages = append(messages, ast.CascadeMessage{Selector: m.Selector, Arguments: args, Line: line})
		}
		return ast.NewCascadeNode(w.Line, receiver, messages...), nil
	case "literal":
		value, err := decodeLiteral(w)
		if err != nil {
			return nil, err
		}
		return ast.NewLiteralNode(w.Line, value), nil
	case "block":
		body, err := decodeNodes(w.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewBlockNode(w.Line, w.Params, w.Temps, body), nil
	case "method":
		body, err := decodeNodes(w.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewMethodNode(w.Line, w.Selector, w.Params, w.Temps, body), nil
	default:
		return nil, fmt.Errorf("unrecognized node type %q", w.Type)
	}
}

func decodeNodes(raws []json.RawMessage) ([]ast.Node, error) {
	nodes := make([]ast.Node, 0, len(raws))
	for _, raw := range raws {
		n, err := decodeNode(raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func decodeLiteral(w wireNode) (any, error) {
	switch w.Kind {
	case "int":
		return w.Int, nil
	case "float":
		return w.Float, nil
	case "char":
		r := []rune(w.Char)
		if len(r) != 1 {
			return nil, fmt.Errorf("literal char %q is not a single code point", w.Char)
		}
		return r[0], nil
	case "string":
		return w.Str, nil
	case "symbol":
		return ast.SymbolLiteral(w.Symbol), nil
	case "bool":
		return w.Bool, nil
	case "nil":
		return nil, nil
	case "array":
		values := make([]any, 0, len(w.Array))
		for _, raw := range w.Array {
			var elem wireNode
			if err := json.Unmarshal(raw, &elem); err != nil {
				return nil, fmt.Errorf("decode literal array element: %w", err)
			}
			v, err := decodeLiteral(elem)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unrecognized literal kind %q", w.Kind)
	}
}

package script

import (
	"strings"

	"github.com/lodtalk-go/vm/ast"
	"github.com/lodtalk-go/vm/class"
	"github.com/lodtalk-go/vm/compiler"
	"github.com/lodtalk-go/vm/errors"
)

// subclassSelector and compileSelector are the two top-level DSL forms a
// Script recognizes, grounded on real Smalltalk's own class-declaration
// and Behavior>>compile: idioms (the top-level forms ast.Program's doc
// comment names: a MessageSendNode sending a class-definition selector to
// a class object, or a cascade of method-definition sends).
const (
	subclassSelector = "subclass:instanceVariableNames:classVariableNames:package:"
	compileSelector  = "compile:classified:"
)

// Script is one ast.Program bound and loaded against a Runtime: every
// class its top-level statements declare now exists in the Runtime's
// class table, and every method they define now has compiled bytecode
// installed in the right method dictionary.
type Script struct {
	Runtime        *Runtime
	ClassesDefined []class.Class
	MethodsDefined int
}

// Load walks program's top-level statements in order, applying each
// class-definition or method-definition form against rt. A statement
// that is neither form, or whose literal arguments are not shaped the
// way the DSL expects, is a script-phase error -- there is no recovery,
// since a later statement may depend on an earlier one having actually
// run (e.g. a method definition naming a class an earlier statement
// declared).
func Load(rt *Runtime, program *ast.Program) (*Script, error) {
	s := &Script{Runtime: rt}
	for _, stmt := range program.Statements {
		if err := s.loadStatement(stmt); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Script) loadStatement(stmt ast.Statement) error {
	switch n := stmt.(type) {
	case *ast.MessageSendNode:
		return s.loadSend(n)
	case *ast.CascadeNode:
		receiver, ok := n.Receiver.(*ast.IdentifierNode)
		if !ok {
			return scriptErr(stmt, "cascade receiver must be a class-name identifier")
		}
		for _, msg := range n.Messages {
			if msg.Selector != compileSelector {
				return scriptErr(stmt, "cascaded top-level selector %q is not %q", msg.Selector, compileSelector)
			}
			if err := s.defineMethod(stmt, receiver.Name, msg.Arguments); err != nil {
				return err
			}
		}
		return nil
	default:
		return scriptErr(stmt, "top-level statement must be a message send or cascade, got %T", stmt)
	}
}

func (s *Script) loadSend(n *ast.MessageSendNode) error {
	switch n.Selector {
	case subclassSelector:
		return s.defineClass(n)
	case compileSelector:
		receiver, ok := n.Receiver.(*ast.IdentifierNode)
		if !ok {
			return scriptErr(n, "compile:classified: receiver must be a class-name identifier")
		}
		return s.defineMethod(n, receiver.Name, n.Arguments)
	default:
		return scriptErr(n, "unrecognized top-level selector %q", n.Selector)
	}
}

// defineClass handles Receiver subclass: #Name instanceVariableNames:
// 'a b' classVariableNames: '' package: 'Kernel'. The superclass name
// comes from the send's own Receiver identifier, matching how real
// Smalltalk class declarations read (Object subclass: #Counter ...).
func (s *Script) defineClass(n *ast.MessageSendNode) error {
	superIdent, ok := n.Receiver.(*ast.IdentifierNode)
	if !ok {
		return scriptErr(n, "subclass: receiver must be a superclass identifier")
	}
	className, err := literalName(n.Arguments[0])
	if err != nil {
		return err
	}
	ivarString, err := literalString(n.Arguments[1])
	if err != nil {
		return err
	}
	classVarString, err := literalString(n.Arguments[2])
	if err != nil {
		return err
	}
	if strings.TrimSpace(classVarString) != "" {
		return scriptErr(n, "class variables are not supported (class %s declares %q)", className, classVarString)
	}
	packageName, err := literalString(n.Arguments[3])
	if err != nil {
		return err
	}

	cls, err := s.Runtime.DefineClass(className, superIdent.Name, strings.Fields(ivarString), packageName)
	if err != nil {
		return err
	}
	s.ClassesDefined = append(s.ClassesDefined, cls)
	return nil
}

// defineMethod handles targetName compile: <MethodNode> classified:
// <category>, where args[0] carries a pre-parsed *ast.MethodNode (this
// repo has no source-text parser -- see SPEC_FULL.md's AST contract) and
// args[1] is a free-text category string, recorded for documentation
// purposes only: this data model has no per-method organization store to
// index it by (see DESIGN.md).
func (s *Script) defineMethod(stmt ast.Statement, targetName string, args []ast.Node) error {
	if len(args) != 2 {
		return scriptErr(stmt, "compile:classified: expects 2 arguments, got %d", len(args))
	}
	method, err := literalMethod(args[0])
	if err != nil {
		return err
	}
	if _, err := literalString(args[1]); err != nil {
		return err
	}

	cls, err := s.Runtime.classForTarget(targetName)
	if err != nil {
		return err
	}

	cm, err := compiler.Compile(s.Runtime.Heap, s.Runtime.Bootstrap.Registry.Symbols, runtimeGlobals{s.Runtime}, compiler.Singletons{
		Nil:   s.Runtime.Bootstrap.Nil,
		True:  s.Runtime.Bootstrap.True,
		False: s.Runtime.Bootstrap.False,
	}, cls, method)
	if err != nil {
		return err
	}

	sel, err := s.Runtime.Bootstrap.Registry.Symbols.Intern(method.Selector)
	if err != nil {
		return err
	}
	if err := class.AsMethodDictionary(s.Runtime.Heap, cls.MethodDict()).AtPut(sel, cm.Value); err != nil {
		return err
	}
	s.MethodsDefined++
	return nil
}

func literalName(n ast.Node) (string, error) {
	lit, ok := n.(*ast.LiteralNode)
	if !ok {
		return "", scriptErr(n, "expected a literal symbol, got %T", n)
	}
	switch v := lit.Value.(type) {
	case ast.SymbolLiteral:
		return string(v), nil
	case string:
		return v, nil
	default:
		return "", scriptErr(n, "expected a symbol or string literal, got %T", lit.Value)
	}
}

func literalString(n ast.Node) (string, error) {
	lit, ok := n.(*ast.LiteralNode)
	if !ok {
		return "", scriptErr(n, "expected a literal string, got %T", n)
	}
	switch v := lit.Value.(type) {
	case string:
		return v, nil
	case ast.SymbolLiteral:
		return string(v), nil
	default:
		return "", scriptErr(n, "expected a string literal, got %T", lit.Value)
	}
}

func literalMethod(n ast.Node) (*ast.MethodNode, error) {
	lit, ok := n.(*ast.LiteralNode)
	if !ok {
		return nil, scriptErr(n, "expected a literal carrying a method node, got %T", n)
	}
	method, ok := lit.Value.(*ast.MethodNode)
	if !ok {
		return nil, scriptErr(n, "expected a *ast.MethodNode literal, got %T", lit.Value)
	}
	return method, nil
}

func scriptErr(n ast.Node, detail string, args ...any) error {
	line := 0
	if n != nil {
		line = n.Pos()
	}
	return errors.CompileError(errors.KindInvalidInput, "script", line, detail, args...)
}

package earthengine

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

type exprKind int

const (
	kindConstant exprKind = iota
	kindInvocation
	kindArgument
	kindFunction
	kindArray
	kindDict
)

// Expr is a node of a lazily evaluated Earth Engine computation graph.
// Nodes are immutable once built and may be shared between parents.
type Expr struct {
	kind     exprKind
	constant any
	function string
	args     Args
	argName  string
	params   []string
	body     *Expr
	items    []*Expr
	entries  map[string]*Expr
}

// Args are named arguments of a function invocation.
type Args map[string]*Expr

// Constant wraps a JSON-encodable literal.
func Constant(v any) *Expr {
	return &Expr{kind: kindConstant, constant: v}
}

// Call invokes a server-side algorithm. Nil arguments are dropped.
func Call(function string, args Args) *Expr {
	clean := make(Args, len(args))
	for k, v := range args {
		if v != nil {
			clean[k] = v
		}
	}
	return &Expr{kind: kindInvocation, function: function, args: clean}
}

// Arg references a parameter of the enclosing function definition.
func Arg(name string) *Expr {
	return &Expr{kind: kindArgument, argName: name}
}

// Func defines an anonymous function, e.g. the body of Collection.map.
func Func(params []string, body *Expr) *Expr {
	return &Expr{kind: kindFunction, params: params, body: body}
}

// Array builds an array whose elements may themselves be expressions.
func Array(items ...*Expr) *Expr {
	return &Expr{kind: kindArray, items: items}
}

// Dict builds a dictionary whose values may themselves be expressions.
func Dict(entries map[string]*Expr) *Expr {
	return &Expr{kind: kindDict, entries: entries}
}

// FunctionName returns the invoked algorithm, or "" for non-invocations.
func (e *Expr) FunctionName() string {
	if e == nil || e.kind != kindInvocation {
		return ""
	}
	return e.function
}

// Argument returns a named argument of an invocation.
func (e *Expr) Argument(name string) *Expr {
	if e == nil || e.kind != kindInvocation {
		return nil
	}
	return e.args[name]
}

// ConstantValue returns the literal of a constant node.
func (e *Expr) ConstantValue() (any, bool) {
	if e == nil || e.kind != kindConstant {
		return nil, false
	}
	return e.constant, true
}

// Expression is the wire form of a computation graph.
type Expression struct {
	Result string               `json:"result"`
	Values map[string]ValueNode `json:"values"`
}

// ValueNode is one entry of an Expression. Exactly one field is set.
type ValueNode struct {
	ConstantValue           json.RawMessage     `json:"constantValue,omitempty"`
	FunctionInvocationValue *FunctionInvocation `json:"functionInvocationValue,omitempty"`
	FunctionDefinitionValue *FunctionDefinition `json:"functionDefinitionValue,omitempty"`
	ArgumentReference       string              `json:"argumentReference,omitempty"`
	ValueReference          string              `json:"valueReference,omitempty"`
	ArrayValue              *ArrayValue         `json:"arrayValue,omitempty"`
	DictionaryValue         *DictionaryValue    `json:"dictionaryValue,omitempty"`
}

// FunctionInvocation calls a named algorithm.
type FunctionInvocation struct {
	FunctionName string               `json:"functionName"`
	Arguments    map[string]ValueNode `json:"arguments,omitempty"`
}

// FunctionDefinition declares a function whose body is a value reference.
type FunctionDefinition struct {
	ArgumentNames []string `json:"argumentNames"`
	Body          string   `json:"body"`
}

// ArrayValue holds array elements.
type ArrayValue struct {
	Values []ValueNode `json:"values"`
}

// DictionaryValue holds dictionary entries.
type DictionaryValue struct {
	Values map[string]ValueNode `json:"values"`
}

// Encode serializes the graph rooted at root. Structurally identical
// sub-graphs are emitted once and referenced by id.
func Encode(root *Expr) (*Expression, error) {
	if root == nil {
		return nil, eris.New("earthengine: encode nil expression")
	}
	enc := &encoder{
		values: make(map[string]ValueNode),
		seen:   make(map[string]string),
	}
	node, err := enc.node(root)
	if err != nil {
		return nil, err
	}
	id := node.ValueReference
	if id == "" {
		id, err = enc.store(node)
		if err != nil {
			return nil, err
		}
	}
	return &Expression{Result: id, Values: enc.values}, nil
}

type encoder struct {
	values map[string]ValueNode
	seen   map[string]string // canonical JSON -> id
	next   int
}

// node converts e to a ValueNode, hoisting invocations and function
// definitions into the shared value table.
func (enc *encoder) node(e *Expr) (ValueNode, error) {
	switch e.kind {
	case kindConstant:
		raw, err := json.Marshal(e.constant)
		if err != nil {
			return ValueNode{}, eris.Wrap(err, "earthengine: encode constant")
		}
		return ValueNode{ConstantValue: raw}, nil

	case kindArgument:
		return ValueNode{ArgumentReference: e.argName}, nil

	case kindArray:
		vals := make([]ValueNode, 0, len(e.items))
		for i, item := range e.items {
			if item == nil {
				return ValueNode{}, eris.Errorf("earthengine: nil array element %d", i)
			}
			v, err := enc.node(item)
			if err != nil {
				return ValueNode{}, err
			}
			vals = append(vals, v)
		}
		return ValueNode{ArrayValue: &ArrayValue{Values: vals}}, nil

	case kindDict:
		vals := make(map[string]ValueNode, len(e.entries))
		for k, item := range e.entries {
			if item == nil {
				return ValueNode{}, eris.Errorf("earthengine: nil dictionary value %q", k)
			}
			v, err := enc.node(item)
			if err != nil {
				return ValueNode{}, err
			}
			vals[k] = v
		}
		return ValueNode{DictionaryValue: &DictionaryValue{Values: vals}}, nil

	case kindInvocation:
		args := make(map[string]ValueNode, len(e.args))
		for name, a := range e.args {
			v, err := enc.node(a)
			if err != nil {
				return ValueNode{}, eris.Wrapf(err, "earthengine: argument %s of %s", name, e.function)
			}
			args[name] = v
		}
		id, err := enc.store(ValueNode{FunctionInvocationValue: &FunctionInvocation{
			FunctionName: e.function,
			Arguments:    args,
		}})
		if err != nil {
			return ValueNode{}, err
		}
		return ValueNode{ValueReference: id}, nil

	case kindFunction:
		if e.body == nil {
			return ValueNode{}, eris.New("earthengine: function definition without body")
		}
		body, err := enc.node(e.body)
		if err != nil {
			return ValueNode{}, err
		}
		bodyID := body.ValueReference
		if bodyID == "" {
			if bodyID, err = enc.store(body); err != nil {
				return ValueNode{}, err
			}
		}
		id, err := enc.store(ValueNode{FunctionDefinitionValue: &FunctionDefinition{
			ArgumentNames: e.params,
			Body:          bodyID,
		}})
		if err != nil {
			return ValueNode{}, err
		}
		return ValueNode{ValueReference: id}, nil
	}
	return ValueNode{}, eris.Errorf("earthengine: unknown expression kind %d", e.kind)
}

func (enc *encoder) store(v ValueNode) (string, error) {
	key, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "earthengine: canonicalize value")
	}
	if id, ok := enc.seen[string(key)]; ok {
		return id, nil
	}
	id := strconv.Itoa(enc.next)
	enc.next++
	enc.values[id] = v
	enc.seen[string(key)] = id
	return id, nil
}

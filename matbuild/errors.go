package matbuild

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a diagnostic.
type ErrorKind uint8

const (
	// KindType reports invalid casts, arithmetic on non-numeric types and
	// insufficient components.
	KindType ErrorKind = iota
	// KindStructural reports graph shape problems such as reentrant expressions,
	// missing inputs and exceeded hardware limits.
	KindStructural
	// KindDomain reports features used in a stage or material domain that forbids them.
	KindDomain
)

func (k ErrorKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindStructural:
		return "structural"
	case KindDomain:
		return "domain"
	}
	return "unknown"
}

// Diagnostic is an error found while translating a material.
type Diagnostic struct {
	Message string
	// Node is the offending node, or the function call node containing it.
	// It is zero for errors not attributable to a node.
	Node NodeID
	Kind ErrorKind
}

func (d Diagnostic) Error() string { return d.Message }

var errAlreadyTranslated = errors.New("translator already used")

// Error reports a diagnostic of the given kind at the expression being compiled.
func (ctx Context) Error(kind ErrorKind, msg string) Code {
	t := ctx.t
	var node NodeID
	var prefix strings.Builder
	stack := t.stacks[ctx.freq]
	if len(stack) > 1 && stack[1].call != nil {
		prefix.WriteString("Function ")
		prefix.WriteString(stack[1].call.FunctionName())
		prefix.WriteString(": ")
		node = stack[1].callNode
	}
	if len(stack) > 0 {
		cur := stack[len(stack)-1]
		if n := len(cur.exprStack); n > 0 {
			key := cur.exprStack[n-1]
			if expr := t.mat.node(key.Node); expr != nil {
				nodeKind := expr.Kind()
				if nodeKind != KindFunctionCall && nodeKind != KindFunctionInput && nodeKind != KindFunctionOutput {
					prefix.WriteString("(Node ")
					prefix.WriteString(nodeKind)
					prefix.WriteString(") ")
				}
				if node == 0 {
					node = key.Node
				}
			}
		}
	}
	d := Diagnostic{Message: prefix.String() + msg, Node: node, Kind: kind}
	if t.sink != nil {
		*t.sink = append(*t.sink, d)
		return Code{}
	}
	t.addDiagnostic(d)
	return Code{}
}

// Errorf reports a structural diagnostic at the expression being compiled.
// It always returns the zero Code so node implementations can return it directly.
func (ctx Context) Errorf(format string, args ...any) Code {
	return ctx.Error(KindStructural, fmt.Sprintf(format, args...))
}

func (ctx Context) typeErrorf(format string, args ...any) Code {
	return ctx.Error(KindType, fmt.Sprintf(format, args...))
}

func (ctx Context) domainErrorf(format string, args ...any) Code {
	return ctx.Error(KindDomain, fmt.Sprintf(format, args...))
}

// addDiagnostic appends d unless a diagnostic with the same message exists,
// and marks the pass as failed.
func (t *Translator) addDiagnostic(d Diagnostic) {
	t.success = false
	for _, have := range t.diags {
		if have.Message == d.Message {
			return
		}
	}
	t.diags = append(t.diags, d)
	t.log.Debug("translator diagnostic", "kind", d.Kind, "node", d.Node, "msg", d.Message)
}

// errorf reports a diagnostic not tied to the expression being compiled.
func (t *Translator) errorf(kind ErrorKind, format string, args ...any) {
	t.addDiagnostic(Diagnostic{Message: fmt.Sprintf(format, args...), Kind: kind})
}

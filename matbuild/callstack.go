package matbuild

// Context is the compile context threaded through every expression compile.
// It is an immutable value: operations that change the stage, scope or
// frame return a modified copy.
type Context struct {
	t           *Translator
	freq        Frequency
	scope       int
	property    Property
	attributeID Property
	prevFrame   bool
	// node is the expression being compiled.
	node NodeID
	// shared is the function state handed by the caller to a function call
	// node being compiled.
	shared *FunctionState
}

// Frequency returns the shader stage being compiled.
func (ctx Context) Frequency() Frequency { return ctx.freq }

// Node returns the handle of the expression being compiled.
func (ctx Context) Node() NodeID { return ctx.node }

// Property returns the material property being compiled or PropNone.
func (ctx Context) Property() Property { return ctx.property }

// PreviousFrame reports whether values of the previous frame are being compiled.
func (ctx Context) PreviousFrame() bool { return ctx.prevFrame }

// WithPreviousFrame returns a copy of ctx compiling previous frame values.
func (ctx Context) WithPreviousFrame(prev bool) Context {
	ctx.prevFrame = prev
	return ctx
}

// FeatureLevel returns the feature level of the target platform.
func (ctx Context) FeatureLevel() FeatureLevel { return ctx.t.opts.FeatureLevel }

// VirtualTexturing reports whether virtual textures are sampled through VT stacks.
func (ctx Context) VirtualTexturing() bool { return ctx.t.opts.VirtualTexturing }

// Material returns the material being translated.
func (ctx Context) Material() *Material { return ctx.t.mat }

// ExpressionKey identifies one compile result inside a function state.
type ExpressionKey struct {
	Node          NodeID
	Output        int
	AttributeID   Property
	PreviousFrame bool
}

// FunctionState is a frame of the function call stack.
type FunctionState struct {
	call      FunctionCaller
	callNode  NodeID
	exprStack []ExpressionKey
	memo      map[ExpressionKey]Code
	shared    map[ExpressionKey]*FunctionState
}

func newFunctionState(call FunctionCaller, node NodeID) *FunctionState {
	return &FunctionState{call: call, callNode: node, memo: make(map[ExpressionKey]Code)}
}

func (fs *FunctionState) onStack(key ExpressionKey) bool {
	for _, k := range fs.exprStack {
		if k == key {
			return true
		}
	}
	return false
}

// findOrAddShared returns the child state shared by calls with key.
func (fs *FunctionState) findOrAddShared(key ExpressionKey, call FunctionCaller) *FunctionState {
	if fs.shared == nil {
		fs.shared = make(map[ExpressionKey]*FunctionState)
	}
	s, ok := fs.shared[key]
	if !ok {
		s = newFunctionState(call, key.Node)
		fs.shared[key] = s
	}
	return s
}

func (ctx Context) stack() []*FunctionState { return ctx.t.stacks[ctx.freq] }

func (ctx Context) currentState() *FunctionState {
	s := ctx.t.stacks[ctx.freq]
	return s[len(s)-1]
}

// pushFunction pushes fs onto the stack of the current stage and returns
// the function that pops it.
func (ctx Context) pushFunction(fs *FunctionState) (pop func()) {
	t, freq := ctx.t, ctx.freq
	t.stacks[freq] = append(t.stacks[freq], fs)
	depth := len(t.stacks[freq])
	return func() {
		s := t.stacks[freq]
		if len(s) != depth || s[depth-1] != fs {
			panic("matbuild: unbalanced function stack")
		}
		t.stacks[freq] = s[:depth-1]
	}
}

// Compile compiles the expression connected to in. An unconnected input
// returns the zero Code without reporting an error.
func (ctx Context) Compile(in Input) Code {
	if !in.IsConnected() {
		return Code{}
	}
	expr := ctx.t.mat.node(in.Node)
	if expr == nil {
		return ctx.Errorf("Missing node %d", in.Node)
	}
	return ctx.callExpression(expr, in)
}

// callExpression compiles expr with memoization in the current function state.
func (ctx Context) callExpression(expr Expression, in Input) Code {
	key := ExpressionKey{Node: in.Node, Output: in.Output, AttributeID: ctx.attributeID, PreviousFrame: ctx.prevFrame}
	if ap, ok := expr.(attributesProducer); !ok || !ap.IsResultMaterialAttributes(in.Output) {
		key.AttributeID = PropNone
	}
	if oi, ok := expr.(outputIgnorer); ok && oi.CanIgnoreOutputIndex() {
		key.Output = 0
	}
	state := ctx.currentState()
	if c, ok := state.memo[key]; ok {
		return ctx.maskOutput(expr, in.Output, c)
	}
	// A key in progress anywhere on the open call chain is a cycle.
	for _, fs := range ctx.stack() {
		if fs.onStack(key) {
			return ctx.Errorf("Reentrant expression")
		}
	}
	state.exprStack = append(state.exprStack, key)
	defer func() { state.exprStack = state.exprStack[:len(state.exprStack)-1] }()

	inner := ctx
	inner.shared = nil
	inner.node = in.Node
	if call, ok := expr.(FunctionCaller); ok {
		sharedKey := key
		sharedKey.Output = -1
		inner.shared = state.findOrAddShared(sharedKey, call)
	}
	result := expr.Compile(inner, in.Output)
	ctx.currentState().memo[key] = result
	return ctx.maskOutput(expr, in.Output, result)
}

func (ctx Context) maskOutput(expr Expression, output int, c Code) Code {
	om, ok := expr.(outputMasker)
	if !ok || !c.IsValid() {
		return c
	}
	mask, ok := om.OutputMask(output)
	if !ok {
		return c
	}
	return ctx.ComponentMask(c, mask[0], mask[1], mask[2], mask[3])
}

// CallFunction compiles body, the output of a material function, inside the
// function state of the function call node being compiled.
func (ctx Context) CallFunction(call FunctionCaller, body Input) Code {
	fs := ctx.shared
	if fs == nil {
		fs = newFunctionState(call, 0)
	}
	fs.call = call
	pop := ctx.pushFunction(fs)
	defer pop()
	inner := ctx
	inner.shared = nil
	if !body.IsConnected() {
		return inner.Errorf("Missing function output connection")
	}
	return inner.Compile(body)
}

// FunctionArgument compiles the caller side argument of the function input
// with the given index and casts it to typ. When compiled outside of a
// function, or when the caller leaves the argument unconnected, preview is
// compiled inside the function instead.
func (ctx Context) FunctionArgument(index int, preview Input, typ ValueType) Code {
	stack := ctx.stack()
	var arg Input
	cur := stack[len(stack)-1]
	if len(stack) > 1 && cur.call != nil {
		arg = cur.call.Argument(index)
	}
	if !arg.IsConnected() {
		if !preview.IsConnected() {
			return ctx.Errorf("Missing function input %d", index)
		}
		return ctx.ValidCast(ctx.Compile(preview), typ)
	}
	code := func() Code {
		// Caller arguments compile in the caller's state.
		defer ctx.popFunction()()
		return ctx.Compile(arg)
	}()
	return ctx.ValidCast(code, typ)
}

// popFunction pops the top function state of the current stage and returns
// the function that pushes it back.
func (ctx Context) popFunction() (restore func()) {
	t, freq := ctx.t, ctx.freq
	s := t.stacks[freq]
	top := s[len(s)-1]
	t.stacks[freq] = s[:len(s)-1]
	return func() { t.stacks[freq] = append(t.stacks[freq], top) }
}

// resetStack drops every function state of the stage and clears the root state.
func (t *Translator) resetStack(freq Frequency) {
	t.stacks[freq] = []*FunctionState{newFunctionState(nil, 0)}
}

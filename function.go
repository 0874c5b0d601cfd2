package gmat

import "github.com/soypat/gmat/matbuild"

// Function is a reusable subgraph with its own inputs and outputs. Its
// nodes live in the graph of the [Builder] that created it and are compiled
// once per call site.
type Function struct {
	Name    string
	inputs  []NodeID
	outputs []NodeID
}

// NumInputs returns the number of inputs declared for the function.
func (f *Function) NumInputs() int { return len(f.inputs) }

// NumOutputs returns the number of outputs declared for the function.
func (f *Function) NumOutputs() int { return len(f.outputs) }

// NewFunction declares a function. Inputs and outputs are added with
// [Builder.FunctionInput] and [Builder.FunctionOutput].
func (bld *Builder) NewFunction(name string) *Function {
	if name == "" {
		bld.inputErrorf("NewFunction: empty name")
	}
	return &Function{Name: name}
}

type functionInput struct {
	f       *Function
	index   int
	name    string
	typ     matbuild.ValueType
	preview Input
}

// FunctionInput adds an input of type typ to f and returns the node reading
// it inside the function body. preview is compiled when the caller leaves
// the input unconnected.
func (bld *Builder) FunctionInput(f *Function, name string, typ matbuild.ValueType, preview Input) Input {
	if f == nil {
		panic("nil function argument to FunctionInput")
	}
	bld.checkInputs("FunctionInput", preview)
	in := bld.add(&functionInput{f: f, index: len(f.inputs), name: name, typ: typ, preview: preview})
	f.inputs = append(f.inputs, in.Node)
	return in
}

func (fi *functionInput) Kind() string                     { return matbuild.KindFunctionInput }
func (fi *functionInput) AppendInputs(dst []Input) []Input { return append(dst, fi.preview) }
func (fi *functionInput) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	return ctx.FunctionArgument(fi.index, fi.preview, fi.typ)
}

type functionOutput struct {
	f     *Function
	name  string
	value Input
}

// FunctionOutput adds an output to f computing value and returns its index.
func (bld *Builder) FunctionOutput(f *Function, name string, value Input) int {
	if f == nil {
		panic("nil function argument to FunctionOutput")
	}
	bld.checkInputs("FunctionOutput", value)
	in := bld.add(&functionOutput{f: f, name: name, value: value})
	f.outputs = append(f.outputs, in.Node)
	return len(f.outputs) - 1
}

func (fo *functionOutput) Kind() string                     { return matbuild.KindFunctionOutput }
func (fo *functionOutput) AppendInputs(dst []Input) []Input { return append(dst, fo.value) }
func (fo *functionOutput) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if !fo.value.IsConnected() {
		return ctx.Errorf("Missing function output %q of %s", fo.name, fo.f.Name)
	}
	return ctx.Compile(fo.value)
}

type functionCall struct {
	f    *Function
	args []Input
}

// FunctionCall creates a node calling f with args bound to its inputs in
// declaration order. Output i of the node is output i of the function.
// Functions may be called before their body is complete so that functions
// can reference each other.
func (bld *Builder) FunctionCall(f *Function, args ...Input) Input {
	if f == nil {
		panic("nil function argument to FunctionCall")
	}
	bld.checkInputs("FunctionCall "+f.Name, args...)
	return bld.add(&functionCall{f: f, args: args})
}

func (fc *functionCall) Kind() string         { return matbuild.KindFunctionCall }
func (fc *functionCall) FunctionName() string { return fc.f.Name }

// Argument implements [matbuild.FunctionCaller].
func (fc *functionCall) Argument(index int) Input {
	if index < 0 || index >= len(fc.args) {
		return Input{}
	}
	return fc.args[index]
}

// AppendInputs appends the arguments and the function outputs, so walks
// over the graph enter the function body.
func (fc *functionCall) AppendInputs(dst []Input) []Input {
	dst = append(dst, fc.args...)
	for _, out := range fc.f.outputs {
		dst = append(dst, Input{Node: out})
	}
	return dst
}

func (fc *functionCall) Compile(ctx matbuild.Context, output int) matbuild.Code {
	f := fc.f
	switch {
	case len(fc.args) > len(f.inputs):
		return ctx.Errorf("Function %s called with %d arguments, has %d inputs", f.Name, len(fc.args), len(f.inputs))
	case output < 0 || output >= len(f.outputs):
		return ctx.Errorf("Function %s has no output %d", f.Name, output)
	}
	return ctx.CallFunction(fc, Input{Node: f.outputs[output]})
}

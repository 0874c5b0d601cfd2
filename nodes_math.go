package gmat

import (
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmat/matbuild"
	"github.com/soypat/gmat/mateval"
)

// componentMasks are the masks of outputs 1 through 4 of vector nodes.
var componentMasks = [4][4]bool{
	{true, false, false, false},
	{false, true, false, false},
	{false, false, true, false},
	{false, false, false, true},
}

// vectorOutputMask selects single components on outputs 1..n of a vector
// with n components. Output 0 is the whole vector.
func vectorOutputMask(output, n int) ([4]bool, bool) {
	if output < 1 || output > n {
		return [4]bool{}, false
	}
	return componentMasks[output-1], true
}

type constant struct {
	v mateval.Value
	n int
}

// Constant creates a scalar literal node.
func (bld *Builder) Constant(x float32) Input {
	return bld.add(&constant{v: mateval.Scalar(x), n: 1})
}

// Constant2 creates a two component literal node. Outputs 1 and 2 select R and G.
func (bld *Builder) Constant2(v ms2.Vec) Input {
	return bld.add(&constant{v: mateval.Vec2(v), n: 2})
}

// Constant3 creates a three component literal node. Outputs 1 through 3 select R, G and B.
func (bld *Builder) Constant3(v ms3.Vec) Input {
	return bld.add(&constant{v: mateval.Vec3(v, 0), n: 3})
}

// Constant4 creates a four component literal node with v in RGB and w in A.
func (bld *Builder) Constant4(v ms3.Vec, w float32) Input {
	return bld.add(&constant{v: mateval.Vec3(v, w), n: 4})
}

func (c *constant) Kind() string {
	switch c.n {
	case 2:
		return "Constant2Vector"
	case 3:
		return "Constant3Vector"
	case 4:
		return "Constant4Vector"
	}
	return "Constant"
}

func (c *constant) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	v := c.v
	switch c.n {
	case 2:
		return ctx.Constant2(ms2.Vec{X: v[0], Y: v[1]})
	case 3:
		return ctx.Constant3(ms3.Vec{X: v[0], Y: v[1], Z: v[2]})
	case 4:
		return ctx.Constant4(ms3.Vec{X: v[0], Y: v[1], Z: v[2]}, v[3])
	}
	return ctx.Constant(v[0])
}

func (c *constant) AppendInputs(dst []Input) []Input { return dst }
func (c *constant) CanIgnoreOutputIndex() bool       { return true }
func (c *constant) OutputMask(output int) ([4]bool, bool) {
	if c.n == 1 {
		return [4]bool{}, false
	}
	return vectorOutputMask(output, c.n)
}

type scalarParameter struct {
	name string
	def  float32
}

// ScalarParameter creates a scalar the runtime may override by name.
func (bld *Builder) ScalarParameter(name string, def float32) Input {
	if name == "" {
		bld.inputErrorf("ScalarParameter: empty name")
	}
	return bld.add(&scalarParameter{name: name, def: def})
}

func (p *scalarParameter) Kind() string                     { return "ScalarParameter" }
func (p *scalarParameter) AppendInputs(dst []Input) []Input { return dst }
func (p *scalarParameter) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	return ctx.ScalarParameter(p.name, p.def)
}

type vectorParameter struct {
	name string
	def  mateval.Value
}

// VectorParameter creates a four component vector the runtime may override
// by name. Outputs 1 through 4 select R, G, B and A.
func (bld *Builder) VectorParameter(name string, def ms3.Vec, w float32) Input {
	if name == "" {
		bld.inputErrorf("VectorParameter: empty name")
	}
	return bld.add(&vectorParameter{name: name, def: mateval.Vec3(def, w)})
}

func (p *vectorParameter) Kind() string                     { return "VectorParameter" }
func (p *vectorParameter) AppendInputs(dst []Input) []Input { return dst }
func (p *vectorParameter) CanIgnoreOutputIndex() bool       { return true }
func (p *vectorParameter) OutputMask(output int) ([4]bool, bool) {
	return vectorOutputMask(output, 4)
}
func (p *vectorParameter) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	return ctx.VectorParameter(p.name, p.def)
}

// unaryOp is a node kind computing a function of one input.
type unaryOp uint8

const (
	unaryAbs unaryOp = iota
	unaryFloor
	unaryCeil
	unaryFrac
	unarySaturate
	unarySquareRoot
	unaryLogarithm2
	unaryLogarithm10
	unarySine
	unaryCosine
	unaryTangent
	unaryArcsine
	unaryArccosine
	unaryArctangent
	unaryLength
	unaryNormalize
)

var unaryOps = [...]struct {
	name string
	fn   func(matbuild.Context, matbuild.Code) matbuild.Code
}{
	unaryAbs:         {"Abs", matbuild.Context.Abs},
	unaryFloor:       {"Floor", matbuild.Context.Floor},
	unaryCeil:        {"Ceil", matbuild.Context.Ceil},
	unaryFrac:        {"Frac", matbuild.Context.Frac},
	unarySaturate:    {"Saturate", matbuild.Context.Saturate},
	unarySquareRoot:  {"SquareRoot", matbuild.Context.SquareRoot},
	unaryLogarithm2:  {"Logarithm2", matbuild.Context.Logarithm2},
	unaryLogarithm10: {"Logarithm10", matbuild.Context.Logarithm10},
	unarySine:        {"Sine", matbuild.Context.Sine},
	unaryCosine:      {"Cosine", matbuild.Context.Cosine},
	unaryTangent:     {"Tangent", matbuild.Context.Tangent},
	unaryArcsine:     {"Arcsine", matbuild.Context.Arcsine},
	unaryArccosine:   {"Arccosine", matbuild.Context.Arccosine},
	unaryArctangent:  {"Arctangent", matbuild.Context.Arctangent},
	unaryLength:      {"Length", matbuild.Context.Length},
	unaryNormalize:   {"Normalize", normalize},
}

// normalize divides v by its length.
func normalize(ctx matbuild.Context, v matbuild.Code) matbuild.Code {
	return ctx.Div(v, ctx.SquareRoot(ctx.Dot(v, v)))
}

type unary struct {
	op unaryOp
	x  Input
}

func (bld *Builder) unary(op unaryOp, x Input) Input {
	bld.checkInputs(unaryOps[op].name, x)
	return bld.add(&unary{op: op, x: x})
}

// Abs creates a node computing the absolute value of x.
func (bld *Builder) Abs(x Input) Input { return bld.unary(unaryAbs, x) }

// Floor creates a node rounding x down.
func (bld *Builder) Floor(x Input) Input { return bld.unary(unaryFloor, x) }

// Ceil creates a node rounding x up.
func (bld *Builder) Ceil(x Input) Input { return bld.unary(unaryCeil, x) }

// Frac creates a node computing the fractional part of x.
func (bld *Builder) Frac(x Input) Input { return bld.unary(unaryFrac, x) }

// Saturate creates a node clamping x to [0, 1].
func (bld *Builder) Saturate(x Input) Input { return bld.unary(unarySaturate, x) }

func (bld *Builder) SquareRoot(x Input) Input  { return bld.unary(unarySquareRoot, x) }
func (bld *Builder) Logarithm2(x Input) Input  { return bld.unary(unaryLogarithm2, x) }
func (bld *Builder) Logarithm10(x Input) Input { return bld.unary(unaryLogarithm10, x) }
func (bld *Builder) Sine(x Input) Input        { return bld.unary(unarySine, x) }
func (bld *Builder) Cosine(x Input) Input      { return bld.unary(unaryCosine, x) }
func (bld *Builder) Tangent(x Input) Input     { return bld.unary(unaryTangent, x) }
func (bld *Builder) Arcsine(x Input) Input     { return bld.unary(unaryArcsine, x) }
func (bld *Builder) Arccosine(x Input) Input   { return bld.unary(unaryArccosine, x) }
func (bld *Builder) Arctangent(x Input) Input  { return bld.unary(unaryArctangent, x) }

// Length creates a node computing the euclidean length of vector x.
func (bld *Builder) Length(x Input) Input { return bld.unary(unaryLength, x) }

// Normalize creates a node scaling vector x to unit length.
func (bld *Builder) Normalize(x Input) Input { return bld.unary(unaryNormalize, x) }

func (u *unary) Kind() string { return unaryOps[u.op].name }

func (u *unary) AppendInputs(dst []Input) []Input { return append(dst, u.x) }

func (u *unary) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	info := unaryOps[u.op]
	if !u.x.IsConnected() {
		return ctx.Errorf("Missing %s input", info.name)
	}
	return info.fn(ctx, ctx.Compile(u.x))
}

// binaryOp is a node kind computing a function of two inputs.
type binaryOp uint8

const (
	binaryAdd binaryOp = iota
	binarySubtract
	binaryMultiply
	binaryDivide
	binaryMin
	binaryMax
	binaryPower
	binaryDot
	binaryCross
	binaryFmod
	binaryArctangent2
	binaryAppendVector
)

var binaryOps = [...]struct {
	name string
	fn   func(matbuild.Context, matbuild.Code, matbuild.Code) matbuild.Code
	// constants reports whether unconnected inputs compile their constant.
	constants bool
}{
	binaryAdd:          {"Add", matbuild.Context.Add, true},
	binarySubtract:     {"Subtract", matbuild.Context.Sub, true},
	binaryMultiply:     {"Multiply", matbuild.Context.Mul, true},
	binaryDivide:       {"Divide", matbuild.Context.Div, true},
	binaryMin:          {"Min", matbuild.Context.Min, true},
	binaryMax:          {"Max", matbuild.Context.Max, true},
	binaryPower:        {"Power", matbuild.Context.Power, true},
	binaryDot:          {"Dot", matbuild.Context.Dot, false},
	binaryCross:        {"Cross", matbuild.Context.Cross, false},
	binaryFmod:         {"Fmod", matbuild.Context.Fmod, false},
	binaryArctangent2:  {"Arctangent2", matbuild.Context.Arctangent2, false},
	binaryAppendVector: {"AppendVector", matbuild.Context.AppendVector, false},
}

type binary struct {
	op             binaryOp
	a, b           Input
	constA, constB float32
}

func (bld *Builder) binary(op binaryOp, a, b Input, constA, constB float32) Input {
	bld.checkInputs(binaryOps[op].name, a, b)
	return bld.add(&binary{op: op, a: a, b: b, constA: constA, constB: constB})
}

// Add creates a node computing a+b. An unconnected a is 0 and an unconnected b is 1.
func (bld *Builder) Add(a, b Input) Input { return bld.binary(binaryAdd, a, b, 0, 1) }

// Subtract creates a node computing a-b. Unconnected inputs are 1.
func (bld *Builder) Subtract(a, b Input) Input { return bld.binary(binarySubtract, a, b, 1, 1) }

// Multiply creates a node computing a*b. An unconnected a is 0 and an unconnected b is 1.
func (bld *Builder) Multiply(a, b Input) Input { return bld.binary(binaryMultiply, a, b, 0, 1) }

// Divide creates a node computing a/b. An unconnected a is 1 and an unconnected b is 2.
func (bld *Builder) Divide(a, b Input) Input { return bld.binary(binaryDivide, a, b, 1, 2) }

// Min creates a node computing the componentwise minimum of a and b.
func (bld *Builder) Min(a, b Input) Input { return bld.binary(binaryMin, a, b, 0, 1) }

// Max creates a node computing the componentwise maximum of a and b.
func (bld *Builder) Max(a, b Input) Input { return bld.binary(binaryMax, a, b, 0, 1) }

// Power creates a node computing base raised to exponent. An unconnected exponent is 2.
func (bld *Builder) Power(base, exponent Input) Input {
	return bld.binary(binaryPower, base, exponent, 0, 2)
}

// ScalarAdd creates a node computing a+k.
func (bld *Builder) ScalarAdd(a Input, k float32) Input {
	return bld.binary(binaryAdd, a, Input{}, 0, k)
}

// ScalarMultiply creates a node computing a*k.
func (bld *Builder) ScalarMultiply(a Input, k float32) Input {
	return bld.binary(binaryMultiply, a, Input{}, 0, k)
}

// Dot creates a node computing the dot product of a and b.
func (bld *Builder) Dot(a, b Input) Input { return bld.binary(binaryDot, a, b, 0, 0) }

// Cross creates a node computing the cross product of three component vectors a and b.
func (bld *Builder) Cross(a, b Input) Input { return bld.binary(binaryCross, a, b, 0, 0) }

// Fmod creates a node computing the floating point remainder of a/b.
func (bld *Builder) Fmod(a, b Input) Input { return bld.binary(binaryFmod, a, b, 0, 0) }

// Arctangent2 creates a node computing the angle of the vector (x, y).
func (bld *Builder) Arctangent2(y, x Input) Input {
	return bld.binary(binaryArctangent2, y, x, 0, 0)
}

// AppendVector creates a node concatenating the components of a and b.
func (bld *Builder) AppendVector(a, b Input) Input {
	return bld.binary(binaryAppendVector, a, b, 0, 0)
}

func (n *binary) Kind() string { return binaryOps[n.op].name }

func (n *binary) AppendInputs(dst []Input) []Input { return append(dst, n.a, n.b) }

func (n *binary) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	info := binaryOps[n.op]
	a := n.operand(ctx, info.constants, n.a, n.constA, "A")
	b := n.operand(ctx, info.constants, n.b, n.constB, "B")
	if !a.IsValid() || !b.IsValid() {
		return matbuild.Code{}
	}
	return info.fn(ctx, a, b)
}

func (n *binary) operand(ctx matbuild.Context, constants bool, in Input, k float32, name string) matbuild.Code {
	switch {
	case in.IsConnected():
		return ctx.Compile(in)
	case constants:
		return ctx.Constant(k)
	}
	return ctx.Errorf("Missing %s input %s", binaryOps[n.op].name, name)
}

type lerp struct {
	a, b, alpha Input
	constAlpha  float32
}

// Lerp creates a node interpolating linearly between a and b by alpha.
// Unconnected a and b are 0 and 1. An unconnected alpha is 0.5.
func (bld *Builder) Lerp(a, b, alpha Input) Input {
	bld.checkInputs("Lerp", a, b, alpha)
	return bld.add(&lerp{a: a, b: b, alpha: alpha, constAlpha: 0.5})
}

func (l *lerp) Kind() string                     { return "Lerp" }
func (l *lerp) AppendInputs(dst []Input) []Input { return append(dst, l.a, l.b, l.alpha) }
func (l *lerp) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	return ctx.Lerp(
		compileOr(ctx, l.a, 0),
		compileOr(ctx, l.b, 1),
		compileOr(ctx, l.alpha, l.constAlpha),
	)
}

// compileOr compiles in, or the scalar k when in is unconnected.
func compileOr(ctx matbuild.Context, in Input, k float32) matbuild.Code {
	if in.IsConnected() {
		return ctx.Compile(in)
	}
	return ctx.Constant(k)
}

type clamp struct {
	x, lo, hi Input
}

// Clamp creates a node clamping x between lo and hi.
// Unconnected bounds are 0 and 1.
func (bld *Builder) Clamp(x, lo, hi Input) Input {
	bld.checkInputs("Clamp", x, lo, hi)
	return bld.add(&clamp{x: x, lo: lo, hi: hi})
}

func (c *clamp) Kind() string                     { return "Clamp" }
func (c *clamp) AppendInputs(dst []Input) []Input { return append(dst, c.x, c.lo, c.hi) }
func (c *clamp) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if !c.x.IsConnected() {
		return ctx.Errorf("Missing Clamp input")
	}
	return ctx.Clamp(ctx.Compile(c.x), compileOr(ctx, c.lo, 0), compileOr(ctx, c.hi, 1))
}

type componentMask struct {
	x    Input
	mask [4]bool
}

// ComponentMask creates a node selecting the enabled RGBA components of x.
func (bld *Builder) ComponentMask(x Input, r, g, b, a bool) Input {
	bld.checkInputs("ComponentMask", x)
	if !r && !g && !b && !a {
		bld.inputErrorf("ComponentMask: no components selected")
	}
	return bld.add(&componentMask{x: x, mask: [4]bool{r, g, b, a}})
}

func (m *componentMask) Kind() string                     { return "ComponentMask" }
func (m *componentMask) AppendInputs(dst []Input) []Input { return append(dst, m.x) }
func (m *componentMask) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if !m.x.IsConnected() {
		return ctx.Errorf("Missing ComponentMask input")
	}
	return ctx.ComponentMask(ctx.Compile(m.x), m.mask[0], m.mask[1], m.mask[2], m.mask[3])
}

// IfInputs are the operands of an If node.
type IfInputs struct {
	A, B Input
	// ConstB is used when B is unconnected.
	ConstB float32
	// Greater, Equal and Less are selected when A is greater than, equal
	// to or less than B. Equal is optional.
	Greater, Equal, Less Input
	// EqualsThreshold is the largest difference of A and B considered equal.
	EqualsThreshold float32
}

type ifNode struct {
	in IfInputs
}

// If creates a node selecting one of its inputs by comparing two values.
func (bld *Builder) If(in IfInputs) Input {
	bld.checkInputs("If", in.A, in.B, in.Greater, in.Equal, in.Less)
	if in.EqualsThreshold < 0 {
		bld.inputErrorf("If: negative equals threshold %g", in.EqualsThreshold)
	}
	return bld.add(&ifNode{in: in})
}

func (n *ifNode) Kind() string { return "If" }
func (n *ifNode) AppendInputs(dst []Input) []Input {
	return append(dst, n.in.A, n.in.B, n.in.Greater, n.in.Equal, n.in.Less)
}

func (n *ifNode) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	in := n.in
	switch {
	case !in.A.IsConnected():
		return ctx.Errorf("Missing If input A")
	case !in.Greater.IsConnected():
		return ctx.Errorf("Missing If input A > B")
	case !in.Less.IsConnected():
		return ctx.Errorf("Missing If input A < B")
	}
	a := ctx.Compile(in.A)
	b := compileOr(ctx, in.B, in.ConstB)
	greater := ctx.Compile(in.Greater)
	less := ctx.Compile(in.Less)
	var equal, threshold matbuild.Code
	if in.Equal.IsConnected() {
		equal = ctx.Compile(in.Equal)
		if !equal.IsValid() {
			return equal
		}
		threshold = ctx.Constant(in.EqualsThreshold)
	}
	return ctx.If(a, b, greater, equal, less, threshold)
}

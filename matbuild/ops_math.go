package matbuild

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmat/mateval"
)

// Constant returns a scalar literal.
func (ctx Context) Constant(x float32) Code {
	return ctx.constant(mateval.Scalar(x), TypeFloat)
}

// Constant2 returns a two component literal.
func (ctx Context) Constant2(v ms2.Vec) Code {
	return ctx.constant(mateval.Vec2(v), TypeFloat2)
}

// Constant3 returns a three component literal.
func (ctx Context) Constant3(v ms3.Vec) Code {
	return ctx.constant(mateval.Vec3(v, 0), TypeFloat3)
}

// Constant4 returns a four component literal with v in RGB and w in A.
func (ctx Context) Constant4(v ms3.Vec, w float32) Code {
	return ctx.constant(mateval.Vec3(v, w), TypeFloat4)
}

func (ctx Context) constant(v mateval.Value, typ ValueType) Code {
	var buf [96]byte
	code := string(AppendFloats(buf[:0], v, typ.NumComponents()))
	return ctx.addUniformExpression(NewConstant(v, typ), typ, hashString(code, 0), code)
}

// ScalarParameter returns a scalar the runtime may override by name.
func (ctx Context) ScalarParameter(name string, def float32) Code {
	return ctx.addUniformExpression(newScalarParameter(name, def), TypeFloat, 0, "")
}

// VectorParameter returns a four component vector the runtime may override by name.
func (ctx Context) VectorParameter(name string, def mateval.Value) Code {
	return ctx.addUniformExpression(newVectorParameter(name, def), TypeFloat4, 0, "")
}

// StaticBool returns a static bool resolved at translation time.
func (ctx Context) StaticBool(v bool) Code {
	if v {
		return ctx.AddInlinedCodeChunk(TypeStaticBool, "true")
	}
	return ctx.AddInlinedCodeChunk(TypeStaticBool, "false")
}

// StaticBoolParameter returns the static bool parameter name resolved from
// the translator options, then the material, then def.
func (ctx Context) StaticBoolParameter(name string, def bool) Code {
	v := def
	if sv, ok := ctx.t.mat.StaticSwitches[name]; ok {
		v = sv
	}
	if sv, ok := ctx.t.opts.StaticSwitches[name]; ok {
		v = sv
	}
	return ctx.StaticBool(v)
}

// StaticBoolValue returns the value of a static bool. ok is false for an
// invalid code or a code of another type, in which case an error is reported
// for the latter.
func (ctx Context) StaticBoolValue(c Code) (v, ok bool) {
	if !c.IsValid() {
		return false, false
	}
	if typ := ctx.Type(c); typ != TypeStaticBool {
		ctx.typeErrorf("Failed to cast %s input to static bool type", typ)
		return false, false
	}
	return ctx.ParameterCode(c) == "true", true
}

// StaticComponentMask masks vector with the components of the static
// component mask parameter name, or with def when the parameter is not set.
func (ctx Context) StaticComponentMask(vector Code, name string, def [4]bool) Code {
	mask := def
	if m, ok := ctx.t.mat.StaticComponentMasks[name]; ok {
		mask = m
	}
	return ctx.ComponentMask(vector, mask[0], mask[1], mask[2], mask[3])
}

// uniformArgs returns the uniforms referenced by codes, or nil if any of
// them is not a uniform.
func (ctx Context) uniformArgs(codes ...Code) []*Uniform {
	us := make([]*Uniform, len(codes))
	for i, c := range codes {
		if us[i] = ctx.uniform(c); us[i] == nil {
			return nil
		}
	}
	return us
}

// addMath adds a folded math uniform. Only constant results need their text
// since other uniforms are read through their slot.
func (ctx Context) addMath(u *Uniform, typ ValueType, format string, operands func() []any) Code {
	if !u.IsConstant() {
		return ctx.addUniformExpression(u, typ, 0, "")
	}
	code := fmt.Sprintf(format, operands()...)
	return ctx.addUniformExpression(u, typ, hashString(code, 0), code)
}

func (ctx Context) arithmetic(op mateval.Op, format string, a, b Code) Code {
	if !a.IsValid() || !b.IsValid() {
		return Code{}
	}
	typ := ctx.arithmeticResultType(ctx.Type(a), ctx.Type(b))
	if us := ctx.uniformArgs(a, b); us != nil {
		return ctx.addMath(newMath(op, typ, us...), typ, format, func() []any {
			return []any{ctx.ParameterCode(a), ctx.ParameterCode(b)}
		})
	}
	h := hashCombine(ctx.parameterHash(a), ctx.parameterHash(b))
	return ctx.addCodeChunkWithHash(h, typ, format, ctx.ParameterCode(a), ctx.ParameterCode(b))
}

// Add returns a + b.
func (ctx Context) Add(a, b Code) Code { return ctx.arithmetic(mateval.OpAdd, "(%s + %s)", a, b) }

// Sub returns a - b.
func (ctx Context) Sub(a, b Code) Code { return ctx.arithmetic(mateval.OpSub, "(%s - %s)", a, b) }

// Mul returns the component-wise product of a and b.
func (ctx Context) Mul(a, b Code) Code { return ctx.arithmetic(mateval.OpMul, "(%s * %s)", a, b) }

// Div returns the component-wise quotient of a and b.
func (ctx Context) Div(a, b Code) Code { return ctx.arithmetic(mateval.OpDiv, "(%s / %s)", a, b) }

// Dot returns the dot product of a and b. A scalar operand is promoted
// and the wider of two vectors is truncated.
func (ctx Context) Dot(a, b Code) Code {
	if !a.IsValid() || !b.IsValid() {
		return Code{}
	}
	ta, tb := ctx.Type(a), ctx.Type(b)
	promoteA := ta == TypeFloat || (tb != TypeFloat && ta.NumComponents() > tb.NumComponents())
	operands := func() []any {
		if promoteA {
			return []any{ctx.dotOperand(a, tb), ctx.ParameterCode(b)}
		}
		return []any{ctx.ParameterCode(a), ctx.dotOperand(b, ta)}
	}
	if us := ctx.uniformArgs(a, b); us != nil {
		if ta == TypeFloat && tb == TypeFloat {
			return ctx.addMath(newMath(mateval.OpMul, TypeFloat, us...), TypeFloat, "(%s * %s)", func() []any {
				return []any{ctx.ParameterCode(a), ctx.ParameterCode(b)}
			})
		}
		operandType := ta
		if promoteA {
			operandType = tb
		}
		u := newMath(mateval.OpDot, TypeFloat, us...)
		u.N = operandType.NumComponents()
		return ctx.addMath(u, TypeFloat, "dot(%s,%s)", operands)
	}
	return ctx.AddCodeChunk(TypeFloat, "dot(%s, %s)", operands()...)
}

// dotOperand returns the code of c as dst, truncating wider vectors.
func (ctx Context) dotOperand(c Code, dst ValueType) string {
	src := ctx.Type(c)
	if dst != TypeFloat && src != TypeFloat && src.NumComponents() > dst.NumComponents() {
		return ctx.ParameterCode(ctx.ValidCast(c, dst))
	}
	return ctx.CoerceParameter(c, dst)
}

// Cross returns the cross product of two three component vectors.
func (ctx Context) Cross(a, b Code) Code {
	if !a.IsValid() || !b.IsValid() {
		return Code{}
	}
	if us := ctx.uniformArgs(a, b); us != nil {
		typ := ctx.arithmeticResultType(ctx.Type(a), ctx.Type(b))
		if typ == TypeFloat2 || typ&TypeFloat == 0 {
			return ctx.typeErrorf("Cross product requires 3-component vector input.")
		}
		return ctx.addMath(newMath(mateval.OpCross, TypeFloat3, us...), TypeFloat3, "cross(%s,%s)", func() []any {
			return []any{ctx.ParameterCode(a), ctx.ParameterCode(b)}
		})
	}
	return ctx.AddCodeChunk(TypeFloat3, "cross(%s,%s)", ctx.CoerceParameter(a, TypeFloat3), ctx.CoerceParameter(b, TypeFloat3))
}

// Power returns base raised to exponent with base clamped to be positive.
func (ctx Context) Power(base, exponent Code) Code {
	if !base.IsValid() || !exponent.IsValid() {
		return Code{}
	}
	return ctx.AddCodeChunk(ctx.Type(base), "PositiveClampedPow(%s,%s)",
		ctx.ParameterCode(base), ctx.CoerceParameter(exponent, TypeFloat))
}

func (ctx Context) unary(op mateval.Op, fn string, x Code) Code {
	if !x.IsValid() {
		return Code{}
	}
	typ := ctx.Type(x)
	if u := ctx.uniform(x); u != nil {
		return ctx.addMath(newMath(op, typ, u), typ, fn+"(%s)", func() []any {
			return []any{ctx.ParameterCode(x)}
		})
	}
	return ctx.AddCodeChunk(typ, fn+"(%s)", ctx.ParameterCode(x))
}

func (ctx Context) Abs(x Code) Code         { return ctx.unary(mateval.OpAbs, "abs", x) }
func (ctx Context) Floor(x Code) Code       { return ctx.unary(mateval.OpFloor, "floor", x) }
func (ctx Context) Ceil(x Code) Code        { return ctx.unary(mateval.OpCeil, "ceil", x) }
func (ctx Context) Frac(x Code) Code        { return ctx.unary(mateval.OpFrac, "frac", x) }
func (ctx Context) Saturate(x Code) Code    { return ctx.unary(mateval.OpSaturate, "saturate", x) }
func (ctx Context) SquareRoot(x Code) Code  { return ctx.unary(mateval.OpSqrt, "sqrt", x) }
func (ctx Context) Logarithm2(x Code) Code  { return ctx.unary(mateval.OpLog2, "log2", x) }
func (ctx Context) Logarithm10(x Code) Code { return ctx.unary(mateval.OpLog10, "log10", x) }
func (ctx Context) Sine(x Code) Code        { return ctx.unary(mateval.OpSin, "sin", x) }
func (ctx Context) Cosine(x Code) Code      { return ctx.unary(mateval.OpCos, "cos", x) }
func (ctx Context) Tangent(x Code) Code     { return ctx.unary(mateval.OpTan, "tan", x) }
func (ctx Context) Arcsine(x Code) Code     { return ctx.unary(mateval.OpAsin, "asin", x) }
func (ctx Context) Arccosine(x Code) Code   { return ctx.unary(mateval.OpAcos, "acos", x) }
func (ctx Context) Arctangent(x Code) Code  { return ctx.unary(mateval.OpAtan, "atan", x) }

// Length returns the euclidean length of x as a scalar.
func (ctx Context) Length(x Code) Code {
	if !x.IsValid() {
		return Code{}
	}
	typ := ctx.Type(x)
	if u := ctx.uniform(x); u != nil {
		m := newMath(mateval.OpLength, TypeFloat, u)
		m.N = typ.NumComponents()
		return ctx.addMath(m, TypeFloat, "length(%s)", func() []any { return []any{ctx.ParameterCode(x)} })
	}
	return ctx.AddCodeChunk(TypeFloat, "length(%s)", ctx.ParameterCode(x))
}

// binaryOfA emits fn(a, b) typed as a with b coerced to the type of a.
func (ctx Context) binaryOfA(op mateval.Op, format string, a, b Code) Code {
	if !a.IsValid() || !b.IsValid() {
		return Code{}
	}
	typ := ctx.Type(a)
	operands := func() []any { return []any{ctx.ParameterCode(a), ctx.CoerceParameter(b, typ)} }
	if us := ctx.uniformArgs(a, b); us != nil {
		return ctx.addMath(newMath(op, typ, us...), typ, format, operands)
	}
	return ctx.AddCodeChunk(typ, format, operands()...)
}

// Fmod returns the floating point remainder of a/b.
func (ctx Context) Fmod(a, b Code) Code { return ctx.binaryOfA(mateval.OpFmod, "fmod(%s,%s)", a, b) }

// Min returns the component-wise minimum of a and b.
func (ctx Context) Min(a, b Code) Code { return ctx.binaryOfA(mateval.OpMin, "min(%s,%s)", a, b) }

// Max returns the component-wise maximum of a and b.
func (ctx Context) Max(a, b Code) Code { return ctx.binaryOfA(mateval.OpMax, "max(%s,%s)", a, b) }

// Arctangent2 returns the arctangent of y/x using the signs of both to
// determine the quadrant.
func (ctx Context) Arctangent2(y, x Code) Code {
	return ctx.binaryOfA(mateval.OpAtan2, "atan2(%s, %s)", y, x)
}

// Clamp returns x clamped between lo and hi.
func (ctx Context) Clamp(x, lo, hi Code) Code {
	if !x.IsValid() || !lo.IsValid() || !hi.IsValid() {
		return Code{}
	}
	typ := ctx.Type(x)
	operands := func() []any {
		return []any{ctx.ParameterCode(x), ctx.CoerceParameter(lo, typ), ctx.CoerceParameter(hi, typ)}
	}
	if us := ctx.uniformArgs(x, lo, hi); us != nil {
		return ctx.addMath(newMath(mateval.OpClamp, typ, us...), typ, "min(max(%s,%s),%s)", operands)
	}
	return ctx.AddCodeChunk(typ, "min(max(%s,%s),%s)", operands()...)
}

// Lerp linearly interpolates between x and y by alpha. Interpolations of
// equal inputs and interpolations by a constant 0 or 1 select an input.
func (ctx Context) Lerp(x, y, alpha Code) Code {
	if !x.IsValid() || !y.IsValid() || !alpha.IsValid() {
		return Code{}
	}
	if x == y {
		return x
	}
	vx, okx := ctx.constantValue(x)
	vy, oky := ctx.constantValue(y)
	if okx && oky && ctx.Type(x) == ctx.Type(y) && vx == vy {
		return x
	}
	typ := ctx.arithmeticResultType(ctx.Type(x), ctx.Type(y))
	alphaType := TypeFloat1
	if ctx.Type(alpha) == typ {
		alphaType = typ
	}
	if va, ok := ctx.constantValue(alpha); ok && alphaType == TypeFloat1 {
		switch va[0] {
		case 0:
			return x
		case 1:
			return y
		}
	}
	return ctx.AddCodeChunk(typ, "lerp(%s,%s,%s)",
		ctx.CoerceParameter(x, typ), ctx.CoerceParameter(y, typ), ctx.CoerceParameter(alpha, alphaType))
}

// If selects between greater, equal and less by comparing a and b. When
// equal is the zero Code the comparison has two outcomes and threshold is unused.
func (ctx Context) If(a, b, greater, equal, less, threshold Code) Code {
	if !a.IsValid() || !b.IsValid() || !greater.IsValid() || !less.IsValid() {
		return Code{}
	}
	if equal.IsValid() {
		if !threshold.IsValid() {
			return Code{}
		}
		typ := ctx.arithmeticResultType(ctx.Type(greater), ctx.arithmeticResultType(ctx.Type(equal), ctx.Type(less)))
		cg, ce, cl := ctx.ForceCast(greater, typ, 0), ctx.ForceCast(equal, typ, 0), ctx.ForceCast(less, typ, 0)
		if !cg.IsValid() || !ce.IsValid() || !cl.IsValid() {
			return Code{}
		}
		return ctx.AddCodeChunk(typ, "((abs(%s - %s) > %s) ? (%s >= %s ? %s : %s) : %s)",
			ctx.ParameterCode(a), ctx.ParameterCode(b), ctx.ParameterCode(threshold),
			ctx.ParameterCode(a), ctx.ParameterCode(b),
			ctx.ParameterCode(cg), ctx.ParameterCode(cl), ctx.ParameterCode(ce))
	}
	typ := ctx.arithmeticResultType(ctx.Type(greater), ctx.Type(less))
	cg, cl := ctx.ForceCast(greater, typ, 0), ctx.ForceCast(less, typ, 0)
	if !cg.IsValid() || !cl.IsValid() {
		return Code{}
	}
	return ctx.AddCodeChunk(typ, "((%s >= %s) ? %s : %s)",
		ctx.ParameterCode(a), ctx.ParameterCode(b), ctx.ParameterCode(cg), ctx.ParameterCode(cl))
}

// ComponentMask selects the enabled components of vector in rgba order.
func (ctx Context) ComponentMask(vector Code, r, g, b, a bool) Code {
	if !vector.IsValid() {
		return Code{}
	}
	typ := ctx.Type(vector)
	width := typ & TypeFloat
	if (a && width < TypeFloat4) || (b && width < TypeFloat3) || (g && width < TypeFloat2) || (r && width < TypeFloat1) {
		return ctx.typeErrorf("Not enough components in (%s: %s) for component mask %d%d%d%d",
			ctx.ParameterCode(vector), typ, b2i(r), b2i(g), b2i(b), b2i(a))
	}
	var mask []byte
	var comps [4]uint8
	for i, on := range [4]bool{r, g, b, a} {
		if !on {
			continue
		}
		c := "rgba"[i]
		idx := uint8(i)
		if typ == TypeFloat {
			// A scalar of unknown width is treated as one component.
			c, idx = 'r', 0
		}
		comps[len(mask)] = idx
		mask = append(mask, c)
	}
	if len(mask) == 0 {
		return ctx.Errorf("Couldn't determine result type of component mask %d%d%d%d", b2i(r), b2i(g), b2i(b), b2i(a))
	}
	resultType := VectorType(len(mask))
	if u := ctx.uniform(vector); u != nil {
		return ctx.addMath(newSwizzle(u, len(mask), comps), resultType, "%s.%s", func() []any {
			return []any{ctx.ParameterCode(vector), string(mask)}
		})
	}
	return ctx.AddInlinedCodeChunk(resultType, "%s.%s", ctx.ParameterCode(vector), string(mask))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AppendVector concatenates the components of a and b.
func (ctx Context) AppendVector(a, b Code) Code {
	if !a.IsValid() || !b.IsValid() {
		return Code{}
	}
	na, nb := ctx.Type(a).NumComponents(), ctx.Type(b).NumComponents()
	n := na + nb
	typ := VectorType(n)
	if na == 0 || nb == 0 || typ == TypeUnknown {
		return ctx.typeErrorf("Cannot append %s and %s.", ctx.Type(a), ctx.Type(b))
	}
	operands := func() []any { return []any{n, ctx.ParameterCode(a), ctx.ParameterCode(b)} }
	if us := ctx.uniformArgs(a, b); us != nil {
		u := newMath(mateval.OpAppend, typ, us...)
		u.N = na
		return ctx.addMath(u, typ, "MaterialFloat%d(%s,%s)", operands)
	}
	return ctx.AddInlinedCodeChunk(typ, "MaterialFloat%d(%s,%s)", operands()...)
}

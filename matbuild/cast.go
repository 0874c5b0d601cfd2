package matbuild

import "strings"

// ForceCastFlags modify the behavior of [Context.ForceCast].
type ForceCastFlags uint8

const (
	// ForceCastExactMatch requires the resulting type to equal the destination
	// type instead of merely being compatible with it.
	ForceCastExactMatch ForceCastFlags = 1 << iota
	// ForceCastReplicateValue widens scalars by replicating them instead of
	// padding with zeros.
	ForceCastReplicateValue
)

var componentMasks = [5]string{"", ".r", ".rg", ".rgb", ".rgba"}

// ValidCast converts c to a type compatible with dst. Narrowing float casts
// mask off trailing components and scalars replicate to wider vectors.
// Any other conversion is an error.
func (ctx Context) ValidCast(c Code, dst ValueType) Code {
	if !c.IsValid() {
		return Code{}
	}
	src := ctx.Type(c)
	u := ctx.uniform(c)
	switch {
	case src&dst != 0:
		return c
	case u != nil && !u.IsConstant():
		if src&TypeTextureVirtual != 0 && dst&TypeTexture2D != 0 {
			return c
		}
		return ctx.ValidCast(ctx.accessUniform(c), dst)
	case src.IsFloat() && dst.IsFloat():
		ns, nd := src.NumComponents(), dst.NumComponents()
		switch {
		case ns > nd:
			return ctx.AddInlinedCodeChunk(dst, "%s%s", ctx.ParameterCode(c), componentMasks[nd])
		case ns < nd:
			if ns != 1 {
				return ctx.typeErrorf("Cannot cast from %s to %s.", src, dst)
			}
			code := ctx.ParameterCode(c)
			return ctx.AddInlinedCodeChunk(dst, "%s(%s)", dst.HLSL(), repeatArg(code, nd))
		}
		return c
	case dst == TypeMaterialAttributes:
		return c
	}
	return ctx.typeErrorf("Cannot cast from %s to %s.", src, dst)
}

// ForceCast converts c to dst, truncating or padding float vectors as needed.
func (ctx Context) ForceCast(c Code, dst ValueType, flags ForceCastFlags) Code {
	if !c.IsValid() {
		return Code{}
	}
	if u := ctx.uniform(c); u != nil && !u.IsConstant() {
		return ctx.ForceCast(ctx.accessUniform(c), dst, flags)
	}
	src := ctx.Type(c)
	if flags&ForceCastExactMatch != 0 && src == dst {
		return c
	} else if flags&ForceCastExactMatch == 0 && src&dst != 0 {
		return c
	}
	switch {
	case src.IsFloat() && dst.IsFloat():
		ns, nd := src.NumComponents(), dst.NumComponents()
		code := ctx.ParameterCode(c)
		if ns > nd {
			return ctx.AddInlinedCodeChunk(dst, "%s%s", code, componentMasks[nd])
		} else if ns < nd {
			replicate := flags&ForceCastReplicateValue != 0 && (src == TypeFloat || src == TypeFloat1)
			var b strings.Builder
			b.WriteString(code)
			for i := ns; i < nd; i++ {
				b.WriteByte(',')
				if replicate {
					b.WriteString(code)
				} else {
					b.WriteByte('0')
				}
			}
			return ctx.AddInlinedCodeChunk(dst, "%s(%s)", dst.HLSL(), b.String())
		}
		return c
	case src&TypeTextureVirtual != 0 && dst&TypeTexture2D != 0:
		return c
	}
	return ctx.typeErrorf("Cannot force a cast between non-numeric types.")
}

// CoerceParameter returns the code of c widened to dst with scalar replication.
// It is used for operands of functions that do not broadcast scalars.
func (ctx Context) CoerceParameter(c Code, dst ValueType) string {
	src := ctx.Type(c)
	if src == dst {
		return ctx.ParameterCode(c)
	}
	if src&dst != 0 && src.IsFloat() {
		code := ctx.ParameterCode(c)
		switch dst {
		case TypeFloat1:
			return "MaterialFloat(" + code + ")"
		case TypeFloat2, TypeFloat3, TypeFloat4:
			return dst.HLSL() + "(" + repeatArg(code, dst.NumComponents()) + ")"
		}
		return code
	}
	ctx.typeErrorf("Coercion failed: %s: %s -> %s", ctx.ParameterCode(c), src, dst)
	return ""
}

// arithmeticResultType returns the type of a binary arithmetic expression.
func (ctx Context) arithmeticResultType(a, b ValueType) ValueType {
	numeric := func(t ValueType) bool { return t.IsFloat() || t == TypeShadingModel }
	switch {
	case !numeric(a) || !numeric(b):
		ctx.typeErrorf("Attempting to perform arithmetic on non-numeric types: %s %s", a, b)
		return TypeUnknown
	case a == b:
		return a
	case a&b != 0:
		if a == TypeFloat {
			return b
		}
		return a
	}
	ctx.typeErrorf("Arithmetic between types %s and %s are undefined", a, b)
	return TypeUnknown
}

func repeatArg(code string, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(code)
	}
	return b.String()
}

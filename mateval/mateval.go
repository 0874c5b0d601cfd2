// Package mateval implements CPU evaluation of material uniform expressions.
// It is used at translation time to fold constant expression trees and at
// runtime to evaluate preshader programs against parameter values.
package mateval

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// Value is a four component value of a uniform expression. Scalar
// values are replicated across all components.
type Value [4]float32

// Scalar returns a Value with all components set to v.
func Scalar(v float32) Value { return Value{v, v, v, v} }

// Vec3 returns a Value from a 3 component vector with W set to w.
func Vec3(v ms3.Vec, w float32) Value { return Value{v.X, v.Y, v.Z, w} }

// Vec2 returns a Value from a 2 component vector with Z and W set to zero.
func Vec2(v ms2.Vec) Value { return Value{v.X, v.Y, 0, 0} }

func (v Value) xyz() ms3.Vec { return ms3.Vec{X: v[0], Y: v[1], Z: v[2]} }
func (v Value) xy() ms2.Vec  { return ms2.Vec{X: v[0], Y: v[1]} }

// EqualN reports whether the first n components of v and w are equal.
func (v Value) EqualN(w Value, n int) bool {
	for i := 0; i < n && i < 4; i++ {
		if v[i] != w[i] {
			return false
		}
	}
	return true
}

// Op is a uniform expression operation.
type Op uint8

const (
	opInvalid Op = iota
	// OpConstant pushes a literal Value onto the stack.
	OpConstant
	// OpParameter pushes a parameter Value onto the stack.
	OpParameter
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFmod
	OpMin
	OpMax
	OpAtan2
	// OpDot is the dot product over the first N components.
	OpDot
	OpCross
	// OpLength is the euclidean norm over the first N components.
	OpLength
	OpClamp
	OpSaturate
	OpAbs
	OpFloor
	OpCeil
	OpFrac
	OpSqrt
	OpLog2
	OpLog10
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	// OpSwizzle reorders components. Operands are the number of output
	// components and the four source component indices.
	OpSwizzle
	// OpAppend concatenates the first N components of A with the components of B.
	OpAppend
	opEnd
)

var opNames = [opEnd]string{
	opInvalid:   "invalid",
	OpConstant:  "const",
	OpParameter: "param",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpFmod:      "fmod",
	OpMin:       "min",
	OpMax:       "max",
	OpAtan2:     "atan2",
	OpDot:       "dot",
	OpCross:     "cross",
	OpLength:    "length",
	OpClamp:     "clamp",
	OpSaturate:  "saturate",
	OpAbs:       "abs",
	OpFloor:     "floor",
	OpCeil:      "ceil",
	OpFrac:      "frac",
	OpSqrt:      "sqrt",
	OpLog2:      "log2",
	OpLog10:     "log10",
	OpSin:       "sin",
	OpCos:       "cos",
	OpTan:       "tan",
	OpAsin:      "asin",
	OpAcos:      "acos",
	OpAtan:      "atan",
	OpSwizzle:   "swizzle",
	OpAppend:    "append",
}

func (op Op) String() string {
	if op >= opEnd {
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
	return opNames[op]
}

// IsValid reports whether op is a known operation.
func (op Op) IsValid() bool { return op > opInvalid && op < opEnd }

// Arity returns the number of stack values consumed by op.
func (op Op) Arity() int {
	switch op {
	case OpConstant, OpParameter:
		return 0
	case OpClamp:
		return 3
	case OpAdd, OpSub, OpMul, OpDiv, OpFmod, OpMin, OpMax, OpAtan2, OpDot, OpCross, OpAppend:
		return 2
	case opInvalid, opEnd:
		return -1
	}
	if op >= opEnd {
		return -1
	}
	return 1
}

// Unary applies a component-wise single argument operation. n is the
// number of meaningful components and is used by [OpLength].
func Unary(op Op, a Value, n int) Value {
	switch op {
	case OpLength:
		return Scalar(length(a, n))
	case OpSaturate:
		return mapv(a, func(x float32) float32 { return ms1.Clamp(x, 0, 1) })
	case OpAbs:
		return mapv(a, math32.Abs)
	case OpFloor:
		return mapv(a, math32.Floor)
	case OpCeil:
		return mapv(a, math32.Ceil)
	case OpFrac:
		return mapv(a, func(x float32) float32 { return x - math32.Floor(x) })
	case OpSqrt:
		return mapv(a, math32.Sqrt)
	case OpLog2:
		return mapv(a, math32.Log2)
	case OpLog10:
		return mapv(a, math32.Log10)
	case OpSin:
		return mapv(a, math32.Sin)
	case OpCos:
		return mapv(a, math32.Cos)
	case OpTan:
		return mapv(a, math32.Tan)
	case OpAsin:
		return mapv(a, math32.Asin)
	case OpAcos:
		return mapv(a, math32.Acos)
	case OpAtan:
		return mapv(a, math32.Atan)
	}
	panic("mateval: not a unary op: " + op.String())
}

// Binary applies a two argument operation. n is the number of meaningful
// components of a and is used by [OpDot] and [OpAppend].
func Binary(op Op, a, b Value, n int) Value {
	switch op {
	case OpAdd:
		return zipv(a, b, func(x, y float32) float32 { return x + y })
	case OpSub:
		return zipv(a, b, func(x, y float32) float32 { return x - y })
	case OpMul:
		return zipv(a, b, func(x, y float32) float32 { return x * y })
	case OpDiv:
		return zipv(a, b, func(x, y float32) float32 { return x / y })
	case OpFmod:
		return zipv(a, b, math32.Mod)
	case OpMin:
		return zipv(a, b, math32.Min)
	case OpMax:
		return zipv(a, b, math32.Max)
	case OpAtan2:
		return zipv(a, b, math32.Atan2)
	case OpDot:
		return Scalar(dot(a, b, n))
	case OpCross:
		return Vec3(ms3.Cross(a.xyz(), b.xyz()), 0)
	case OpAppend:
		var v Value
		copy(v[:], a[:n])
		copy(v[n:], b[:])
		return v
	}
	panic("mateval: not a binary op: " + op.String())
}

// Clamp clamps each component of a between the components of lo and hi.
func Clamp(a, lo, hi Value) Value {
	var v Value
	for i := range v {
		v[i] = ms1.Clamp(a[i], lo[i], hi[i])
	}
	return v
}

// Swizzle returns a Value with the first n components taken from a at
// the indices given by comps. Remaining components are zero, except for
// single component results which are replicated like a [Scalar].
func Swizzle(a Value, n int, comps [4]uint8) Value {
	if n == 1 {
		return Scalar(a[comps[0]&3])
	}
	var v Value
	for i := 0; i < n && i < 4; i++ {
		v[i] = a[comps[i]&3]
	}
	return v
}

func dot(a, b Value, n int) float32 {
	switch n {
	case 1:
		return a[0] * b[0]
	case 2:
		return ms2.Dot(a.xy(), b.xy())
	case 3:
		return ms3.Dot(a.xyz(), b.xyz())
	}
	return ms3.Dot(a.xyz(), b.xyz()) + a[3]*b[3]
}

func length(a Value, n int) float32 {
	switch n {
	case 1:
		return math32.Abs(a[0])
	case 2:
		return ms2.Norm(a.xy())
	case 3:
		return ms3.Norm(a.xyz())
	}
	return math32.Sqrt(dot(a, a, 4))
}

func mapv(a Value, f func(float32) float32) Value {
	return Value{f(a[0]), f(a[1]), f(a[2]), f(a[3])}
}

func zipv(a, b Value, f func(x, y float32) float32) Value {
	return Value{f(a[0], b[0]), f(a[1], b[1]), f(a[2], b[2]), f(a[3], b[3])}
}

package mateval_test

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/gmat/mateval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVMArithmetic(t *testing.T) {
	var vm mateval.VM
	params := []mateval.Value{mateval.Scalar(3), {1, 2, 3, 4}}
	var p mateval.Program
	p = mateval.AppendParameter(p, 0)
	p = mateval.AppendConstant(p, mateval.Scalar(2))
	p = mateval.AppendOp(p, mateval.OpMul, 1)
	p = mateval.AppendParameter(p, 1)
	p = mateval.AppendOp(p, mateval.OpAdd, 4)
	got, err := vm.Evaluate(p, params)
	require.NoError(t, err)
	assert.Equal(t, mateval.Value{7, 8, 9, 10}, got)
}

func TestVMDotLengthCross(t *testing.T) {
	var vm mateval.VM
	a := mateval.Value{1, 2, 3, 100}
	b := mateval.Value{4, 5, 6, 100}
	params := []mateval.Value{a, b}

	var p mateval.Program
	p = mateval.AppendParameter(p, 0)
	p = mateval.AppendParameter(p, 1)
	p = mateval.AppendOp(p, mateval.OpDot, 3)
	got, err := vm.Evaluate(p, params)
	require.NoError(t, err)
	assert.Equal(t, float32(32), got[0])

	p = p[:0]
	p = mateval.AppendParameter(p, 0)
	p = mateval.AppendParameter(p, 1)
	p = mateval.AppendOp(p, mateval.OpCross, 3)
	got, err = vm.Evaluate(p, params)
	require.NoError(t, err)
	assert.Equal(t, mateval.Value{-3, 6, -3, 0}, got)

	p = p[:0]
	p = mateval.AppendConstant(p, mateval.Value{3, 4, 0, 0})
	p = mateval.AppendOp(p, mateval.OpLength, 2)
	got, err = vm.Evaluate(p, nil)
	require.NoError(t, err)
	assert.InDelta(t, 5, got[0], 1e-6)
}

func TestVMSwizzleAppendClamp(t *testing.T) {
	var vm mateval.VM
	var p mateval.Program
	p = mateval.AppendConstant(p, mateval.Value{1, 2, 3, 4})
	p = mateval.AppendSwizzle(p, 2, [4]uint8{3, 0})
	p = mateval.AppendConstant(p, mateval.Scalar(9))
	p = mateval.AppendOp(p, mateval.OpAppend, 2)
	p = mateval.AppendConstant(p, mateval.Scalar(0))
	p = mateval.AppendConstant(p, mateval.Scalar(5))
	p = mateval.AppendOp(p, mateval.OpClamp, 4)
	got, err := vm.Evaluate(p, nil)
	require.NoError(t, err)
	assert.Equal(t, mateval.Value{4, 1, 5, 5}, got)
}

func TestVMErrors(t *testing.T) {
	var vm mateval.VM
	_, err := vm.Evaluate(mateval.AppendOp(nil, mateval.OpAdd, 4), nil)
	assert.Error(t, err, "expected stack underflow")

	_, err = vm.Evaluate(mateval.AppendParameter(nil, 2), []mateval.Value{{}})
	assert.Error(t, err, "expected parameter out of range")

	_, err = vm.Evaluate(mateval.Program{0xff}, nil)
	assert.Error(t, err, "expected invalid op")

	_, err = vm.Evaluate(nil, nil)
	assert.Error(t, err, "expected empty result")

	p := mateval.AppendConstant(nil, mateval.Scalar(1))
	_, err = vm.Evaluate(p[:5], nil)
	assert.Error(t, err, "expected truncated instruction")
}

func TestUnaryKernels(t *testing.T) {
	v := mateval.Value{-1.5, 0.25, 2.75, 4}
	assert.Equal(t, mateval.Value{1.5, 0.25, 2.75, 4}, mateval.Unary(mateval.OpAbs, v, 4))
	assert.Equal(t, mateval.Value{-2, 0, 2, 4}, mateval.Unary(mateval.OpFloor, v, 4))
	assert.Equal(t, mateval.Value{0, 0.25, 1, 1}, mateval.Unary(mateval.OpSaturate, v, 4))
	frac := mateval.Unary(mateval.OpFrac, v, 4)
	assert.InDelta(t, 0.5, frac[0], 1e-6)
	assert.InDelta(t, 0.75, frac[2], 1e-6)
	sq := mateval.Unary(mateval.OpSqrt, mateval.Scalar(16), 1)
	assert.Equal(t, mateval.Scalar(4), sq)
	sin := mateval.Unary(mateval.OpSin, mateval.Scalar(math32.Pi/2), 1)
	assert.InDelta(t, 1, sin[0], 1e-6)
}

func TestProgramString(t *testing.T) {
	var p mateval.Program
	p = mateval.AppendParameter(p, 3)
	p = mateval.AppendConstant(p, mateval.Scalar(0.5))
	p = mateval.AppendOp(p, mateval.OpMul, 1)
	p = mateval.AppendSwizzle(p, 3, [4]uint8{0, 0, 1})
	const want = "param 3\nconst 0.5 0.5 0.5 0.5\nmul\nswizzle xxy\n"
	assert.Equal(t, want, p.String())
}

func TestValueEqualN(t *testing.T) {
	a := mateval.Value{1, 2, 3, 4}
	b := mateval.Value{1, 2, 3, 5}
	assert.True(t, a.EqualN(b, 3))
	assert.False(t, a.EqualN(b, 4))
}

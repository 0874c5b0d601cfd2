package mateval

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
)

// Program is a preshader program: stack bytecode that computes the value of
// one uniform expression from parameter values. Programs are built with the
// Append* functions, which follow the append idiom of the standard library.
type Program []byte

var (
	errStackUnderflow = errors.New("stack underflow")
	errEmptyResult    = errors.New("program leaves no result on stack")
	errTruncated      = errors.New("truncated instruction")
)

// AppendConstant appends an instruction that pushes v.
func AppendConstant(p Program, v Value) Program {
	p = append(p, byte(OpConstant))
	for _, f := range v {
		p = binary.LittleEndian.AppendUint32(p, math32.Float32bits(f))
	}
	return p
}

// AppendParameter appends an instruction that pushes the parameter at index.
func AppendParameter(p Program, index int) Program {
	if index < 0 || index > 0xffff {
		panic("mateval: parameter index out of range")
	}
	p = append(p, byte(OpParameter))
	return binary.LittleEndian.AppendUint16(p, uint16(index))
}

// AppendOp appends an operation. n is the number of meaningful components of
// the first operand and is encoded for [OpDot], [OpLength] and [OpAppend].
func AppendOp(p Program, op Op, n int) Program {
	switch op {
	case OpConstant, OpParameter, OpSwizzle:
		panic("mateval: use dedicated Append function for " + op.String())
	}
	if !op.IsValid() {
		panic("mateval: invalid op")
	}
	p = append(p, byte(op))
	if hasCount(op) {
		p = append(p, byte(n))
	}
	return p
}

// AppendSwizzle appends a swizzle of n components read from comps.
func AppendSwizzle(p Program, n int, comps [4]uint8) Program {
	return append(p, byte(OpSwizzle), byte(n), comps[0], comps[1], comps[2], comps[3])
}

func hasCount(op Op) bool {
	return op == OpDot || op == OpLength || op == OpAppend
}

// operandSize returns the number of operand bytes following op.
func operandSize(op Op) int {
	switch {
	case op == OpConstant:
		return 16
	case op == OpParameter:
		return 2
	case op == OpSwizzle:
		return 5
	case hasCount(op):
		return 1
	}
	return 0
}

// AppendString appends a human readable listing of the program to b, one
// instruction per line.
func (p Program) AppendString(b []byte) []byte {
	for i := 0; i < len(p); {
		op := Op(p[i])
		sz := operandSize(op)
		if i+1+sz > len(p) {
			return append(b, "<truncated>\n"...)
		}
		args := p[i+1 : i+1+sz]
		b = append(b, op.String()...)
		switch {
		case op == OpConstant:
			for k := 0; k < 4; k++ {
				b = append(b, ' ')
				b = strconv.AppendFloat(b, float64(math32.Float32frombits(binary.LittleEndian.Uint32(args[4*k:]))), 'g', -1, 32)
			}
		case op == OpParameter:
			b = append(b, ' ')
			b = strconv.AppendUint(b, uint64(binary.LittleEndian.Uint16(args)), 10)
		case op == OpSwizzle:
			b = append(b, ' ')
			for k := 0; k < int(args[0]) && k < 4; k++ {
				b = append(b, "xyzw"[args[1+k]&3])
			}
		case sz == 1:
			b = append(b, ' ')
			b = strconv.AppendUint(b, uint64(args[0]), 10)
		}
		b = append(b, '\n')
		i += 1 + sz
	}
	return b
}

func (p Program) String() string { return string(p.AppendString(nil)) }

// VM evaluates preshader programs. The zero value is ready to use.
// A VM is not safe for concurrent use; its stack is reused between calls.
type VM struct {
	stack []Value
}

// Evaluate runs the program with the given parameter values and returns the
// value left on top of the stack.
func (vm *VM) Evaluate(p Program, params []Value) (Value, error) {
	vm.stack = vm.stack[:0]
	for i := 0; i < len(p); {
		op := Op(p[i])
		if !op.IsValid() {
			return Value{}, fmt.Errorf("invalid op %d at %d", p[i], i)
		}
		sz := operandSize(op)
		if i+1+sz > len(p) {
			return Value{}, fmt.Errorf("%s at %d: %w", op, i, errTruncated)
		}
		args := p[i+1 : i+1+sz]
		if len(vm.stack) < op.Arity() {
			return Value{}, fmt.Errorf("%s at %d: %w", op, i, errStackUnderflow)
		}
		switch op {
		case OpConstant:
			var v Value
			for k := range v {
				v[k] = math32.Float32frombits(binary.LittleEndian.Uint32(args[4*k:]))
			}
			vm.push(v)
		case OpParameter:
			idx := int(binary.LittleEndian.Uint16(args))
			if idx >= len(params) {
				return Value{}, fmt.Errorf("parameter %d out of range [0,%d)", idx, len(params))
			}
			vm.push(params[idx])
		case OpSwizzle:
			a := vm.pop()
			vm.push(Swizzle(a, int(args[0]), [4]uint8{args[1], args[2], args[3], args[4]}))
		case OpClamp:
			hi, lo, a := vm.pop(), vm.pop(), vm.pop()
			vm.push(Clamp(a, lo, hi))
		default:
			n := 4
			if sz == 1 {
				n = int(args[0])
			}
			if op.Arity() == 2 {
				b, a := vm.pop(), vm.pop()
				vm.push(Binary(op, a, b, n))
			} else {
				vm.push(Unary(op, vm.pop(), n))
			}
		}
		i += 1 + sz
	}
	if len(vm.stack) == 0 {
		return Value{}, errEmptyResult
	}
	return vm.stack[len(vm.stack)-1], nil
}

func (vm *VM) push(v Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

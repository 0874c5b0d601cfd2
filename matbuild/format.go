package matbuild

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/gmat/mateval"
)

const decimalDigits = 8

// AppendFloat appends the decimal representation of v to b with trailing
// zeros trimmed. neg and decimal replace the minus sign and decimal point
// characters respectively. Non-finite values are written as an HLSL asfloat
// bit cast since the language has no literal for them.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	if math32.IsInf(v, 0) || math32.IsNaN(v) {
		b = append(b, "asfloat(0x"...)
		b = strconv.AppendUint(b, uint64(math32.Float32bits(v)), 16)
		return append(b, ')')
	}
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// AppendFloats appends the HLSL literal of the first n components of v to b.
// Vectors are written as a MaterialFloatN constructor.
func AppendFloats(b []byte, v mateval.Value, n int) []byte {
	if n > 1 {
		b = append(b, "MaterialFloat"...)
		b = strconv.AppendInt(b, int64(n), 10)
		b = append(b, '(')
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = AppendFloat(b, '-', '.', v[i])
	}
	if n > 1 {
		b = append(b, ')')
	}
	return b
}

// AppendDefineDecl appends "#define name value" to b.
func AppendDefineDecl(b []byte, name, value string) []byte {
	b = append(b, "#define "...)
	b = append(b, name...)
	if value != "" {
		b = append(b, ' ')
		b = append(b, value...)
	}
	return append(b, '\n')
}

// AppendDefineInt appends a define of an integer value to b with sep
// between the name and the value.
func AppendDefineInt(b []byte, name string, sep byte, v int) []byte {
	b = append(b, "#define "...)
	b = append(b, name...)
	b = append(b, sep)
	b = strconv.AppendInt(b, int64(v), 10)
	return append(b, '\n')
}

// hash mixes the bytes of b into in using the splitmix64 finalizer over
// 8 byte words.
func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}

func hashString(s string, in uint64) uint64 {
	return hash([]byte(s), in)
}

// hashCombine folds a list of hashes into one.
func hashCombine(hashes ...uint64) uint64 {
	var buf [8]byte
	var x uint64
	for _, h := range hashes {
		binary.LittleEndian.PutUint64(buf[:], h)
		x = hash(buf[:], x)
	}
	return x
}

package matbuild

import (
	"fmt"
	"strconv"

	"github.com/soypat/gmat/mateval"
)

// Code is a handle to a code chunk in the scope it was compiled in.
// The zero Code holds no chunk and is the result of a failed compile or
// an unconnected input.
type Code struct {
	idx int32 // chunk index plus one.
}

func codeAt(i int) Code { return Code{idx: int32(i) + 1} }

// IsValid reports whether c refers to a chunk.
func (c Code) IsValid() bool { return c.idx > 0 }

// Index returns the chunk index of c within its scope, or -1 for the zero Code.
func (c Code) Index() int { return int(c.idx) - 1 }

type chunk struct {
	hash uint64
	// code is the formatted text the chunk was requested with.
	code       string
	definition string
	symbol     string
	uniform    *Uniform
	typ        ValueType
	inline     bool
}

type chunkScope struct {
	chunks []chunk
}

func (t *Translator) newScope() int {
	t.scopes = append(t.scopes, &chunkScope{})
	return len(t.scopes) - 1
}

func (ctx Context) chunks() *chunkScope { return ctx.t.scopes[ctx.scope] }

func (ctx Context) chunk(c Code) *chunk {
	sc := ctx.chunks()
	i := c.Index()
	if i < 0 || i >= len(sc.chunks) {
		panic("matbuild: code chunk index out of range: " + strconv.Itoa(i))
	}
	return &sc.chunks[i]
}

func (t *Translator) newSymbol(hint string) string {
	s := hint + strconv.Itoa(t.nextSymbol)
	t.nextSymbol++
	return s
}

// addChunk appends a chunk to the current scope. Non-inline float chunks
// with the same hash and text as an existing chunk of the scope reuse it.
func (ctx Context) addChunk(h uint64, code string, typ ValueType, inline bool) Code {
	t := ctx.t
	if t.finalized {
		panic("matbuild: code chunk added after finalization")
	}
	if typ == TypeUnknown {
		return Code{}
	}
	sc := ctx.chunks()
	if inline {
		sc.chunks = append(sc.chunks, chunk{hash: h, code: code, definition: code, typ: typ, inline: true})
		return codeAt(len(sc.chunks) - 1)
	}
	if typ&(TypeFloat|TypeVTPageTableResult) != 0 || typ == TypeShadingModel {
		for i := range sc.chunks {
			if sc.chunks[i].hash == h && sc.chunks[i].code == code {
				return codeAt(i)
			}
		}
		symbol := t.newSymbol("Local")
		sc.chunks = append(sc.chunks, chunk{
			hash:       h,
			code:       code,
			definition: "\t" + typ.HLSL() + " " + symbol + " = " + code + ";\n",
			symbol:     symbol,
			typ:        typ,
		})
		return codeAt(len(sc.chunks) - 1)
	}
	switch {
	case typ == TypeMaterialAttributes:
		return ctx.typeErrorf("Operation not supported on Material Attributes")
	case typ&TypeTexture != 0:
		return ctx.typeErrorf("Operation not supported on a Texture")
	case typ == TypeStaticBool:
		return ctx.typeErrorf("Operation not supported on a Static Bool")
	}
	return ctx.typeErrorf("Operation not supported on type %s", typ)
}

// AddCodeChunk formats code and adds it as a named temporary of type typ.
func (ctx Context) AddCodeChunk(typ ValueType, format string, args ...any) Code {
	code := fmt.Sprintf(format, args...)
	return ctx.addChunk(hashString(code, 0), code, typ, false)
}

// AddInlinedCodeChunk formats code and adds it as an inline chunk substituted
// at every use site.
func (ctx Context) AddInlinedCodeChunk(typ ValueType, format string, args ...any) Code {
	code := fmt.Sprintf(format, args...)
	return ctx.addChunk(hashString(code, 0), code, typ, true)
}

func (ctx Context) addCodeChunkWithHash(base uint64, typ ValueType, format string, args ...any) Code {
	return ctx.addChunk(hashString(format, base), fmt.Sprintf(format, args...), typ, false)
}

func (ctx Context) addInlinedCodeChunkWithHash(base uint64, typ ValueType, format string, args ...any) Code {
	return ctx.addChunk(hashString(format, base), fmt.Sprintf(format, args...), typ, true)
}

// Type returns the value type of c, or TypeUnknown for the zero Code.
func (ctx Context) Type(c Code) ValueType {
	if !c.IsValid() {
		return TypeUnknown
	}
	return ctx.chunk(c).typ
}

// ParameterCode returns the text that reads the value of c at a use site.
func (ctx Context) ParameterCode(c Code) string {
	if !c.IsValid() {
		return ""
	}
	ch := ctx.chunk(c)
	switch {
	case ch.uniform != nil && ch.uniform.IsConstant(), ch.inline:
		return ch.definition
	case ch.uniform != nil:
		access := ctx.accessUniform(c)
		ac := ctx.chunk(access)
		if ac.inline {
			return ac.definition
		}
		return ac.symbol
	}
	return ch.symbol
}

// parameterHash returns the content hash of the value c refers to.
func (ctx Context) parameterHash(c Code) uint64 {
	if !c.IsValid() {
		return 0
	}
	ch := ctx.chunk(c)
	if ch.uniform != nil && !ch.uniform.IsConstant() {
		return ctx.chunk(ctx.accessUniform(c)).hash
	}
	return ch.hash
}

// uniform returns the uniform expression c refers to, or nil.
func (ctx Context) uniform(c Code) *Uniform {
	if !c.IsValid() {
		return nil
	}
	return ctx.chunk(c).uniform
}

// constantValue returns the folded value of c when it refers to a constant uniform.
func (ctx Context) constantValue(c Code) (v mateval.Value, ok bool) {
	u := ctx.uniform(c)
	if u == nil || !u.IsConstant() {
		return v, false
	}
	return u.Evaluate(nil), true
}

// definitions returns the concatenated definitions of the non-inline,
// non-uniform chunks in [start,end).
func definitions(chunks []chunk, start, end int) string {
	var b []byte
	for i := start; i < end && i < len(chunks); i++ {
		ch := &chunks[i]
		if ch.uniform == nil && !ch.inline {
			b = append(b, ch.definition...)
		}
	}
	return string(b)
}

// fixedParameterCode returns the definitions needed by result within [start,end)
// and the text of its value.
func fixedParameterCode(chunks []chunk, start, end int, result Code) (defs, value string) {
	if !result.IsValid() {
		return "", "0"
	}
	i := result.Index()
	if i >= len(chunks) {
		panic("matbuild: result code out of range")
	}
	ch := &chunks[i]
	if ch.uniform != nil && ch.uniform.IsConstant() {
		return "", ch.definition
	}
	if ch.uniform != nil {
		panic("matbuild: non-constant uniform result must be accessed before fixing")
	}
	defs = definitions(chunks, start, end)
	if ch.inline {
		return defs, ch.definition
	}
	return defs, ch.symbol
}

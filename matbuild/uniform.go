package matbuild

import (
	"fmt"

	"github.com/soypat/gmat/mateval"
)

// UniformKind is the kind of a uniform expression.
type UniformKind uint8

const (
	UniformConstant UniformKind = iota
	UniformScalarParameter
	UniformVectorParameter
	// UniformTexture references a texture asset of the material by index.
	UniformTexture
	// UniformTextureParameter references a texture that may be overridden by name.
	UniformTextureParameter
	UniformExternalTexture
	// UniformMath applies a [mateval.Op] to its arguments.
	UniformMath
)

// Uniform is a value computed outside of the generated code body. Uniforms
// built only from constants are folded into literals; all others occupy one
// slot of the [UniformSet].
type Uniform struct {
	Kind UniformKind
	// Op is the operation of a UniformMath expression.
	Op mateval.Op
	// Value is the value of a constant or the default value of a parameter.
	Value mateval.Value
	// Type is the value type of constants and the operand type of math
	// expressions whose result depends on component count.
	Type ValueType
	// Name is the parameter name of parameter kinds.
	Name string
	Args []*Uniform
	// N is the component count operand of dot, length and append, or the
	// number of swizzled components.
	N       int
	Swizzle [4]uint8
	// Texture fields.
	TextureIndex int
	SamplerType  SamplerType
	// Runtime virtual texture layout. Negative when not preallocated.
	LayerIndex          int
	PageTableLayerIndex int
}

// NewConstant returns a constant uniform of the given type.
func NewConstant(v mateval.Value, typ ValueType) *Uniform {
	return &Uniform{Kind: UniformConstant, Value: v, Type: typ}
}

func newScalarParameter(name string, def float32) *Uniform {
	return &Uniform{Kind: UniformScalarParameter, Name: name, Value: mateval.Scalar(def), Type: TypeFloat}
}

func newVectorParameter(name string, def mateval.Value) *Uniform {
	return &Uniform{Kind: UniformVectorParameter, Name: name, Value: def, Type: TypeFloat4}
}

func newMath(op mateval.Op, typ ValueType, args ...*Uniform) *Uniform {
	n := typ.NumComponents()
	if n == 0 {
		n = 4
	}
	return &Uniform{Kind: UniformMath, Op: op, Type: typ, N: n, Args: args}
}

func newSwizzle(a *Uniform, n int, comps [4]uint8) *Uniform {
	return &Uniform{Kind: UniformMath, Op: mateval.OpSwizzle, Type: VectorType(n), N: n, Swizzle: comps, Args: []*Uniform{a}}
}

func newTexture(kind UniformKind, name string, index int, st SamplerType) *Uniform {
	return &Uniform{Kind: kind, Name: name, TextureIndex: index, SamplerType: st, LayerIndex: -1, PageTableLayerIndex: -1}
}

// IsTexture reports whether u references a texture.
func (u *Uniform) IsTexture() bool {
	return u.Kind == UniformTexture || u.Kind == UniformTextureParameter || u.Kind == UniformExternalTexture
}

// IsConstant reports whether u can be folded at translation time.
func (u *Uniform) IsConstant() bool {
	switch u.Kind {
	case UniformConstant:
		return true
	case UniformMath:
		for _, a := range u.Args {
			if !a.IsConstant() {
				return false
			}
		}
		return true
	}
	return false
}

// IsIdentical reports whether u and v compute the same value. The comparison
// is structural and recurses into arguments.
func (u *Uniform) IsIdentical(v *Uniform) bool {
	if u == v {
		return true
	}
	if u == nil || v == nil || u.Kind != v.Kind || u.Op != v.Op || u.Value != v.Value ||
		u.Type != v.Type || u.Name != v.Name || u.N != v.N || u.Swizzle != v.Swizzle ||
		u.TextureIndex != v.TextureIndex || u.SamplerType != v.SamplerType ||
		u.LayerIndex != v.LayerIndex || u.PageTableLayerIndex != v.PageTableLayerIndex ||
		len(u.Args) != len(v.Args) {
		return false
	}
	for i := range u.Args {
		if !u.Args[i].IsIdentical(v.Args[i]) {
			return false
		}
	}
	return true
}

// ParameterValues maps parameter names to overriding values.
type ParameterValues map[string]mateval.Value

// Evaluate computes the value of u on the host. Parameters not present in
// params evaluate to their default value. Textures evaluate to zero.
func (u *Uniform) Evaluate(params ParameterValues) mateval.Value {
	switch u.Kind {
	case UniformConstant:
		return u.Value
	case UniformScalarParameter, UniformVectorParameter:
		if v, ok := params[u.Name]; ok {
			return v
		}
		return u.Value
	case UniformMath:
		switch u.Op {
		case mateval.OpSwizzle:
			return mateval.Swizzle(u.Args[0].Evaluate(params), u.N, u.Swizzle)
		case mateval.OpClamp:
			return mateval.Clamp(u.Args[0].Evaluate(params), u.Args[1].Evaluate(params), u.Args[2].Evaluate(params))
		}
		if u.Op.Arity() == 2 {
			return mateval.Binary(u.Op, u.Args[0].Evaluate(params), u.Args[1].Evaluate(params), u.N)
		}
		return mateval.Unary(u.Op, u.Args[0].Evaluate(params), u.N)
	}
	return mateval.Value{}
}

// appendProgram appends the preshader bytecode of u to p, registering the
// parameters it reads in set.
func (u *Uniform) appendProgram(p mateval.Program, set *UniformSet) mateval.Program {
	switch u.Kind {
	case UniformConstant:
		return mateval.AppendConstant(p, u.Value)
	case UniformScalarParameter, UniformVectorParameter:
		return mateval.AppendParameter(p, set.parameterIndex(u))
	case UniformMath:
		for _, a := range u.Args {
			p = a.appendProgram(p, set)
		}
		if u.Op == mateval.OpSwizzle {
			return mateval.AppendSwizzle(p, u.N, u.Swizzle)
		}
		return mateval.AppendOp(p, u.Op, u.N)
	}
	panic("matbuild: texture uniform has no preshader")
}

func (u *Uniform) String() string {
	switch u.Kind {
	case UniformConstant:
		return fmt.Sprintf("const%v", u.Value)
	case UniformScalarParameter, UniformVectorParameter:
		return "param(" + u.Name + ")"
	case UniformMath:
		s := u.Op.String() + "("
		for i, a := range u.Args {
			if i > 0 {
				s += ","
			}
			s += a.String()
		}
		return s + ")"
	}
	return fmt.Sprintf("texture(%d,%q)", u.TextureIndex, u.Name)
}

// ParameterInfo describes a parameter read by the preshaders of a UniformSet.
type ParameterInfo struct {
	Name    string
	Vector  bool
	Default mateval.Value
}

// UniformSet is the table of uniform expressions referenced by the generated code.
// The index of an entry in its list is the slot the generated code reads.
type UniformSet struct {
	Scalars          []*Uniform
	Vectors          []*Uniform
	Textures2D       []*Uniform
	TexturesCube     []*Uniform
	Textures2DArray  []*Uniform
	TexturesVolume   []*Uniform
	TexturesExternal []*Uniform
	TexturesVirtual  []*Uniform
	VTStacks         []VTStack
	// Parameters lists the parameters read by the preshader programs.
	// Programs reference them by index.
	Parameters     []ParameterInfo
	ScalarPrograms []mateval.Program
	VectorPrograms []mateval.Program
}

func addUnique(list *[]*Uniform, u *Uniform) int {
	for i, have := range *list {
		if have == u {
			return i
		}
	}
	*list = append(*list, u)
	return len(*list) - 1
}

func (set *UniformSet) parameterIndex(u *Uniform) int {
	vector := u.Kind == UniformVectorParameter
	for i, p := range set.Parameters {
		if p.Name == u.Name && p.Vector == vector {
			return i
		}
	}
	set.Parameters = append(set.Parameters, ParameterInfo{Name: u.Name, Vector: vector, Default: u.Value})
	return len(set.Parameters) - 1
}

// buildPrograms generates the preshader programs of every scalar and vector entry.
func (set *UniformSet) buildPrograms() {
	set.ScalarPrograms = set.ScalarPrograms[:0]
	set.VectorPrograms = set.VectorPrograms[:0]
	for _, u := range set.Scalars {
		set.ScalarPrograms = append(set.ScalarPrograms, u.appendProgram(nil, set))
	}
	for _, u := range set.Vectors {
		set.VectorPrograms = append(set.VectorPrograms, u.appendProgram(nil, set))
	}
}

// DefaultParameters returns the default value of every parameter in Parameters order.
func (set *UniformSet) DefaultParameters() []mateval.Value {
	vals := make([]mateval.Value, len(set.Parameters))
	for i, p := range set.Parameters {
		vals[i] = p.Default
	}
	return vals
}

// ParameterValues returns parameter values in Parameters order with the
// defaults replaced by the values in overrides.
func (set *UniformSet) ParameterValues(overrides ParameterValues) []mateval.Value {
	vals := set.DefaultParameters()
	for i, p := range set.Parameters {
		if v, ok := overrides[p.Name]; ok {
			vals[i] = v
		}
	}
	return vals
}

// Evaluate runs the preshader programs. Scalars are packed four per vector
// the way the generated code reads them.
func (set *UniformSet) Evaluate(vm *mateval.VM, params []mateval.Value) (scalars []float32, vectors []mateval.Value, err error) {
	if len(params) != len(set.Parameters) {
		return nil, nil, fmt.Errorf("got %d parameter values, want %d", len(params), len(set.Parameters))
	}
	scalars = make([]float32, (len(set.ScalarPrograms)+3)/4*4)
	for i, p := range set.ScalarPrograms {
		v, err := vm.Evaluate(p, params)
		if err != nil {
			return nil, nil, fmt.Errorf("scalar expression %d: %w", i, err)
		}
		scalars[i] = v[0]
	}
	vectors = make([]mateval.Value, len(set.VectorPrograms))
	for i, p := range set.VectorPrograms {
		vectors[i], err = vm.Evaluate(p, params)
		if err != nil {
			return nil, nil, fmt.Errorf("vector expression %d: %w", i, err)
		}
	}
	return scalars, vectors, nil
}

// addUniformExpression adds a chunk referring to u. A structurally identical
// uniform already in the table is reused, as is a chunk of the current scope
// that refers to it.
func (ctx Context) addUniformExpression(u *Uniform, typ ValueType, h uint64, code string) Code {
	t := ctx.t
	if typ == TypeUnknown {
		return Code{}
	}
	switch {
	case typ&TypeTexture != 0 && !u.IsTexture():
		return ctx.typeErrorf("Operation not supported on a Texture")
	case typ == TypeTextureExternal && u.Kind != UniformExternalTexture:
		return ctx.typeErrorf("Operation not supported on an external texture")
	case typ == TypeStaticBool:
		return ctx.typeErrorf("Operation not supported on a Static Bool")
	case typ == TypeMaterialAttributes:
		return ctx.typeErrorf("Operation not supported on a MaterialAttributes")
	}
	found := false
	for _, have := range t.uniforms {
		if have.IsIdentical(u) {
			found = true
			sc := ctx.chunks()
			for i := range sc.chunks {
				if sc.chunks[i].uniform != nil && sc.chunks[i].uniform.IsIdentical(u) && sc.chunks[i].typ == typ {
					return codeAt(i)
				}
			}
			u = have
			break
		}
	}
	sc := ctx.chunks()
	sc.chunks = append(sc.chunks, chunk{hash: h, code: code, definition: code, uniform: u, typ: typ})
	if !found {
		t.uniforms = append(t.uniforms, u)
	}
	return codeAt(len(sc.chunks) - 1)
}

func (ctx Context) addUniformExpressionWithHash(u *Uniform, typ ValueType, base uint64, format string, args ...any) Code {
	return ctx.addUniformExpression(u, typ, hashString(format, base), fmt.Sprintf(format, args...))
}

// accessUniform registers the uniform of c in its slot table and returns an
// inline chunk reading the slot.
func (ctx Context) accessUniform(c Code) Code {
	ch := ctx.chunk(c)
	u, typ := ch.uniform, ch.typ
	if u == nil || u.IsConstant() {
		panic("matbuild: access of non-uniform or constant chunk")
	}
	set := &ctx.t.set
	switch typ {
	case TypeFloat, TypeFloat1:
		i := addUnique(&set.Scalars, u)
		return ctx.AddInlinedCodeChunk(typ, "Material.ScalarExpressions[%d].%c", i/4, "xyzw"[i%4])
	case TypeFloat2, TypeFloat3, TypeFloat4:
		i := addUnique(&set.Vectors, u)
		mask := ""
		switch typ {
		case TypeFloat2:
			mask = ".rg"
		case TypeFloat3:
			mask = ".rgb"
		}
		return ctx.AddInlinedCodeChunk(typ, "Material.VectorExpressions[%d]%s", i, mask)
	case TypeTexture2D:
		return ctx.AddInlinedCodeChunk(typ, "Material.Texture2D_%d", addUnique(&set.Textures2D, u))
	case TypeTextureCube:
		return ctx.AddInlinedCodeChunk(typ, "Material.TextureCube_%d", addUnique(&set.TexturesCube, u))
	case TypeTexture2DArray:
		return ctx.AddInlinedCodeChunk(typ, "Material.Texture2DArray_%d", addUnique(&set.Textures2DArray, u))
	case TypeVolumeTexture:
		return ctx.AddInlinedCodeChunk(typ, "Material.VolumeTexture_%d", addUnique(&set.TexturesVolume, u))
	case TypeTextureExternal:
		return ctx.AddInlinedCodeChunk(typ, "Material.ExternalTexture_%d", addUnique(&set.TexturesExternal, u))
	case TypeTextureVirtual:
		addUnique(&set.TexturesVirtual, u)
		return ctx.AddInlinedCodeChunk(typ, "")
	}
	panic("matbuild: uniform of type " + typ.String() + " cannot be accessed")
}

// virtualTextureIndex returns the slot of a virtual texture uniform.
func (set *UniformSet) virtualTextureIndex(u *Uniform) int {
	for i, have := range set.TexturesVirtual {
		if have == u {
			return i
		}
	}
	return -1
}

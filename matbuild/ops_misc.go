package matbuild

import (
	"fmt"
	"strings"
)

// VertexColor returns the interpolated vertex color.
func (ctx Context) VertexColor() Code {
	if ctx.freq != FreqVertex {
		ctx.t.usage.VertexColor = true
	}
	return ctx.AddInlinedCodeChunk(TypeFloat4, "Parameters.VertexColor")
}

// WorldPositionType selects the offsets included in a world position.
type WorldPositionType uint8

const (
	WorldPositionDefault WorldPositionType = iota
	WorldPositionExcludeAllShaderOffsets
	WorldPositionCameraRelative
	WorldPositionCameraRelativeNoOffsets
)

// WorldPosition returns the world space position of the vertex or pixel.
func (ctx Context) WorldPosition(wp WorldPositionType) Code {
	t := ctx.t
	var pattern string
	switch wp {
	case WorldPositionDefault:
		pattern = "Get<PREV>WorldPosition"
	case WorldPositionExcludeAllShaderOffsets:
		pattern = "Get<PREV>WorldPosition"
		if t.opts.FeatureLevel >= FeatureES3_1 {
			t.usage.WorldPositionExcludingShaderOffsets = true
			pattern += "<NO_MATERIAL_OFFSETS>"
		}
	case WorldPositionCameraRelative:
		pattern = "Get<PREV>TranslatedWorldPosition"
	case WorldPositionCameraRelativeNoOffsets:
		pattern = "Get<PREV>TranslatedWorldPosition"
		if t.opts.FeatureLevel >= FeatureES3_1 {
			t.usage.WorldPositionExcludingShaderOffsets = true
			pattern += "<NO_MATERIAL_OFFSETS>"
		}
	default:
		return ctx.Errorf("Encountered unknown world position type '%d'", wp)
	}
	prev, noOffsets := "", ""
	if ctx.prevFrame && ctx.freq == FreqVertex {
		prev = "Prev"
	}
	if ctx.freq == FreqPixel {
		// Material offsets are only removable in the vertex shader.
		noOffsets = "_NoMaterialOffsets"
	}
	r := strings.NewReplacer("<PREV>", prev, "<NO_MATERIAL_OFFSETS>", noOffsets)
	t.usage.VertexPosition = true
	return ctx.AddInlinedCodeChunk(TypeFloat3, "%s(Parameters)", r.Replace(pattern))
}

// GameTime returns the game time in seconds, wrapped to period when periodic.
func (ctx Context) GameTime(periodic bool, period float32) Code {
	return ctx.time("GameTime", periodic, period)
}

// RealTime returns the real time in seconds, wrapped to period when periodic.
func (ctx Context) RealTime(periodic bool, period float32) Code {
	return ctx.time("RealTime", periodic, period)
}

func (ctx Context) time(name string, periodic bool, period float32) Code {
	view := "View." + name
	if ctx.prevFrame {
		view = "View.PrevFrame" + name
	}
	if !periodic {
		return ctx.AddInlinedCodeChunk(TypeFloat, "%s", view)
	} else if period == 0 {
		return ctx.Constant(0)
	}
	// Kept at full precision until the fmod.
	return ctx.AddInlinedCodeChunk(TypeFloat, "fmod(%s,%s)", view, ctx.ParameterCode(ctx.Constant(period)))
}

// PixelDepth returns the depth of the pixel from the camera.
func (ctx Context) PixelDepth() Code {
	if ctx.freq != FreqPixel && ctx.freq != FreqCompute && ctx.freq != FreqVertex {
		return ctx.domainErrorf("Invalid node used in hull/domain shader input!")
	}
	return ctx.AddInlinedCodeChunk(TypeFloat, "GetScreenPosition(Parameters).w")
}

// ShadingModel returns the shading model id m and records it as used.
func (ctx Context) ShadingModel(m ShadingModel) Code {
	ctx.t.shadingModels |= ShadingModelSet(m)
	return ctx.AddInlinedCodeChunk(TypeShadingModel, "%d", m)
}

// Interpolator is implemented by expressions whose input is computed in
// the vertex shader and interpolated to the pixel shader.
type Interpolator interface {
	Expression
	// VertexInput is the input compiled in the vertex shader.
	VertexInput() Input
}

// interpolator is a vertex interpolator whose vertex input compiled.
type interpolator struct {
	node  NodeID
	index int
	typ   ValueType
	// offset is the first custom interpolator scalar, or -1 until the pixel
	// shader reads the interpolator.
	offset int
}

func (ip *interpolator) size() int { return ip.typ.NumComponents() }

// VertexInterpolator reads the interpolated value of the vertex
// interpolator expression being compiled. It is only valid in the pixel shader.
func (ctx Context) VertexInterpolator() Code {
	t := ctx.t
	if ctx.freq != FreqPixel {
		return ctx.domainErrorf("Custom interpolator outputs only available in pixel shaders.")
	}
	var ip *interpolator
	for i := range t.interpolators {
		if t.interpolators[i].node == ctx.node {
			ip = &t.interpolators[i]
			break
		}
	}
	if ip == nil {
		// Errors of the vertex input are only reported once the value is read.
		for _, d := range t.interpolatorErrors[ctx.node] {
			t.addDiagnostic(d)
		}
		return ctx.Errorf("Invalid custom interpolator index.")
	}
	if ip.offset < 0 {
		ip.offset = t.interpolatorOffset
		t.interpolatorOffset += ip.size()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", ip.typ.HLSL())
	for i := 0; i < ip.size(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "Parameters.TexCoords[VERTEX_INTERPOLATOR_%d_TEXCOORDS_%c].%c", ip.index, "XYZW"[i], "xy"[(ip.offset+i)%2])
	}
	b.WriteByte(')')
	return ctx.AddCodeChunk(ip.typ, "%s", b.String())
}

// compileVertexInterpolators compiles the vertex input of every
// interpolator in its own scope and records the ones that succeed.
func (t *Translator) compileVertexInterpolators() {
	for _, id := range t.mat.VertexInterpolators {
		expr, ok := t.mat.node(id).(Interpolator)
		if !ok {
			t.errorf(KindStructural, "Node %d is not a vertex interpolator", id)
			continue
		}
		var sink []Diagnostic
		t.sink = &sink
		ctx := t.newContext(FreqVertex, PropNone)
		ctx.node = id
		code := ctx.Compile(expr.VertexInput())
		typ := ctx.Type(code)
		if code.IsValid() && !typ.IsFloat() {
			ctx.typeErrorf("Vertex interpolator input must be a float vector, got %s", typ)
			code = Code{}
		}
		if code.IsValid() {
			if typ == TypeFloat {
				typ = TypeFloat1
			}
			index := len(t.interpolators)
			defs, body := ctx.implementationBody(code)
			t.customImplementations = append(t.customImplementations, fmt.Sprintf(
				"%s VertexInterpolator%d(FMaterialVertexParameters Parameters)\n{\n%s return %s;\n}\n",
				typ.HLSL(), index, defs, body))
			t.interpolators = append(t.interpolators, interpolator{node: id, index: index, typ: typ, offset: -1})
		} else {
			if t.interpolatorErrors == nil {
				t.interpolatorErrors = make(map[NodeID][]Diagnostic)
			}
			t.interpolatorErrors[id] = sink
		}
		t.sink = nil
		t.log.Debug("compiled vertex interpolator", "node", id, "ok", code.IsValid(), "type", typ)
		// Each interpolator is an independent compile.
		t.resetStack(FreqVertex)
	}
}

// implementationBody returns the definitions and the returned value of a
// generated function that computes c in the current scope.
func (ctx Context) implementationBody(c Code) (defs, body string) {
	if u := ctx.uniform(c); u != nil && !u.IsConstant() {
		return "", ctx.ParameterCode(c)
	}
	chunks := ctx.chunks().chunks
	return fixedParameterCode(chunks, 0, len(chunks), c)
}

// CustomOutput generates the function implementing output index of out
// from code. It is called by custom output expressions from Compile and
// always returns the zero Code.
func (ctx Context) CustomOutput(out CustomOutput, index int, code Code) Code {
	if ctx.property != PropNone {
		return ctx.Errorf("A Custom Output node should not be attached to the %s material property", ctx.property)
	}
	if !code.IsValid() {
		return Code{}
	}
	typ := ctx.Type(code)
	if typ&TypeFloat == 0 || typ.NumComponents() == 0 {
		return ctx.typeErrorf("Bad type %s for %s", typ, out.OutputName())
	}
	stage := "Pixel"
	if ctx.freq == FreqVertex {
		stage = "Vertex"
	}
	defs, body := ctx.implementationBody(code)
	ctx.t.customImplementations = append(ctx.t.customImplementations, fmt.Sprintf(
		"%s %s%d(FMaterial%sParameters Parameters)\n{\n%s return %s;\n}\n",
		typ.HLSL(), out.OutputName(), index, stage, defs, body))
	return Code{}
}

// compileCustomOutputs compiles the custom outputs whose
// CompileBeforeProperties flag equals before.
func (t *Translator) compileCustomOutputs(before bool) {
	for _, id := range t.mat.CustomOutputs {
		out, ok := t.mat.node(id).(CustomOutput)
		if !ok {
			t.errorf(KindStructural, "Node %d is not a custom output", id)
			continue
		}
		if out.CompileBeforeProperties() != before {
			continue
		}
		name := out.OutputName()
		if !out.AllowMultiple() && t.seenCustomOutputs[name] {
			t.errorf(KindStructural, "The material can contain only one %s node", name)
			continue
		}
		if t.seenCustomOutputs == nil {
			t.seenCustomOutputs = make(map[string]bool)
		}
		t.seenCustomOutputs[name] = true
		n := out.NumOutputs()
		if out.NeedsDefine() {
			t.customDefines = append(t.customDefines, string(AppendDefineInt(nil, "NUM_MATERIAL_OUTPUTS_"+strings.ToUpper(name), ' ', n)))
		}
		freq := out.ShaderFrequency()
		for i := 0; i < n; i++ {
			t.resetStack(freq)
			ctx := t.newContext(freq, PropNone)
			ctx.node = id
			out.Compile(ctx, i)
		}
		t.resetStack(freq)
		t.log.Debug("compiled custom output", "name", name, "outputs", n, "before", before)
	}
}

package gmat

import "github.com/soypat/gmat/matbuild"

type staticBool struct {
	name string // Parameter name, empty for a literal.
	v    bool
}

// StaticBool creates a static bool literal node.
func (bld *Builder) StaticBool(v bool) Input {
	return bld.add(&staticBool{v: v})
}

// StaticBoolParameter creates a static bool resolved by name at translation
// time. def is used when neither the translator options nor the material set it.
func (bld *Builder) StaticBoolParameter(name string, def bool) Input {
	if name == "" {
		bld.inputErrorf("StaticBoolParameter: empty name")
	}
	return bld.add(&staticBool{name: name, v: def})
}

func (sb *staticBool) Kind() string {
	if sb.name != "" {
		return "StaticBoolParameter"
	}
	return "StaticBool"
}

func (sb *staticBool) AppendInputs(dst []Input) []Input { return dst }
func (sb *staticBool) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if sb.name != "" {
		return ctx.StaticBoolParameter(sb.name, sb.v)
	}
	return ctx.StaticBool(sb.v)
}

type staticSwitch struct {
	value        Input
	defaultValue bool
	onTrue       Input
	onFalse      Input
}

// StaticSwitch creates a node selecting onTrue or onFalse at translation
// time by the static bool value. defaultValue is used when value is unconnected.
func (bld *Builder) StaticSwitch(value Input, defaultValue bool, onTrue, onFalse Input) Input {
	bld.checkInputs("StaticSwitch", value, onTrue, onFalse)
	return bld.add(&staticSwitch{value: value, defaultValue: defaultValue, onTrue: onTrue, onFalse: onFalse})
}

func (sw *staticSwitch) Kind() string { return "StaticSwitch" }
func (sw *staticSwitch) AppendInputs(dst []Input) []Input {
	return append(dst, sw.value, sw.onTrue, sw.onFalse)
}

func (sw *staticSwitch) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	v := sw.defaultValue
	if sw.value.IsConnected() {
		var ok bool
		v, ok = ctx.StaticBoolValue(ctx.Compile(sw.value))
		if !ok {
			return matbuild.Code{}
		}
	}
	if v {
		if !sw.onTrue.IsConnected() {
			return ctx.Errorf("Missing StaticSwitch input True")
		}
		return ctx.Compile(sw.onTrue)
	}
	if !sw.onFalse.IsConnected() {
		return ctx.Errorf("Missing StaticSwitch input False")
	}
	return ctx.Compile(sw.onFalse)
}

type staticComponentMask struct {
	x    Input
	name string
	def  [4]bool
}

// StaticComponentMaskParameter creates a node masking x with the
// components of a static parameter resolved by name. def holds the RGBA
// mask used when the material does not set the parameter.
func (bld *Builder) StaticComponentMaskParameter(x Input, name string, def [4]bool) Input {
	bld.checkInputs("StaticComponentMaskParameter", x)
	if name == "" {
		bld.inputErrorf("StaticComponentMaskParameter: empty name")
	}
	return bld.add(&staticComponentMask{x: x, name: name, def: def})
}

func (m *staticComponentMask) Kind() string                     { return "StaticComponentMaskParameter" }
func (m *staticComponentMask) AppendInputs(dst []Input) []Input { return append(dst, m.x) }
func (m *staticComponentMask) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if !m.x.IsConnected() {
		return ctx.Errorf("Missing StaticComponentMaskParameter input")
	}
	return ctx.StaticComponentMask(ctx.Compile(m.x), m.name, m.def)
}

type vertexColor struct{}

// VertexColor creates a node reading the vertex color. Outputs are selected
// with OutputRGB through OutputRGBA.
func (bld *Builder) VertexColor() Input { return bld.add(&vertexColor{}) }

func (vertexColor) Kind() string                                      { return "VertexColor" }
func (vertexColor) AppendInputs(dst []Input) []Input                  { return dst }
func (vertexColor) CanIgnoreOutputIndex() bool                        { return true }
func (vertexColor) OutputMask(output int) ([4]bool, bool)             { return rgbaOutputMask(output) }
func (vertexColor) Compile(ctx matbuild.Context, _ int) matbuild.Code { return ctx.VertexColor() }

type worldPosition struct {
	wp matbuild.WorldPositionType
}

// WorldPosition creates a node reading the world position of the vertex or pixel.
func (bld *Builder) WorldPosition(wp matbuild.WorldPositionType) Input {
	return bld.add(&worldPosition{wp: wp})
}

func (w *worldPosition) Kind() string                     { return "WorldPosition" }
func (w *worldPosition) AppendInputs(dst []Input) []Input { return dst }
func (w *worldPosition) CanIgnoreOutputIndex() bool       { return true }
func (w *worldPosition) OutputMask(output int) ([4]bool, bool) {
	return vectorOutputMask(output, 3)
}
func (w *worldPosition) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	return ctx.WorldPosition(w.wp)
}

type timeNode struct {
	ignorePause bool
	periodic    bool
	period      float32
}

// Time creates a node reading the game time in seconds, or the real time
// when ignorePause is set. A positive period wraps the time to [0, period).
func (bld *Builder) Time(ignorePause bool, period float32) Input {
	if period < 0 {
		bld.inputErrorf("Time: negative period %g", period)
	}
	return bld.add(&timeNode{ignorePause: ignorePause, periodic: period > 0, period: period})
}

func (tn *timeNode) Kind() string                     { return "Time" }
func (tn *timeNode) AppendInputs(dst []Input) []Input { return dst }
func (tn *timeNode) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if tn.ignorePause {
		return ctx.RealTime(tn.periodic, tn.period)
	}
	return ctx.GameTime(tn.periodic, tn.period)
}

type pixelDepth struct{}

// PixelDepth creates a node reading the distance of the pixel to the camera.
func (bld *Builder) PixelDepth() Input { return bld.add(pixelDepth{}) }

func (pixelDepth) Kind() string                                      { return "PixelDepth" }
func (pixelDepth) AppendInputs(dst []Input) []Input                  { return dst }
func (pixelDepth) Compile(ctx matbuild.Context, _ int) matbuild.Code { return ctx.PixelDepth() }

type previousFrameSwitch struct {
	current, previous Input
}

// PreviousFrameSwitch creates a node selecting previous when the values of
// the previous frame are compiled, for motion vectors, and current otherwise.
func (bld *Builder) PreviousFrameSwitch(current, previous Input) Input {
	bld.checkInputs("PreviousFrameSwitch", current, previous)
	return bld.add(&previousFrameSwitch{current: current, previous: previous})
}

func (s *previousFrameSwitch) Kind() string { return "PreviousFrameSwitch" }
func (s *previousFrameSwitch) AppendInputs(dst []Input) []Input {
	return append(dst, s.current, s.previous)
}

func (s *previousFrameSwitch) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	in, name := s.current, "current"
	if ctx.PreviousFrame() {
		in, name = s.previous, "previous"
	}
	if !in.IsConnected() {
		return ctx.Errorf("Missing PreviousFrameSwitch input %s frame", name)
	}
	return ctx.Compile(in)
}

type shadingModel struct {
	m matbuild.ShadingModel
}

// ShadingModel creates a node selecting a shading model per pixel.
func (bld *Builder) ShadingModel(m matbuild.ShadingModel) Input {
	return bld.add(&shadingModel{m: m})
}

func (sm *shadingModel) Kind() string                     { return "ShadingModel" }
func (sm *shadingModel) AppendInputs(dst []Input) []Input { return dst }
func (sm *shadingModel) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	return ctx.ShadingModel(sm.m)
}

type vertexInterpolator struct {
	x Input
}

// VertexInterpolator creates a node computing x in the vertex shader and
// interpolating the result to the pixel shader.
func (bld *Builder) VertexInterpolator(x Input) Input {
	bld.checkInputs("VertexInterpolator", x)
	bld.mustConnected("VertexInterpolator", x)
	in := bld.add(&vertexInterpolator{x: x})
	bld.g.interpolators = append(bld.g.interpolators, in.Node)
	return in
}

func (vi *vertexInterpolator) Kind() string                     { return "VertexInterpolator" }
func (vi *vertexInterpolator) AppendInputs(dst []Input) []Input { return append(dst, vi.x) }

// VertexInput implements [matbuild.Interpolator].
func (vi *vertexInterpolator) VertexInput() Input { return vi.x }

func (vi *vertexInterpolator) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if ctx.Frequency() != matbuild.FreqPixel {
		// Other stages read the input directly.
		return ctx.Compile(vi.x)
	}
	return ctx.VertexInterpolator()
}

// CustomOutputConfig describes a custom output node.
type CustomOutputConfig struct {
	// Name is the base name of the generated functions, i.e: "GetBentNormal".
	Name      string
	Frequency matbuild.Frequency
	// BeforeProperties compiles the outputs before the material properties.
	BeforeProperties bool
	AllowMultiple    bool
	// NeedsDefine emits a NUM_MATERIAL_OUTPUTS define with the output count.
	NeedsDefine bool
}

type customOutput struct {
	cfg    CustomOutputConfig
	inputs []Input
}

// CustomOutput creates a node generating one function per input named
// after cfg.Name and the input index.
func (bld *Builder) CustomOutput(cfg CustomOutputConfig, inputs ...Input) Input {
	bld.checkInputs("CustomOutput", inputs...)
	if cfg.Name == "" {
		bld.inputErrorf("CustomOutput: empty name")
	} else if len(inputs) == 0 {
		bld.inputErrorf("CustomOutput %s: no inputs", cfg.Name)
	}
	in := bld.add(&customOutput{cfg: cfg, inputs: inputs})
	bld.g.customOutputs = append(bld.g.customOutputs, in.Node)
	return in
}

func (co *customOutput) Kind() string                        { return "CustomOutput" }
func (co *customOutput) AppendInputs(dst []Input) []Input    { return append(dst, co.inputs...) }
func (co *customOutput) OutputName() string                  { return co.cfg.Name }
func (co *customOutput) NumOutputs() int                     { return len(co.inputs) }
func (co *customOutput) ShaderFrequency() matbuild.Frequency { return co.cfg.Frequency }
func (co *customOutput) CompileBeforeProperties() bool       { return co.cfg.BeforeProperties }
func (co *customOutput) AllowMultiple() bool                 { return co.cfg.AllowMultiple }
func (co *customOutput) NeedsDefine() bool                   { return co.cfg.NeedsDefine }

func (co *customOutput) Compile(ctx matbuild.Context, output int) matbuild.Code {
	if output < 0 || output >= len(co.inputs) {
		return ctx.Errorf("Invalid %s output %d", co.cfg.Name, output)
	}
	in := co.inputs[output]
	if !in.IsConnected() {
		return ctx.Errorf("Missing %s input %d", co.cfg.Name, output)
	}
	return ctx.CustomOutput(co, output, ctx.Compile(in))
}

package matbuild

import (
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/soypat/gmat/mateval"
)

// Options configures a [Translator].
type Options struct {
	// Logger receives debug traces of the pass. Nil discards them.
	Logger       *slog.Logger
	FeatureLevel FeatureLevel
	// VirtualTexturing enables virtual texture sampling. When disabled
	// virtual textures are sampled as regular 2D textures.
	VirtualTexturing bool
	// StaticSwitches overrides static bool parameters of the material by name.
	StaticSwitches map[string]bool
}

// State is a phase of a translation pass.
type State uint8

const (
	StateInit State = iota
	StateCompileVertexInterpolators
	StateValidateVTLimits
	StateCompileNormal
	StateCompileRemainingProperties
	StateCompileCustomOutputs
	StateFinalizeTemplate
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateCompileVertexInterpolators:
		return "COMPILE_VERTEX_INTERPOLATORS"
	case StateValidateVTLimits:
		return "VALIDATE_VT_LIMITS"
	case StateCompileNormal:
		return "COMPILE_NORMAL"
	case StateCompileRemainingProperties:
		return "COMPILE_REMAINING_PROPERTIES"
	case StateCompileCustomOutputs:
		return "COMPILE_CUSTOM_OUTPUTS"
	case StateFinalizeTemplate:
		return "FINALIZE_TEMPLATE"
	case StateSuccess:
		return "SUCCESS"
	case StateFailed:
		return "FAILED"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Stats counts texture samples of a pass.
type Stats struct {
	PixelTextureSamples   int
	VertexTextureSamples  int
	VirtualTextureSamples int
}

// Usage holds the features a translated material was found to use.
type Usage struct {
	EmissiveColor       bool
	WorldPositionOffset bool
	PixelDepthOffset    bool
	// FullyRough is set when the roughness is the constant 1.
	FullyRough     bool
	VertexColor    bool
	VertexPosition bool

	WorldPositionExcludingShaderOffsets bool
}

// PropertyCode is the generated code computing a property.
type PropertyCode struct {
	// Definitions declare the temporaries Value reads.
	Definitions string
	Value       string
}

// Define is a preprocessor define of the compilation environment.
type Define struct {
	Name  string
	Value string
}

// Result is the output of a translation pass.
type Result struct {
	// Source is the complete material shader source.
	Source     string
	Properties [numCompiledProperties]PropertyCode
	Uniforms   UniformSet
	// Defines are the defines the shader must be compiled with.
	Defines       []Define
	Diagnostics   []Diagnostic
	Success       bool
	State         State
	Trace         []State
	Stats         Stats
	Usage         Usage
	ShadingModels ShadingModels

	NumUserTexCoords             int
	NumUserVertexTexCoords       int
	NumCustomInterpolatorScalars int
}

// Property returns the generated code of property p.
func (r *Result) Property(p Property) PropertyCode { return r.Properties[p] }

// Err returns the diagnostics of the pass joined into one error, or nil.
func (r *Result) Err() error {
	if len(r.Diagnostics) == 0 {
		return nil
	}
	errs := make([]error, len(r.Diagnostics))
	for i := range r.Diagnostics {
		errs[i] = r.Diagnostics[i]
	}
	return errors.Join(errs...)
}

// Translator translates one material to shader code. A Translator holds
// the state of a single pass and cannot be reused.
type Translator struct {
	mat  *Material
	opts Options
	log  *slog.Logger

	used    bool
	success bool
	state   State
	trace   []State

	stacks [numFrequencies][]*FunctionState
	// sink collects diagnostics instead of the pass when set.
	sink  *[]Diagnostic
	diags []Diagnostic

	scopes     []*chunkScope
	freqScopes [numFrequencies]int
	nextSymbol int
	finalized  bool

	uniforms []*Uniform
	set      UniformSet

	vtHash    map[uint64][]int
	vtEntries []vtEntry

	results   [numCompiledProperties]Code
	normalEnd int

	texCoordsVertex bitArray
	texCoordsPixel  bitArray

	interpolators      []interpolator
	interpolatorErrors map[NodeID][]Diagnostic
	interpolatorOffset int

	customImplementations []string
	customDefines         []string
	seenCustomOutputs     map[string]bool

	shadingModels ShadingModels
	stats         Stats
	usage         Usage
}

// NewTranslator returns a translator of mat.
func NewTranslator(mat *Material, opts Options) *Translator {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Translator{mat: mat, opts: opts, log: log.With("material", mat.Name)}
}

func (t *Translator) enter(s State) {
	t.state = s
	t.trace = append(t.trace, s)
	t.log.Debug("translator phase", "state", s)
}

// newContext returns a context compiling in a new temporary scope.
func (t *Translator) newContext(freq Frequency, p Property) Context {
	return Context{t: t, freq: freq, scope: t.newScope(), property: p, attributeID: p}
}

// Translate runs the translation pass. The returned error is the joined
// diagnostics of a failed pass. Diagnostics are also available in the Result.
func (t *Translator) Translate() (*Result, error) {
	if t.used {
		return nil, errAlreadyTranslated
	}
	t.used = true
	t.success = true
	t.enter(StateInit)
	if t.mat.Graph == nil {
		t.errorf(KindStructural, "Material %q has no graph", t.mat.Name)
		t.enter(StateFailed)
		res := t.result()
		return res, res.Err()
	}
	for f := range t.stacks {
		t.resetStack(Frequency(f))
		t.freqScopes[f] = t.newScope()
	}

	t.enter(StateCompileVertexInterpolators)
	t.compileVertexInterpolators()

	if t.opts.VirtualTexturing {
		t.enter(StateValidateVTLimits)
		t.validateVTPropertyLimits()
	}

	t.compileCustomOutputs(true)

	t.enter(StateCompileNormal)
	t.compileProperty(PropNormal)
	t.normalEnd = len(t.scopes[t.freqScopes[FreqPixel]].chunks)

	t.enter(StateCompileRemainingProperties)
	t.compileRemainingProperties()

	t.enter(StateCompileCustomOutputs)
	t.compileCustomOutputs(false)

	numUserTexCoords := t.texCoordsPixel.last() + 1
	for i := 0; i < NumCustomizedUVs && i < numUserTexCoords; i++ {
		t.compileProperty(CustomizedUV(i))
	}

	t.enter(StateFinalizeTemplate)
	t.finalized = true
	t.usage.EmissiveColor = t.isPropertyUsed(PropEmissiveColor, mateval.Value{}, 3)
	t.usage.PixelDepthOffset = t.isPropertyUsed(PropPixelDepthOffset, mateval.Value{}, 1)
	t.usage.WorldPositionOffset = t.isPropertyUsed(PropWorldPositionOffset, mateval.Value{}, 3)
	t.usage.FullyRough = t.results[PropRoughness].IsValid() && !t.isPropertyUsed(PropRoughness, mateval.Value{1}, 1)

	t.validateMaterial()
	t.checkInterpolatorBudget()
	t.set.buildPrograms()

	res := t.result()
	res.Source = t.assemble(res)
	if t.success {
		t.enter(StateSuccess)
	} else {
		t.enter(StateFailed)
	}
	res.State = t.state
	res.Trace = t.trace
	res.Success = t.success
	res.Diagnostics = t.diags
	t.log.Info("translated material", "success", t.success, "diagnostics", len(t.diags),
		"scalars", len(t.set.Scalars), "vectors", len(t.set.Vectors), "vtstacks", len(t.set.VTStacks))
	if !t.success {
		return res, res.Err()
	}
	return res, nil
}

func (t *Translator) result() *Result {
	return &Result{
		Uniforms:                     t.set,
		Diagnostics:                  t.diags,
		Success:                      t.success,
		State:                        t.state,
		Trace:                        t.trace,
		Stats:                        t.stats,
		Usage:                        t.usage,
		ShadingModels:                t.effectiveShadingModels(),
		NumUserTexCoords:             t.texCoordsPixel.last() + 1,
		NumUserVertexTexCoords:       t.texCoordsVertex.last() + 1,
		NumCustomInterpolatorScalars: t.interpolatorOffset,
	}
}

// effectiveShadingModels returns the shading models compiled from the graph
// when the material takes them from its expressions.
func (t *Translator) effectiveShadingModels() ShadingModels {
	if t.mat.ShadingModelFromExpression && t.shadingModels != 0 {
		return t.shadingModels
	}
	return t.mat.ShadingModels
}

func (t *Translator) compileRemainingProperties() {
	for _, p := range []Property{
		PropEmissiveColor, PropDiffuseColor, PropSpecularColor, PropBaseColor, PropMetallic,
		PropSpecular, PropRoughness, PropOpacity, PropOpacityMask, PropWorldPositionOffset,
		PropWorldDisplacement, PropTessellationMultiplier, PropShadingModel,
	} {
		t.compileProperty(p)
	}
	mat := t.mat
	models := t.effectiveShadingModels()
	if mat.Domain == DomainSurface && models.HasAnySubsurface() {
		ctx, color := t.compileProperty(PropSubsurfaceColor)
		color = ctx.ForceCast(color, TypeFloat3, ForceCastExactMatch|ForceCastReplicateValue)
		// The profile is replaced by the renderer.
		profile := ctx.ForceCast(ctx.ScalarParameter("__SubsurfaceProfile", 1), TypeFloat1, 0)
		t.setResult(ctx, PropSubsurfaceColor, ctx.AppendVector(color, profile))
	}
	t.compileProperty(PropCustomData0)
	t.compileProperty(PropCustomData1)
	t.compileProperty(PropAmbientOcclusion)
	if mat.BlendMode.IsTranslucent() || models.Has(ShadingSingleLayerWater) {
		ctx, refraction := t.compileProperty(PropRefraction)
		refraction = ctx.ForceCast(refraction, TypeFloat1, 0)
		bias := ctx.ForceCast(ctx.ScalarParameter("RefractionDepthBias", mat.RefractionDepthBias), TypeFloat1, 0)
		t.setResult(ctx, PropRefraction, ctx.AppendVector(refraction, bias))
	}
	if mat.Domain == DomainLightFunction {
		t.compileProperty(PropEmissiveColorCS)
	}
	if t.results[PropWorldPositionOffset].IsValid() {
		t.compileProperty(PropPrevWorldPositionOffset)
	}
	t.compileProperty(PropPixelDepthOffset)
}

// compileProperty compiles the input of property p, or its default when
// unconnected, in the scope of the property's stage.
func (t *Translator) compileProperty(p Property) (Context, Code) {
	src, freq, prev := p, p.Frequency(), false
	switch p {
	case PropEmissiveColorCS:
		src = PropEmissiveColor
	case PropPrevWorldPositionOffset:
		src, prev = PropWorldPositionOffset, true
	}
	ctx := Context{t: t, freq: freq, scope: t.freqScopes[freq], property: src, attributeID: src, prevFrame: prev}
	mat := t.mat
	in := mat.Inputs[src]
	useDefault := !in.IsConnected()
	switch src {
	case PropOpacity, PropOpacityMask:
		// Basic opaque surfaces skip masked and translucent only attributes.
		sm := mat.ShadingModels
		if mat.Domain == DomainSurface && mat.BlendMode == BlendOpaque && !(sm.IsLit() && !sm.Has(ShadingDefaultLit)) &&
			!sm.Has(ShadingSingleLayerWater) {
			useDefault = true
		}
	case PropWorldDisplacement:
		if t.opts.FeatureLevel < FeatureSM5 {
			useDefault = true
		}
	default:
		if src.IsCustomizedUV() && int(src-PropCustomizedUVs0) >= mat.NumCustomizedUVs {
			useDefault = true
		}
	}
	var code Code
	if useDefault {
		code = ctx.compileDefault(src)
	} else {
		code = ctx.Compile(in)
	}
	code = ctx.castProperty(code, p.Type())
	t.setResult(ctx, p, code)
	t.log.Debug("compiled property", "property", p, "freq", freq, "default", useDefault, "ok", code.IsValid())
	return ctx, code
}

// castProperty casts the result of a property to typ preserving constants
// so that default values remain detectable.
func (ctx Context) castProperty(c Code, typ ValueType) Code {
	if !c.IsValid() {
		return c
	}
	if u := ctx.uniform(c); u != nil && u.IsConstant() {
		exact := func(t ValueType) ValueType {
			if t == TypeFloat {
				return TypeFloat1
			}
			return t
		}
		src := ctx.Type(c)
		dst := exact(typ)
		switch {
		case exact(src) == dst:
			return c
		case src == TypeFloat || (dst == TypeFloat1 && src.IsFloat()):
			return ctx.ComponentMask(c, true, dst >= TypeFloat2, dst >= TypeFloat3, dst >= TypeFloat4)
		}
	}
	return ctx.ForceCast(c, typ, 0)
}

// setResult records the result of p. Uniform results are read through
// their slot since the final code is fixed after compilation.
func (t *Translator) setResult(ctx Context, p Property, c Code) {
	if u := ctx.uniform(c); u != nil && !u.IsConstant() {
		c = ctx.accessUniform(c)
	}
	t.results[p] = c
}

// isPropertyUsed reports whether the result of p differs from the constant
// ref over its first n components.
func (t *Translator) isPropertyUsed(p Property, ref mateval.Value, n int) bool {
	c := t.results[p]
	if !c.IsValid() {
		return false
	}
	ctx := Context{t: t, freq: p.Frequency(), scope: t.freqScopes[p.Frequency()]}
	v, ok := ctx.constantValue(c)
	return !ok || !v.EqualN(ref, n)
}

// validateVTPropertyLimits rejects virtual texture samples reachable from
// properties that cannot read virtual textures.
func (t *Translator) validateVTPropertyLimits() {
	for p := Property(0); p < NumProperties; p++ {
		if p != PropOpacityMask && p.Frequency() == FreqPixel {
			continue
		}
		if !t.reachesVirtualTexture(t.mat.Inputs[p]) {
			continue
		}
		if p == PropOpacityMask {
			t.errorf(KindDomain, "Sampling a virtual texture is currently not supported when connected to the Opacity Mask material attribute.")
		} else {
			t.errorf(KindDomain, "Sampling a virtual texture is currently not supported when connected to the %s material attribute.", p)
		}
	}
}

func (t *Translator) reachesVirtualTexture(root Input) bool {
	if !root.IsConnected() {
		return false
	}
	visited := make(map[NodeID]bool)
	queue := []Input{root}
	var inputs []Input
	for len(queue) > 0 {
		in := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if !in.IsConnected() || visited[in.Node] {
			continue
		}
		visited[in.Node] = true
		expr := t.mat.node(in.Node)
		if expr == nil {
			continue
		}
		if vt, ok := expr.(virtualTextureUser); ok && vt.UsesVirtualTexture() {
			return true
		}
		inputs = expr.AppendInputs(inputs[:0])
		queue = append(queue, inputs...)
	}
	return false
}

// validateMaterial reports combinations of domain, blend mode and shading
// models the renderer cannot draw.
func (t *Translator) validateMaterial() {
	mat := t.mat
	models := t.effectiveShadingModels()
	bm := mat.BlendMode
	lightFunction := mat.Domain == DomainLightFunction
	if bm == BlendModulate && models.IsLit() && mat.Domain != DomainDeferredDecal {
		t.errorf(KindDomain, "Dynamically lit translucency is not supported for BLEND_Modulate materials.")
	}
	if bm == BlendAlphaHoldout && !models.IsUnlit() {
		t.errorf(KindDomain, "Alpha Holdout blend mode must use unlit shading model.")
	}
	if mat.Domain == DomainVolume && bm != BlendAdditive {
		t.errorf(KindDomain, "Volume materials must use an Additive blend mode.")
	}
	if lightFunction && bm != BlendOpaque {
		t.errorf(KindDomain, "Light function materials must be opaque.")
	}
	if lightFunction && models.IsLit() {
		t.errorf(KindDomain, "Light function materials must use unlit.")
	}
	if mat.Domain == DomainPostProcess && models.IsLit() {
		t.errorf(KindDomain, "Post process materials must use unlit.")
	}
	if mat.AllowNegativeEmissiveColor && models.IsLit() {
		t.errorf(KindDomain, "Only unlit materials can output negative emissive color.")
	}
	if models.Has(ShadingSingleLayerWater) {
		if bm != BlendOpaque {
			t.errorf(KindDomain, "SingleLayerWater materials must be opaque.")
		}
		if models != ShadingModelSet(ShadingSingleLayerWater) {
			t.errorf(KindDomain, "SingleLayerWater materials cannot be combined with other shading models.")
		}
	}
	if mat.Domain == DomainDeferredDecal && bm != BlendTranslucent {
		t.errorf(KindDomain, "Material using the DeferredDecal domain need to use the BlendModel Translucent (this saves performance)")
	}
}

// interpolatorSlots assigns texture coordinate slots to the custom
// interpolators read by the pixel shader and returns the allocated slots
// along with the offset defines.
func (t *Translator) interpolatorSlots() (bitArray, string) {
	allocated := append(bitArray(nil), t.texCoordsPixel...)
	current, end := -1, -1
	nextSlot := func() int {
		if current == end {
			current = allocated.setFirstZero() * 2
			end = current + 2
		}
		slot := current / 2
		current++
		return slot
	}
	var sorted []*interpolator
	for i := range t.interpolators {
		if t.interpolators[i].offset >= 0 {
			sorted = append(sorted, &t.interpolators[i])
		}
	}
	// Insertion sort keeps equal offsets stable.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].offset < sorted[j-1].offset; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	var b []byte
	for _, ip := range sorted {
		b = append(b, '\n')
		prefix := "VERTEX_INTERPOLATOR_" + strconv.Itoa(ip.index) + "_TEXCOORDS_"
		for c := 0; c < ip.size(); c++ {
			b = AppendDefineInt(b, prefix+"XYZW"[c:c+1], '\t', nextSlot())
		}
		b = append(b, '\n')
	}
	return allocated, string(b)
}

// checkInterpolatorBudget reports custom interpolators that do not fit in
// the texture coordinates left by the material.
func (t *Translator) checkInterpolatorBudget() {
	if t.interpolatorOffset == 0 {
		return
	}
	maxScalars := 16
	if t.opts.FeatureLevel == FeatureES2 {
		maxScalars = 6
	}
	texCoords := (t.texCoordsPixel.last() + 1) * 2
	if used := texCoords + t.interpolatorOffset; used > maxScalars {
		t.errorf(KindStructural, "Maximum number of custom vertex interpolators exceeded. (%d / %d scalar values) (TexCoord: %d scalars, Custom: %d scalars)",
			used, maxScalars, texCoords, t.interpolatorOffset)
	}
}

package gmat_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmat"
	"github.com/soypat/gmat/matbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sm5 = matbuild.Options{FeatureLevel: matbuild.FeatureSM5}

func translate(t *testing.T, m *gmat.Material, opts matbuild.Options) *matbuild.Result {
	t.Helper()
	res, err := m.Translate(opts)
	require.NoError(t, err)
	require.True(t, res.Success)
	return res
}

func diagnosticMessages(res *matbuild.Result) []string {
	var msgs []string
	for _, d := range res.Diagnostics {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestConstantOutputs(t *testing.T) {
	var bld gmat.Builder
	c := bld.Constant3(ms3.Vec{X: 0.5, Y: 0.25, Z: 1})
	m := gmat.NewMaterial("constant", bld.Graph())
	m.Connect(matbuild.PropBaseColor, c)
	m.Connect(matbuild.PropMetallic, gmat.Output(c, 2))
	res := translate(t, m, sm5)
	assert.Equal(t, "MaterialFloat3(0.5,0.25,1.0)", res.Property(matbuild.PropBaseColor).Value)
	assert.Equal(t, "MaterialFloat3(0.5,0.25,1.0).g", res.Property(matbuild.PropMetallic).Value)
	assert.Contains(t, res.Source, "\tPixelMaterialInputs.BaseColor = MaterialFloat3(0.5,0.25,1.0);\n")
	assert.Empty(t, res.Uniforms.Scalars)
	assert.Empty(t, res.Uniforms.Vectors)
}

// Two parameter nodes with the same name and default share one uniform slot.
func TestParameterDedup(t *testing.T) {
	var bld gmat.Builder
	rough := bld.ScalarParameter("Rough", 0.5)
	rough2 := bld.ScalarParameter("Rough", 0.5)
	m := gmat.NewMaterial("params", bld.Graph())
	m.Connect(matbuild.PropRoughness, rough)
	m.Connect(matbuild.PropMetallic, rough2)
	res := translate(t, m, sm5)
	require.Len(t, res.Uniforms.Scalars, 1)
	require.Len(t, res.Uniforms.Parameters, 1)
	assert.Equal(t, "Rough", res.Uniforms.Parameters[0].Name)
	assert.Equal(t, "Material.ScalarExpressions[0].x", res.Property(matbuild.PropRoughness).Value)
	assert.Equal(t, "Material.ScalarExpressions[0].x", res.Property(matbuild.PropMetallic).Value)
	assert.False(t, res.Usage.FullyRough, "parameters are never constant")
}

func TestPreshaderParameters(t *testing.T) {
	var bld gmat.Builder
	p := bld.ScalarParameter("P", 0.5)
	m := gmat.NewMaterial("preshader", bld.Graph())
	m.Connect(matbuild.PropMetallic, p)
	m.Connect(matbuild.PropRoughness, bld.ScalarAdd(p, 0.25))
	res := translate(t, m, sm5)
	set := &res.Uniforms
	// Metallic compiles before roughness.
	require.Len(t, set.Scalars, 2)
	require.Len(t, set.Parameters, 1)
	assert.Equal(t, "Material.ScalarExpressions[0].x", res.Property(matbuild.PropMetallic).Value)
	assert.Equal(t, "Material.ScalarExpressions[0].y", res.Property(matbuild.PropRoughness).Value)
}

func newVirtualTextures(m *gmat.Material, n int) {
	for i := 0; i < n; i++ {
		m.AddTexture(matbuild.TextureInfo{
			Name:  "VT" + string(rune('A'+i)),
			Type:  matbuild.TypeTextureVirtual,
			SizeX: 1024,
			SizeY: 1024,
		})
	}
}

// sampleSum samples textures 0 through n-1 at texture coordinate 0 and sums
// their colors.
func sampleSum(bld *gmat.Builder, n int, st matbuild.SamplerType) gmat.Input {
	var sum gmat.Input
	for i := 0; i < n; i++ {
		s := bld.TextureSample(gmat.Sample{TextureIndex: i, SamplerType: st})
		if i == 0 {
			sum = s
			continue
		}
		sum = bld.Add(sum, s)
	}
	return sum
}

// Samples of different virtual textures at the same coordinates share a stack.
func TestVirtualTextureStack(t *testing.T) {
	var bld gmat.Builder
	m := gmat.NewMaterial("vt", bld.Graph())
	newVirtualTextures(m, 2)
	m.Connect(matbuild.PropBaseColor, sampleSum(&bld, 2, matbuild.SamplerVirtualColor))
	opts := sm5
	opts.VirtualTexturing = true
	res := translate(t, m, opts)

	require.Len(t, res.Uniforms.VTStacks, 1)
	stack := res.Uniforms.VTStacks[0]
	assert.Equal(t, 2, stack.NumLayers)
	assert.Equal(t, 0, stack.Layers[0])
	assert.Equal(t, 1, stack.Layers[1])
	assert.Equal(t, -1, stack.PreallocatedTexture)
	assert.Len(t, res.Uniforms.TexturesVirtual, 2)
	assert.Equal(t, 2, res.Stats.VirtualTextureSamples)
	assert.Contains(t, res.Trace, matbuild.StateValidateVTLimits)
	assert.Contains(t, res.Defines, matbuild.Define{Name: "NUM_VIRTUALTEXTURE_SAMPLES", Value: "1"})
	assert.Contains(t, res.Defines, matbuild.Define{Name: "VIRTUALTEXTURE_PAGETABLE_0", Value: "Material.VirtualTexturePageTable0_0"})

	defs := res.Property(matbuild.PropBaseColor).Definitions
	assert.Equal(t, 1, strings.Count(defs, "TextureLoadVirtualPageTable(VIRTUALTEXTURE_PAGETABLE_0"))
	assert.Contains(t, defs, "ProcessMaterialColorTextureLookup(TextureVirtualSample(Material.VirtualTexturePhysicalTable_0, Material.VirtualTexturePhysicalTable_0Sampler, ")
	assert.Contains(t, defs, "ProcessMaterialColorTextureLookup(TextureVirtualSample(Material.VirtualTexturePhysicalTable_1, Material.VirtualTexturePhysicalTable_1Sampler, ")
	assert.Contains(t, defs, ", 1, VTUniform_Unpack(Material.VTPackedUniform[1])))")
}

func TestVirtualTextureStackBound(t *testing.T) {
	var bld gmat.Builder
	m := gmat.NewMaterial("vt9", bld.Graph())
	newVirtualTextures(m, matbuild.MaxVTLayers+1)
	m.Connect(matbuild.PropBaseColor, sampleSum(&bld, matbuild.MaxVTLayers+1, matbuild.SamplerVirtualColor))
	opts := sm5
	opts.VirtualTexturing = true
	res := translate(t, m, opts)

	stacks := res.Uniforms.VTStacks
	require.Len(t, stacks, 2)
	assert.Equal(t, matbuild.MaxVTLayers, stacks[0].NumLayers)
	assert.Equal(t, 1, stacks[1].NumLayers)
	assert.Equal(t, matbuild.MaxVTLayers, stacks[1].Layers[0])
	assert.Contains(t, res.Defines, matbuild.Define{Name: "NUM_VIRTUALTEXTURE_SAMPLES", Value: "2"})
	assert.Contains(t, res.Defines, matbuild.Define{
		Name:  "VIRTUALTEXTURE_PAGETABLE_0",
		Value: "Material.VirtualTexturePageTable0_0, Material.VirtualTexturePageTable1_0",
	})
}

func TestVirtualTexturingDisabled(t *testing.T) {
	var bld gmat.Builder
	m := gmat.NewMaterial("novt", bld.Graph())
	newVirtualTextures(m, 2)
	m.Connect(matbuild.PropBaseColor, sampleSum(&bld, 2, matbuild.SamplerVirtualColor))
	res := translate(t, m, sm5)
	assert.Empty(t, res.Uniforms.VTStacks)
	assert.Empty(t, res.Uniforms.TexturesVirtual)
	assert.Len(t, res.Uniforms.Textures2D, 2)
	assert.NotContains(t, res.Trace, matbuild.StateValidateVTLimits)
	assert.Contains(t, res.Property(matbuild.PropBaseColor).Definitions, "Texture2DSample(Material.Texture2D_1,Material.Texture2D_1Sampler,Parameters.TexCoords[0].xy)")
}

func TestRuntimeVirtualTexture(t *testing.T) {
	var bld gmat.Builder
	rvt := bld.VirtualTextureSample(gmat.VirtualSample{
		Sample:         gmat.Sample{TextureIndex: 0, SamplerType: matbuild.SamplerVirtualColor},
		Layer:          2,
		PageTableLayer: 2,
	})
	m := gmat.NewMaterial("rvt", bld.Graph())
	newVirtualTextures(m, 1)
	m.Connect(matbuild.PropBaseColor, rvt)

	opts := sm5
	opts.VirtualTexturing = true
	res := translate(t, m, opts)
	require.Len(t, res.Uniforms.VTStacks, 1)
	stack := res.Uniforms.VTStacks[0]
	assert.Equal(t, 0, stack.PreallocatedTexture)
	assert.Equal(t, 3, stack.NumLayers)
	assert.Equal(t, 0, stack.Layers[2])
	assert.Equal(t, -1, stack.Layers[0])

	res, err := m.Translate(sm5)
	require.Error(t, err)
	require.NotEmpty(t, res.Diagnostics)
	d := res.Diagnostics[0]
	assert.Equal(t, "(Node RuntimeVirtualTextureSample) Runtime virtual texture sampling requires virtual texturing", d.Message)
	assert.Equal(t, matbuild.KindDomain, d.Kind)
	assert.Equal(t, rvt.Node, d.Node)
}

func TestVirtualTextureVertexProperty(t *testing.T) {
	var bld gmat.Builder
	m := gmat.NewMaterial("vtwpo", bld.Graph())
	newVirtualTextures(m, 1)
	m.Connect(matbuild.PropWorldPositionOffset, sampleSum(&bld, 1, matbuild.SamplerVirtualColor))
	opts := sm5
	opts.VirtualTexturing = true
	res, err := m.Translate(opts)
	require.Error(t, err)
	assert.Contains(t, diagnosticMessages(res),
		"Sampling a virtual texture is currently not supported when connected to the WorldPositionOffset material attribute.")
}

func TestTextureSample(t *testing.T) {
	var bld gmat.Builder
	s := bld.TextureSample(gmat.Sample{TextureIndex: 0, SamplerType: matbuild.SamplerColor})
	m := gmat.NewMaterial("sample", bld.Graph())
	m.AddTexture(matbuild.TextureInfo{Name: "Albedo", Type: matbuild.TypeTexture2D})
	m.Connect(matbuild.PropBaseColor, s)
	m.Connect(matbuild.PropMetallic, gmat.Output(s, gmat.OutputA))
	res := translate(t, m, sm5)

	base := res.Property(matbuild.PropBaseColor)
	metal := res.Property(matbuild.PropMetallic)
	assert.Equal(t, 1, strings.Count(metal.Definitions,
		"ProcessMaterialColorTextureLookup(Texture2DSample(Material.Texture2D_0,Material.Texture2D_0Sampler,Parameters.TexCoords[0].xy))"),
		"outputs of one sample node compile once")
	assert.True(t, strings.HasSuffix(base.Value, ".rgb"), base.Value)
	assert.True(t, strings.HasSuffix(metal.Value, ".a"), metal.Value)
	assert.Equal(t, strings.TrimSuffix(base.Value, ".rgb"), strings.TrimSuffix(metal.Value, ".a"))
	assert.Equal(t, 1, res.Stats.PixelTextureSamples)
	assert.Equal(t, 1, res.NumUserTexCoords)
	assert.Len(t, res.Uniforms.Textures2D, 1)
	assert.Contains(t, res.Source, "#define NUM_MATERIAL_TEXCOORDS 1\n")
	// Customized UVs default to the texture coordinate.
	assert.Contains(t, res.Source, "\tOutTexCoords[0] = Parameters.TexCoords[0].xy;\n")
}

func TestTextureCoordinateLimit(t *testing.T) {
	var bld gmat.Builder
	tc := bld.TextureCoordinate(3, matbuild.MirrorNone, 1, 1)
	m := gmat.NewMaterial("texcoords", bld.Graph())
	m.Connect(matbuild.PropBaseColor, bld.AppendVector(tc, bld.Constant(0)))
	res, err := m.Translate(matbuild.Options{FeatureLevel: matbuild.FeatureES2})
	require.Error(t, err)
	assert.Contains(t, diagnosticMessages(res),
		"(Node TextureCoordinate) Only 3 texture coordinate sets can be used by this feature level, currently using 4")

	res = translate(t, m, sm5)
	assert.Equal(t, 4, res.NumUserTexCoords)
	assert.Equal(t, "MaterialFloat3(Parameters.TexCoords[3].xy,0.0)", res.Property(matbuild.PropBaseColor).Value)
}

// Functions calling each other are detected when compiled.
func TestFunctionRecursion(t *testing.T) {
	var bld gmat.Builder
	fa := bld.NewFunction("A")
	fb := bld.NewFunction("B")
	callB := bld.FunctionCall(fb)
	bld.FunctionOutput(fa, "Out", callB)
	callA := bld.FunctionCall(fa)
	bld.FunctionOutput(fb, "Out", callA)
	require.NoError(t, bld.Err())

	m := gmat.NewMaterial("recursion", bld.Graph())
	m.Connect(matbuild.PropBaseColor, callA)
	res, err := m.Translate(sm5)
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, matbuild.StateFailed, res.State)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "Function A: Reentrant expression", res.Diagnostics[0].Message)
	assert.Equal(t, callA.Node, res.Diagnostics[0].Node)
}

func TestFunctionCall(t *testing.T) {
	var bld gmat.Builder
	f := bld.NewFunction("Scale")
	x := bld.FunctionInput(f, "X", matbuild.TypeFloat3, gmat.Input{})
	k := bld.FunctionInput(f, "K", matbuild.TypeFloat1, bld.Constant(2))
	bld.FunctionOutput(f, "Out", bld.Multiply(x, k))
	color := gmat.Output(bld.VertexColor(), gmat.OutputRGB)
	call1 := bld.FunctionCall(f, color)
	call2 := bld.FunctionCall(f, color)
	assert.Equal(t, 2, f.NumInputs())
	assert.Equal(t, 1, f.NumOutputs())

	m := gmat.NewMaterial("function", bld.Graph())
	m.Connect(matbuild.PropBaseColor, call1)
	m.Connect(matbuild.PropEmissiveColor, call2)
	res := translate(t, m, sm5)
	base := res.Property(matbuild.PropBaseColor)
	assert.Contains(t, base.Definitions, " = (Parameters.VertexColor.rgb * 2.0);\n")
	// Calls with the same arguments produce the same chunk.
	assert.Equal(t, base.Value, res.Property(matbuild.PropEmissiveColor).Value)
	assert.Equal(t, 1, strings.Count(base.Definitions, "(Parameters.VertexColor.rgb * 2.0)"))
	assert.True(t, res.Usage.VertexColor)
	assert.Contains(t, res.Defines, matbuild.Define{Name: "INTERPOLATE_VERTEX_COLOR", Value: "1"})
}

// Calls differing only in the output read share one function frame, so the
// function body compiles once.
func TestFunctionSharedOutputs(t *testing.T) {
	var bld gmat.Builder
	f := bld.NewFunction("Split")
	sample := bld.TextureSample(gmat.Sample{TextureIndex: 0, SamplerType: matbuild.SamplerColor})
	rgb := gmat.Output(sample, gmat.OutputRGB)
	bld.FunctionOutput(f, "A", rgb)
	bld.FunctionOutput(f, "B", bld.Multiply(rgb, bld.Constant(2)))
	call := bld.FunctionCall(f)
	assert.Equal(t, 2, f.NumOutputs())

	m := gmat.NewMaterial("shared", bld.Graph())
	m.AddTexture(matbuild.TextureInfo{Name: "Albedo", Type: matbuild.TypeTexture2D})
	m.Connect(matbuild.PropBaseColor, gmat.Output(call, 0))
	m.Connect(matbuild.PropEmissiveColor, gmat.Output(call, 1))
	res := translate(t, m, sm5)
	assert.Equal(t, 1, res.Stats.PixelTextureSamples)
	base := res.Property(matbuild.PropBaseColor)
	emissive := res.Property(matbuild.PropEmissiveColor)
	assert.NotEqual(t, base.Value, emissive.Value)
	assert.Contains(t, emissive.Definitions, base.Value+" * 2.0")
	assert.Equal(t, 1, strings.Count(res.Source, "Texture2DSample(Material.Texture2D_0"))
}

func TestFunctionCallErrors(t *testing.T) {
	var bld gmat.Builder
	f := bld.NewFunction("Scale")
	x := bld.FunctionInput(f, "X", matbuild.TypeFloat3, gmat.Input{})
	bld.FunctionOutput(f, "Out", x)
	one := bld.Constant(1)
	missingArg := bld.FunctionCall(f)
	extraArgs := bld.FunctionCall(f, one, one)

	m := gmat.NewMaterial("badcall", bld.Graph())
	m.Connect(matbuild.PropBaseColor, missingArg)
	m.Connect(matbuild.PropEmissiveColor, extraArgs)
	m.Connect(matbuild.PropSpecularColor, gmat.Output(missingArg, 1))
	res, err := m.Translate(sm5)
	require.Error(t, err)
	msgs := diagnosticMessages(res)
	assert.Contains(t, msgs, "Function Scale: Missing function input 0")
	assert.Contains(t, msgs, "Function Scale called with 2 arguments, has 1 inputs")
	assert.Contains(t, msgs, "Function Scale has no output 1")
}

func TestStaticSwitch(t *testing.T) {
	var bld gmat.Builder
	red := bld.Constant3(ms3.Vec{X: 1})
	blue := bld.Constant3(ms3.Vec{Z: 1})
	sw := bld.StaticSwitch(bld.StaticBoolParameter("UseRed", false), false, red, blue)
	m := gmat.NewMaterial("switch", bld.Graph())
	m.Connect(matbuild.PropBaseColor, sw)

	res := translate(t, m, sm5)
	assert.Equal(t, "MaterialFloat3(0.0,0.0,1.0)", res.Property(matbuild.PropBaseColor).Value)

	m.StaticSwitches = map[string]bool{"UseRed": true}
	res = translate(t, m, sm5)
	assert.Equal(t, "MaterialFloat3(1.0,0.0,0.0)", res.Property(matbuild.PropBaseColor).Value)

	// Translator options take precedence over the material.
	opts := sm5
	opts.StaticSwitches = map[string]bool{"UseRed": false}
	res = translate(t, m, opts)
	assert.Equal(t, "MaterialFloat3(0.0,0.0,1.0)", res.Property(matbuild.PropBaseColor).Value)
}

func TestStaticSwitchNotBool(t *testing.T) {
	var bld gmat.Builder
	sw := bld.StaticSwitch(bld.Constant(1), false, bld.Constant(1), bld.Constant(0))
	m := gmat.NewMaterial("badswitch", bld.Graph())
	m.Connect(matbuild.PropMetallic, sw)
	res, err := m.Translate(sm5)
	require.Error(t, err)
	assert.Contains(t, diagnosticMessages(res), "(Node StaticSwitch) Failed to cast float input to static bool type")
	assert.Equal(t, matbuild.KindType, res.Diagnostics[0].Kind)
}

func TestStaticComponentMask(t *testing.T) {
	var bld gmat.Builder
	v := bld.VectorParameter("Tint", ms3.Vec{X: 1, Y: 2, Z: 3}, 4)
	masked := bld.StaticComponentMaskParameter(v, "Channel", [4]bool{true, false, false, false})
	m := gmat.NewMaterial("mask", bld.Graph())
	m.Connect(matbuild.PropMetallic, masked)
	res := translate(t, m, sm5)
	require.Len(t, res.Uniforms.Scalars, 1)
	assert.Empty(t, res.Uniforms.Vectors, "the swizzle is evaluated by the preshader")

	m.StaticComponentMasks = map[string][4]bool{"Channel": {false, false, true, false}}
	res = translate(t, m, sm5)
	require.Len(t, res.Uniforms.Scalars, 1)
	assert.Equal(t, "Tint", res.Uniforms.Parameters[0].Name)
	assert.True(t, res.Uniforms.Parameters[0].Vector)
}

func TestPreviousFrameSwitch(t *testing.T) {
	var bld gmat.Builder
	sw := bld.PreviousFrameSwitch(bld.Constant3(ms3.Vec{X: 1}), bld.Constant3(ms3.Vec{X: 2}))
	m := gmat.NewMaterial("prevframe", bld.Graph())
	m.Connect(matbuild.PropWorldPositionOffset, sw)
	res := translate(t, m, sm5)
	assert.Equal(t, "MaterialFloat3(1.0,0.0,0.0)", res.Property(matbuild.PropWorldPositionOffset).Value)
	assert.Equal(t, "MaterialFloat3(2.0,0.0,0.0)", res.Property(matbuild.PropPrevWorldPositionOffset).Value)
	assert.True(t, res.Usage.WorldPositionOffset)
	assert.Contains(t, res.Defines, matbuild.Define{Name: "USES_WORLD_POSITION_OFFSET", Value: "1"})
}

func TestVertexInterpolator(t *testing.T) {
	var bld gmat.Builder
	vi := bld.VertexInterpolator(bld.WorldPosition(matbuild.WorldPositionDefault))
	m := gmat.NewMaterial("interpolator", bld.Graph())
	m.Connect(matbuild.PropBaseColor, vi)
	res := translate(t, m, sm5)

	assert.Equal(t, 3, res.NumCustomInterpolatorScalars)
	assert.Contains(t, res.Source, "MaterialFloat3 VertexInterpolator0(FMaterialVertexParameters Parameters)\n{\n return GetWorldPosition(Parameters);\n}\n")
	assert.Contains(t, res.Property(matbuild.PropBaseColor).Definitions,
		"MaterialFloat3(Parameters.TexCoords[VERTEX_INTERPOLATOR_0_TEXCOORDS_X].x, Parameters.TexCoords[VERTEX_INTERPOLATOR_0_TEXCOORDS_Y].y, Parameters.TexCoords[VERTEX_INTERPOLATOR_0_TEXCOORDS_Z].x)")
	assert.Contains(t, res.Source, "#define VERTEX_INTERPOLATOR_0_TEXCOORDS_Z\t1\n")
	assert.Contains(t, res.Source, "#define NUM_CUSTOM_VERTEX_INTERPOLATORS 2\n")
	assert.Contains(t, res.Source, "#define NUM_TEX_COORD_INTERPOLATORS 2\n")
	assert.Contains(t, res.Source, "\tOutTexCoords[VERTEX_INTERPOLATOR_0_TEXCOORDS_Z].x = VertexInterpolator0(Parameters).z;\n")
	assert.True(t, res.Usage.VertexPosition)
}

// Errors in the vertex input of an interpolator are held until the pixel
// shader reads the interpolator.
func TestVertexInterpolatorHeldErrors(t *testing.T) {
	build := func(read bool) *gmat.Material {
		var bld gmat.Builder
		vi := bld.VertexInterpolator(bld.TextureSample(gmat.Sample{TextureIndex: 5, SamplerType: matbuild.SamplerColor}))
		m := gmat.NewMaterial("held", bld.Graph())
		if read {
			m.Connect(matbuild.PropBaseColor, vi)
		} else {
			m.Connect(matbuild.PropBaseColor, bld.Constant3(ms3.Vec{X: 1}))
		}
		return m
	}

	res, err := build(false).Translate(sm5)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Diagnostics)
	assert.Zero(t, res.NumCustomInterpolatorScalars)

	res, err = build(true).Translate(sm5)
	require.Error(t, err)
	assert.False(t, res.Success)
	msgs := diagnosticMessages(res)
	assert.Contains(t, msgs, "(Node TextureSample) Texture index 5 out of range")
	assert.Contains(t, msgs, "(Node VertexInterpolator) Invalid custom interpolator index.")
}

func TestVertexInterpolatorBudget(t *testing.T) {
	var bld gmat.Builder
	wp := bld.WorldPosition(matbuild.WorldPositionDefault)
	var sum gmat.Input
	for i := 0; i < 6; i++ {
		vi := bld.VertexInterpolator(wp)
		if i == 0 {
			sum = vi
			continue
		}
		sum = bld.Add(sum, vi)
	}
	m := gmat.NewMaterial("budget", bld.Graph())
	m.Connect(matbuild.PropBaseColor, sum)
	res, err := m.Translate(sm5)
	require.Error(t, err)
	assert.Contains(t, diagnosticMessages(res),
		"Maximum number of custom vertex interpolators exceeded. (18 / 16 scalar values) (TexCoord: 0 scalars, Custom: 18 scalars)")
}

func TestCustomOutput(t *testing.T) {
	var bld gmat.Builder
	bld.CustomOutput(gmat.CustomOutputConfig{
		Name:        "GetBentNormal",
		Frequency:   matbuild.FreqPixel,
		NeedsDefine: true,
	}, bld.Constant3(ms3.Vec{Y: 1}))
	m := gmat.NewMaterial("custom", bld.Graph())
	res := translate(t, m, sm5)
	assert.Contains(t, res.Source, "#define NUM_MATERIAL_OUTPUTS_GETBENTNORMAL 1\n")
	assert.Contains(t, res.Source, "MaterialFloat3 GetBentNormal0(FMaterialPixelParameters Parameters)\n{\n return MaterialFloat3(0.0,1.0,0.0);\n}\n")
}

func TestCustomOutputErrors(t *testing.T) {
	var bld gmat.Builder
	cfg := gmat.CustomOutputConfig{Name: "GetBentNormal", Frequency: matbuild.FreqPixel}
	up := bld.Constant3(ms3.Vec{Y: 1})
	out := bld.CustomOutput(cfg, up)
	bld.CustomOutput(cfg, up)
	m := gmat.NewMaterial("custom2", bld.Graph())
	m.Connect(matbuild.PropBaseColor, out)
	res, err := m.Translate(sm5)
	require.Error(t, err)
	msgs := diagnosticMessages(res)
	assert.Contains(t, msgs, "The material can contain only one GetBentNormal node")
	assert.Contains(t, msgs, "(Node CustomOutput) A Custom Output node should not be attached to the BaseColor material property")
}

func TestNodeInputErrors(t *testing.T) {
	var bld gmat.Builder
	m := gmat.NewMaterial("inputs", bld.Graph())
	m.Connect(matbuild.PropMetallic, bld.Sine(gmat.Input{}))
	m.Connect(matbuild.PropRoughness, bld.Dot(bld.Constant(1), gmat.Input{}))
	m.Connect(matbuild.PropSpecular, bld.If(gmat.IfInputs{A: bld.Constant(1)}))
	res, err := m.Translate(sm5)
	require.Error(t, err)
	msgs := diagnosticMessages(res)
	assert.Contains(t, msgs, "(Node Sine) Missing Sine input")
	assert.Contains(t, msgs, "(Node Dot) Missing Dot input B")
	assert.Contains(t, msgs, "(Node If) Missing If input A > B")
	for _, d := range res.Diagnostics {
		assert.NotZero(t, d.Node)
	}
}

func TestBinaryDefaults(t *testing.T) {
	var bld gmat.Builder
	m := gmat.NewMaterial("defaults", bld.Graph())
	m.Connect(matbuild.PropMetallic, bld.Divide(gmat.Input{}, gmat.Input{}))
	m.Connect(matbuild.PropRoughness, bld.Lerp(gmat.Input{}, gmat.Input{}, gmat.Input{}))
	res := translate(t, m, sm5)
	assert.Equal(t, "(1.0 / 2.0)", res.Property(matbuild.PropMetallic).Value)
	assert.Empty(t, res.Uniforms.Scalars)
}

func TestBuilderErrors(t *testing.T) {
	bld := gmat.Builder{NoInputPanic: true}
	bld.Add(gmat.Input{Node: 99}, gmat.Input{})
	bld.ScalarParameter("", 1)
	bld.ComponentMask(bld.Constant(1), false, false, false, false)
	err := bld.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Add: arg[0] references node 99 not in graph")
	assert.Contains(t, err.Error(), "ScalarParameter: empty name")
	assert.Contains(t, err.Error(), "ComponentMask: no components selected")

	var strict gmat.Builder
	assert.Panics(t, func() { strict.Add(gmat.Input{Node: 1}, gmat.Input{}) })
	assert.Panics(t, func() { strict.VertexInterpolator(gmat.Input{}) })
	assert.NoError(t, strict.Err())
}

func TestMaterialConnectPanics(t *testing.T) {
	var bld gmat.Builder
	m := gmat.NewMaterial("connect", bld.Graph())
	assert.Panics(t, func() { m.Connect(matbuild.PropBaseColor, gmat.Input{Node: 3}) })
	assert.Panics(t, func() { m.Connect(matbuild.NumProperties, gmat.Input{}) })
	assert.Panics(t, func() { gmat.NewMaterial("nil", nil) })
}

// buildDetailed builds a material exercising most node kinds.
func buildDetailed() *gmat.Material {
	var bld gmat.Builder
	tint := bld.VectorParameter("Tint", ms3.Vec{X: 1, Y: 0.5, Z: 0.25}, 1)
	rough := bld.ScalarParameter("Roughness", 0.7)
	uv := bld.TextureCoordinate(0, matbuild.MirrorNone, 2, 2)
	albedo := bld.TextureSample(gmat.Sample{TextureIndex: 0, Coordinates: uv, SamplerType: matbuild.SamplerColor})
	normal := bld.TextureSample(gmat.Sample{TextureIndex: 1, Coordinates: uv, SamplerType: matbuild.SamplerNormal})

	f := bld.NewFunction("Tinted")
	in := bld.FunctionInput(f, "Color", matbuild.TypeFloat3, gmat.Input{})
	bld.FunctionOutput(f, "Out", bld.Multiply(in, bld.ComponentMask(tint, true, true, true, false)))

	pulse := bld.Sine(bld.Time(false, 0))
	m := gmat.NewMaterial("detailed", bld.Graph())
	m.AddTexture(matbuild.TextureInfo{Name: "Albedo", Type: matbuild.TypeTexture2D})
	m.AddTexture(matbuild.TextureInfo{Name: "Normal", Type: matbuild.TypeTexture2D})
	m.Connect(matbuild.PropBaseColor, bld.FunctionCall(f, albedo))
	m.Connect(matbuild.PropNormal, normal)
	m.Connect(matbuild.PropRoughness, bld.Clamp(bld.Multiply(rough, pulse), gmat.Input{}, gmat.Input{}))
	m.Connect(matbuild.PropEmissiveColor, bld.Lerp(gmat.Input{}, albedo, bld.Saturate(pulse)))
	m.Connect(matbuild.PropWorldPositionOffset, bld.ScalarMultiply(bld.VertexColor(), 0.1))
	return m
}

// Translating the same graph twice yields the same output.
func TestTranslateIdempotent(t *testing.T) {
	m := buildDetailed()
	first := translate(t, m, sm5)
	second := translate(t, m, sm5)
	assert.Equal(t, first.Source, second.Source)
	assert.Equal(t, first.Defines, second.Defines)
	assert.Equal(t, first.Uniforms.Parameters, second.Uniforms.Parameters)
	require.Equal(t, len(first.Uniforms.Vectors), len(second.Uniforms.Vectors))
	for i := range first.Uniforms.Vectors {
		assert.Equal(t, first.Uniforms.Vectors[i].String(), second.Uniforms.Vectors[i].String())
	}
	assert.Equal(t, first.Uniforms.ScalarPrograms, second.Uniforms.ScalarPrograms)
	assert.Equal(t, first.Uniforms.VectorPrograms, second.Uniforms.VectorPrograms)
}

func TestTranslateParallel(t *testing.T) {
	m := buildDetailed()
	want := translate(t, m, sm5).Source
	var wg sync.WaitGroup
	sources := make([]string, 8)
	errs := make([]error, len(sources))
	for i := range sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.Translate(sm5)
			errs[i] = err
			if err == nil {
				sources[i] = res.Source
			}
		}(i)
	}
	wg.Wait()
	for i := range sources {
		require.NoError(t, errs[i])
		assert.Equal(t, want, sources[i])
	}
}

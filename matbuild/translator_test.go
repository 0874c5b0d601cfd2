package matbuild_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gmat/matbuild"
	"github.com/soypat/gmat/mateval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGraph is a graph of expressions indexed by NodeID-1.
type testGraph []matbuild.Expression

func (g testGraph) Node(id matbuild.NodeID) matbuild.Expression {
	if id == 0 || int(id) > len(g) {
		return nil
	}
	return g[id-1]
}

// exprFunc is an expression compiled by a function.
type exprFunc struct {
	kind   string
	inputs []matbuild.Input
	fn     func(ctx matbuild.Context) matbuild.Code
}

func (e *exprFunc) Kind() string { return e.kind }
func (e *exprFunc) AppendInputs(dst []matbuild.Input) []matbuild.Input {
	return append(dst, e.inputs...)
}
func (e *exprFunc) Compile(ctx matbuild.Context, _ int) matbuild.Code { return e.fn(ctx) }

func newMaterial(nodes ...matbuild.Expression) *matbuild.Material {
	return &matbuild.Material{
		Name:                       "test",
		Graph:                      testGraph(nodes),
		ShadingModels:              matbuild.ShadingModelSet(matbuild.ShadingDefaultLit),
		OpacityMaskClipValue:       1. / 3,
		TranslucencyLightingFactor: 1,
	}
}

var sm5 = matbuild.Options{FeatureLevel: matbuild.FeatureSM5}

func TestTranslateConstantProperty(t *testing.T) {
	mat := newMaterial(&exprFunc{kind: "Color", fn: func(ctx matbuild.Context) matbuild.Code {
		return ctx.Constant3(ms3.Vec{X: 0.5, Y: 0.25, Z: 1})
	}})
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "MaterialFloat3(0.5,0.25,1.0)", res.Property(matbuild.PropBaseColor).Value)
	assert.Empty(t, res.Property(matbuild.PropBaseColor).Definitions)
	assert.Contains(t, res.Source, "\tPixelMaterialInputs.BaseColor = MaterialFloat3(0.5,0.25,1.0);\n")
	assert.Empty(t, res.Uniforms.Scalars)
	assert.Empty(t, res.Uniforms.Vectors)
	assert.Equal(t, []matbuild.State{
		matbuild.StateInit,
		matbuild.StateCompileVertexInterpolators,
		matbuild.StateCompileNormal,
		matbuild.StateCompileRemainingProperties,
		matbuild.StateCompileCustomOutputs,
		matbuild.StateFinalizeTemplate,
		matbuild.StateSuccess,
	}, res.Trace)
	assert.Equal(t, matbuild.StateSuccess, res.State)
	assert.Contains(t, res.Defines, matbuild.Define{Name: "MATERIAL_SHADINGMODEL_DEFAULT_LIT", Value: "1"})
	assert.Contains(t, res.Defines, matbuild.Define{Name: "MATERIAL_SINGLE_SHADINGMODEL", Value: "1"})
	// Unconnected roughness defaults to 0.5.
	assert.False(t, res.Usage.FullyRough)
	assert.False(t, res.Usage.EmissiveColor)
}

func TestTranslatorSingleUse(t *testing.T) {
	tr := matbuild.NewTranslator(newMaterial(), sm5)
	_, err := tr.Translate()
	require.NoError(t, err)
	res, err := tr.Translate()
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestTranslateNoGraph(t *testing.T) {
	mat := &matbuild.Material{Name: "empty"}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, matbuild.StateFailed, res.State)
	assert.Contains(t, err.Error(), "has no graph")
}

func TestForceCastReplicate(t *testing.T) {
	replicated := &exprFunc{kind: "Replicate", fn: func(ctx matbuild.Context) matbuild.Code {
		return ctx.ForceCast(ctx.Constant(0.5), matbuild.TypeFloat3, matbuild.ForceCastExactMatch|matbuild.ForceCastReplicateValue)
	}}
	padded := &exprFunc{kind: "Pad", fn: func(ctx matbuild.Context) matbuild.Code {
		return ctx.ForceCast(ctx.Constant(0.5), matbuild.TypeFloat3, matbuild.ForceCastExactMatch)
	}}
	mat := newMaterial(replicated, padded)
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 1}
	mat.Inputs[matbuild.PropEmissiveColor] = matbuild.Input{Node: 2}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	assert.Equal(t, "MaterialFloat3(0.5,0.5,0.5)", res.Property(matbuild.PropBaseColor).Value)
	assert.Equal(t, "MaterialFloat3(0.5,0,0)", res.Property(matbuild.PropEmissiveColor).Value)
	assert.True(t, res.Usage.EmissiveColor)
}

func TestValidCast(t *testing.T) {
	var narrow, widen, identity, scalar string
	mat := newMaterial(&exprFunc{kind: "Casts", fn: func(ctx matbuild.Context) matbuild.Code {
		v4 := ctx.AddInlinedCodeChunk(matbuild.TypeFloat4, "Parameters.V4")
		narrow = ctx.ParameterCode(ctx.ValidCast(v4, matbuild.TypeFloat2))
		f1 := ctx.AddInlinedCodeChunk(matbuild.TypeFloat1, "Parameters.F")
		widen = ctx.ParameterCode(ctx.ValidCast(f1, matbuild.TypeFloat3))
		v3 := ctx.AddInlinedCodeChunk(matbuild.TypeFloat3, "Parameters.V3")
		identity = ctx.ParameterCode(ctx.ValidCast(v3, matbuild.TypeFloat3))
		// Scalars of unknown width are compatible with every vector.
		scalar = ctx.ParameterCode(ctx.ValidCast(ctx.Constant(2), matbuild.TypeFloat4))
		return v3
	}})
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	assert.Equal(t, "Parameters.V4.rg", narrow)
	assert.Equal(t, "MaterialFloat3(Parameters.F,Parameters.F,Parameters.F)", widen)
	assert.Equal(t, "Parameters.V3", identity)
	assert.Equal(t, "2.0", scalar)
	assert.Equal(t, "Parameters.V3", res.Property(matbuild.PropBaseColor).Value)
}

func TestValidCastError(t *testing.T) {
	mat := newMaterial(&exprFunc{kind: "BadCast", fn: func(ctx matbuild.Context) matbuild.Code {
		v2 := ctx.AddInlinedCodeChunk(matbuild.TypeFloat2, "Parameters.V2")
		return ctx.ValidCast(v2, matbuild.TypeFloat3)
	}})
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.Error(t, err)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, "(Node BadCast) Cannot cast from float2 to float3.", d.Message)
	assert.Equal(t, matbuild.KindType, d.Kind)
	assert.Equal(t, matbuild.NodeID(1), d.Node)
	assert.Equal(t, matbuild.StateFailed, res.State)
	// Failed properties still assemble with their fallback value.
	assert.Equal(t, "0", res.Property(matbuild.PropBaseColor).Value)
}

func TestChunkDedup(t *testing.T) {
	var first, second, param1, param2 matbuild.Code
	var sym string
	mat := newMaterial(&exprFunc{kind: "Dedup", fn: func(ctx matbuild.Context) matbuild.Code {
		x := ctx.AddInlinedCodeChunk(matbuild.TypeFloat3, "Parameters.X")
		first = ctx.Add(x, ctx.Constant(1))
		second = ctx.Add(x, ctx.Constant(1))
		sym = ctx.ParameterCode(first)
		param1 = ctx.ScalarParameter("P", 1)
		param2 = ctx.ScalarParameter("P", 1)
		return ctx.Mul(first, param1)
	}})
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, param1, param2)
	assert.True(t, strings.HasPrefix(sym, "Local"), sym)
	defs := res.Property(matbuild.PropBaseColor).Definitions
	assert.Equal(t, 1, strings.Count(defs, "(Parameters.X + 1.0)"))
	assert.Contains(t, defs, "\tMaterialFloat3 "+sym+" = (Parameters.X + 1.0);\n")
	require.Len(t, res.Uniforms.Scalars, 1)
	assert.Equal(t, "P", res.Uniforms.Scalars[0].Name)
}

func TestConstantFolding(t *testing.T) {
	var sum string
	mat := newMaterial(&exprFunc{kind: "Fold", fn: func(ctx matbuild.Context) matbuild.Code {
		c := ctx.Add(ctx.Constant(1), ctx.Constant(2))
		sum = ctx.ParameterCode(c)
		return c
	}})
	mat.Inputs[matbuild.PropRoughness] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	assert.Equal(t, "(1.0 + 2.0)", sum)
	assert.Empty(t, res.Uniforms.Scalars, "constant expressions need no uniform slot")
	assert.False(t, res.Usage.FullyRough)
}

func TestFullyRough(t *testing.T) {
	mat := newMaterial(&exprFunc{kind: "One", fn: func(ctx matbuild.Context) matbuild.Code {
		return ctx.Sub(ctx.Constant(2), ctx.Constant(1))
	}})
	mat.Inputs[matbuild.PropRoughness] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	assert.True(t, res.Usage.FullyRough)
	assert.Contains(t, res.Defines, matbuild.Define{Name: "MATERIAL_FULLY_ROUGH", Value: "1"})
}

func TestCycleDetection(t *testing.T) {
	a := &exprFunc{kind: "A", inputs: []matbuild.Input{{Node: 2}}}
	b := &exprFunc{kind: "B", inputs: []matbuild.Input{{Node: 1}}}
	a.fn = func(ctx matbuild.Context) matbuild.Code { return ctx.Compile(matbuild.Input{Node: 2}) }
	b.fn = func(ctx matbuild.Context) matbuild.Code { return ctx.Compile(matbuild.Input{Node: 1}) }
	mat := newMaterial(a, b)
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.Error(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "(Node B) Reentrant expression", res.Diagnostics[0].Message)
	assert.Equal(t, matbuild.NodeID(2), res.Diagnostics[0].Node)
	assert.False(t, res.Success)
}

func TestMemoization(t *testing.T) {
	calls := 0
	shared := &exprFunc{kind: "Shared", fn: func(ctx matbuild.Context) matbuild.Code {
		calls++
		return ctx.AddCodeChunk(matbuild.TypeFloat3, "SharedValue(Parameters)")
	}}
	mat := newMaterial(shared)
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 1}
	mat.Inputs[matbuild.PropEmissiveColor] = matbuild.Input{Node: 1}
	_, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMissingNode(t *testing.T) {
	mat := newMaterial()
	mat.Inputs[matbuild.PropBaseColor] = matbuild.Input{Node: 7}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.Error(t, err)
	assert.Equal(t, "Missing node 7", res.Diagnostics[0].Message)
	assert.Equal(t, matbuild.KindStructural, res.Diagnostics[0].Kind)
}

func TestMaterialValidation(t *testing.T) {
	mat := newMaterial()
	mat.Domain = matbuild.DomainLightFunction
	mat.BlendMode = matbuild.BlendTranslucent
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.Error(t, err)
	var msgs []string
	for _, d := range res.Diagnostics {
		assert.Equal(t, matbuild.KindDomain, d.Kind)
		msgs = append(msgs, d.Message)
	}
	assert.Contains(t, msgs, "Light function materials must be opaque.")
	assert.Contains(t, msgs, "Light function materials must use unlit.")
	// Both diagnostics are joined into the returned error.
	assert.Contains(t, err.Error(), "must be opaque")
	assert.Contains(t, err.Error(), "must use unlit")
}

func TestLightFunctionEmissive(t *testing.T) {
	mat := newMaterial(&exprFunc{kind: "Emissive", fn: func(ctx matbuild.Context) matbuild.Code {
		return ctx.Constant3(ms3.Vec{X: 1, Y: 2, Z: 3})
	}})
	mat.Domain = matbuild.DomainLightFunction
	mat.ShadingModels = matbuild.ShadingModelSet(matbuild.ShadingUnlit)
	mat.Inputs[matbuild.PropEmissiveColor] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	assert.Equal(t, "MaterialFloat3(1.0,2.0,3.0)", res.Property(matbuild.PropEmissiveColorCS).Value)
	assert.Contains(t, res.Source, "\treturn MaterialFloat3(1.0,2.0,3.0);")
	assert.Contains(t, res.Defines, matbuild.Define{Name: "MATERIAL_SHADINGMODEL_UNLIT", Value: "1"})
}

func TestTranslatorLogging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts := sm5
	opts.Logger = log
	_, err := matbuild.NewTranslator(newMaterial(), opts).Translate()
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "translator phase")
	assert.Contains(t, out, "state=COMPILE_NORMAL")
	assert.Contains(t, out, "material=test")
	assert.Contains(t, out, "translated material")
}

func TestVTStack(t *testing.T) {
	var s matbuild.VTStack
	for i := 0; i < matbuild.MaxVTLayers; i++ {
		require.False(t, s.AreLayersFull())
		assert.Equal(t, i, s.AddLayer())
	}
	assert.True(t, s.AreLayersFull())
	assert.Equal(t, 2, s.NumPageTables())
	assert.Panics(t, func() { s.AddLayer() })

	var p matbuild.VTStack
	assert.Equal(t, 5, p.SetLayer(5, 3))
	assert.Equal(t, 6, p.NumLayers)
	assert.Equal(t, 5, p.FindLayer(3))
	assert.Equal(t, -1, p.FindLayer(4))
	assert.Panics(t, func() { p.SetLayer(matbuild.MaxVTLayers, 0) })
}

func TestPreshaderEvaluate(t *testing.T) {
	mat := newMaterial(&exprFunc{kind: "Scaled", fn: func(ctx matbuild.Context) matbuild.Code {
		return ctx.Mul(ctx.ScalarParameter("Scale", 2), ctx.Constant(3))
	}})
	mat.Inputs[matbuild.PropMetallic] = matbuild.Input{Node: 1}
	res, err := matbuild.NewTranslator(mat, sm5).Translate()
	require.NoError(t, err)
	set := &res.Uniforms
	require.Len(t, set.Scalars, 1)
	require.Len(t, set.Parameters, 1)
	assert.Equal(t, "Scale", set.Parameters[0].Name)
	assert.Equal(t, "Material.ScalarExpressions[0].x", res.Property(matbuild.PropMetallic).Value)

	var vm mateval.VM
	scalars, _, err := set.Evaluate(&vm, set.DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, float32(6), scalars[0])
	scalars, _, err = set.Evaluate(&vm, set.ParameterValues(matbuild.ParameterValues{"Scale": mateval.Scalar(0.5)}))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), scalars[0])
	assert.Len(t, scalars, 4, "scalars are packed four per vector")

	_, _, err = set.Evaluate(&vm, nil)
	assert.Error(t, err)
}

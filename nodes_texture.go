package gmat

import (
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gmat/matbuild"
)

// rgbaMasks are the masks of the RGB, R, G, B and A outputs of color nodes.
// Output 5 is the whole RGBA value.
var rgbaMasks = [5][4]bool{
	{true, true, true, false},
	{true, false, false, false},
	{false, true, false, false},
	{false, false, true, false},
	{false, false, false, true},
}

func rgbaOutputMask(output int) ([4]bool, bool) {
	if output < 0 || output >= len(rgbaMasks) {
		return [4]bool{}, false
	}
	return rgbaMasks[output], true
}

// Outputs of nodes producing colors.
const (
	OutputRGB = iota
	OutputR
	OutputG
	OutputB
	OutputA
	OutputRGBA
)

type texCoord struct {
	index            int
	mirror           matbuild.TexCoordMirror
	uTiling, vTiling float32
}

// TextureCoordinate creates a node reading the texture coordinate set
// index scaled by the tiling factors.
func (bld *Builder) TextureCoordinate(index int, mirror matbuild.TexCoordMirror, uTiling, vTiling float32) Input {
	if index < 0 {
		bld.inputErrorf("TextureCoordinate: negative index %d", index)
	}
	return bld.add(&texCoord{index: index, mirror: mirror, uTiling: uTiling, vTiling: vTiling})
}

func (tc *texCoord) Kind() string                     { return "TextureCoordinate" }
func (tc *texCoord) AppendInputs(dst []Input) []Input { return dst }
func (tc *texCoord) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	code := ctx.TextureCoordinate(tc.index, tc.mirror)
	if tc.uTiling == 1 && tc.vTiling == 1 {
		return code
	}
	return ctx.Mul(code, ctx.Constant2(ms2.Vec{X: tc.uTiling, Y: tc.vTiling}))
}

type textureObject struct {
	name        string // Parameter name, empty for a fixed texture.
	index       int
	samplerType matbuild.SamplerType
}

// TextureObject creates a node referencing the material texture at index.
func (bld *Builder) TextureObject(index int, st matbuild.SamplerType) Input {
	if index < 0 {
		bld.inputErrorf("TextureObject: negative texture index %d", index)
	}
	return bld.add(&textureObject{index: index, samplerType: st})
}

// TextureObjectParameter creates a node referencing a texture the runtime
// may override by name. The material texture at index is the default.
func (bld *Builder) TextureObjectParameter(name string, index int, st matbuild.SamplerType) Input {
	if name == "" {
		bld.inputErrorf("TextureObjectParameter: empty name")
	} else if index < 0 {
		bld.inputErrorf("TextureObjectParameter: negative texture index %d", index)
	}
	return bld.add(&textureObject{name: name, index: index, samplerType: st})
}

func (o *textureObject) Kind() string {
	if o.name != "" {
		return "TextureObjectParameter"
	}
	return "TextureObject"
}

func (o *textureObject) AppendInputs(dst []Input) []Input { return dst }
func (o *textureObject) UsesVirtualTexture() bool         { return o.samplerType.IsVirtual() }

func (o *textureObject) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	if o.name != "" {
		return ctx.TextureParameter(o.name, o.index, o.samplerType, matbuild.SamplerSourceFromTextureAsset)
	}
	// The sample reading the object checks its own mip requirements.
	return ctx.Texture(o.index, o.samplerType, matbuild.SamplerSourceFromTextureAsset, matbuild.MipLevel)
}

// Sample describes a texture sample node.
type Sample struct {
	// Texture is a texture object node. When unconnected TextureIndex is sampled.
	Texture      Input
	TextureIndex int
	// Coordinates default to texture coordinate set ConstCoordinate.
	Coordinates     Input
	ConstCoordinate int
	matbuild.SamplerType
	matbuild.SamplerSource
	MipMode matbuild.MipValueMode
	// MipValue is the mip level, the mip bias or the X derivative depending
	// on MipMode. ConstMipValue is used when it is unconnected.
	MipValue      Input
	ConstMipValue float32
	// MipValueDDY is the Y derivative for MipDerivative.
	MipValueDDY          Input
	AutomaticViewMipBias bool
}

type textureSample struct {
	s Sample
}

// TextureSample creates a node sampling a texture. Outputs are selected
// with OutputRGB through OutputRGBA.
func (bld *Builder) TextureSample(s Sample) Input {
	bld.checkInputs("TextureSample", s.Texture, s.Coordinates, s.MipValue, s.MipValueDDY)
	if !s.Texture.IsConnected() && s.TextureIndex < 0 {
		bld.inputErrorf("TextureSample: negative texture index %d", s.TextureIndex)
	}
	return bld.add(&textureSample{s: s})
}

func (ts *textureSample) Kind() string { return "TextureSample" }
func (ts *textureSample) AppendInputs(dst []Input) []Input {
	return append(dst, ts.s.Texture, ts.s.Coordinates, ts.s.MipValue, ts.s.MipValueDDY)
}
func (ts *textureSample) CanIgnoreOutputIndex() bool            { return true }
func (ts *textureSample) OutputMask(output int) ([4]bool, bool) { return rgbaOutputMask(output) }
func (ts *textureSample) UsesVirtualTexture() bool              { return ts.s.SamplerType.IsVirtual() }

func (ts *textureSample) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	s := ts.s
	var tex matbuild.Code
	if s.Texture.IsConnected() {
		tex = ctx.Compile(s.Texture)
	} else {
		tex = ctx.Texture(s.TextureIndex, s.SamplerType, s.SamplerSource, s.MipMode)
	}
	if !tex.IsValid() {
		return tex
	}
	return ctx.TextureSample(sampleParams(ctx, s, tex))
}

// sampleParams compiles the coordinate and mip operands of s.
func sampleParams(ctx matbuild.Context, s Sample, tex matbuild.Code) matbuild.SampleParams {
	p := matbuild.SampleParams{
		Texture:              tex,
		SamplerType:          s.SamplerType,
		SamplerSource:        s.SamplerSource,
		MipMode:              s.MipMode,
		AutomaticViewMipBias: s.AutomaticViewMipBias,
	}
	if s.Coordinates.IsConnected() {
		p.Coordinate = ctx.Compile(s.Coordinates)
	} else {
		p.Coordinate = ctx.TextureCoordinate(s.ConstCoordinate, matbuild.MirrorNone)
	}
	switch s.MipMode {
	case matbuild.MipLevel, matbuild.MipBias:
		p.MipValue0 = compileOr(ctx, s.MipValue, s.ConstMipValue)
	case matbuild.MipDerivative:
		p.MipValue0 = ctx.Compile(s.MipValue)
		p.MipValue1 = ctx.Compile(s.MipValueDDY)
	}
	return p
}

// VirtualSample describes a sample of a runtime virtual texture, a texture
// whose layers are laid out by the renderer.
type VirtualSample struct {
	Sample
	// Layer is the fixed layer of the texture in its stack and PageTableLayer
	// the layer of the page table it reads.
	Layer          int
	PageTableLayer int
}

type virtualTextureSample struct {
	s VirtualSample
}

// VirtualTextureSample creates a node sampling a runtime virtual texture.
// The sampler type must be a virtual one.
func (bld *Builder) VirtualTextureSample(s VirtualSample) Input {
	bld.checkInputs("VirtualTextureSample", s.Coordinates, s.MipValue, s.MipValueDDY)
	switch {
	case s.Texture.IsConnected():
		bld.inputErrorf("VirtualTextureSample: texture object input unsupported")
	case s.TextureIndex < 0:
		bld.inputErrorf("VirtualTextureSample: negative texture index %d", s.TextureIndex)
	case !s.SamplerType.IsVirtual():
		bld.inputErrorf("VirtualTextureSample: sampler type %d is not virtual", s.SamplerType)
	case s.Layer < 0 || s.Layer >= matbuild.MaxVTLayers:
		bld.inputErrorf("VirtualTextureSample: layer %d out of range", s.Layer)
	}
	return bld.add(&virtualTextureSample{s: s})
}

func (vs *virtualTextureSample) Kind() string { return "RuntimeVirtualTextureSample" }
func (vs *virtualTextureSample) AppendInputs(dst []Input) []Input {
	return append(dst, vs.s.Coordinates, vs.s.MipValue, vs.s.MipValueDDY)
}
func (vs *virtualTextureSample) CanIgnoreOutputIndex() bool            { return true }
func (vs *virtualTextureSample) OutputMask(output int) ([4]bool, bool) { return rgbaOutputMask(output) }
func (vs *virtualTextureSample) UsesVirtualTexture() bool              { return true }

func (vs *virtualTextureSample) Compile(ctx matbuild.Context, _ int) matbuild.Code {
	s := vs.s
	if !ctx.VirtualTexturing() {
		return ctx.Error(matbuild.KindDomain, "Runtime virtual texture sampling requires virtual texturing")
	}
	tex := ctx.VirtualTexture(s.TextureIndex, s.Layer, s.PageTableLayer, s.SamplerType)
	if !tex.IsValid() {
		return tex
	}
	return ctx.TextureSample(sampleParams(ctx, s.Sample, tex))
}

package matbuild

import "fmt"

// errorUnlessFeatureLevelSupported reports a domain error and returns false
// when the target feature level is below required.
func (ctx Context) errorUnlessFeatureLevelSupported(required FeatureLevel) bool {
	if fl := ctx.t.opts.FeatureLevel; fl < required {
		ctx.domainErrorf("Node not supported in feature level %s. %s required.", fl, required)
		return false
	}
	return true
}

// textureType returns the shader type of the texture asset at index.
func (ctx Context) textureType(index int) (ValueType, bool) {
	mat := ctx.t.mat
	if index < 0 || index >= len(mat.Textures) {
		ctx.Errorf("Texture index %d out of range", index)
		return TypeUnknown, false
	}
	typ := mat.Textures[index].Type
	if typ&TypeTexture == 0 || typ.NumComponents() != 0 {
		ctx.typeErrorf("Sampling unknown texture type: %s", typ)
		return TypeUnknown, false
	}
	if typ == TypeTextureVirtual && !ctx.t.opts.VirtualTexturing {
		typ = TypeTexture2D
	}
	return typ, true
}

// checkVertexTexture reports an error when textures cannot be read in the
// current stage at the target feature level.
func (ctx Context) checkVertexTexture(absoluteMip bool) bool {
	fl := ctx.t.opts.FeatureLevel
	switch {
	case fl == FeatureES2 && ctx.freq == FreqVertex && !absoluteMip:
		ctx.domainErrorf("Sampling from vertex textures requires an absolute mip level on feature level ES2")
		return false
	case ctx.freq != FreqPixel && ctx.freq != FreqCompute:
		return ctx.errorUnlessFeatureLevelSupported(FeatureES3_1)
	}
	return true
}

// Texture returns a reference to the texture asset at index of the material.
// The sampler type must agree with whether the texture is virtual.
func (ctx Context) Texture(index int, st SamplerType, source SamplerSource, mode MipValueMode) Code {
	if !ctx.checkVertexTexture(mode == MipLevel) {
		return Code{}
	}
	typ, ok := ctx.textureType(index)
	if !ok {
		return Code{}
	}
	if (typ == TypeTextureVirtual) != st.IsVirtual() && (typ == TypeTextureVirtual || ctx.t.opts.VirtualTexturing) {
		return ctx.typeErrorf("Sampler type mismatch for texture %q: virtual textures need a virtual sampler type",
			ctx.t.mat.Textures[index].Name)
	}
	kind := UniformTexture
	if typ == TypeTextureExternal {
		kind = UniformExternalTexture
	}
	return ctx.addUniformExpression(newTexture(kind, "", index, st), typ, 0, "")
}

// TextureParameter returns a reference to a texture the runtime may override
// by name. index is the texture asset used by default.
func (ctx Context) TextureParameter(name string, index int, st SamplerType, source SamplerSource) Code {
	if ctx.freq != FreqPixel && ctx.freq != FreqCompute && !ctx.errorUnlessFeatureLevelSupported(FeatureES3_1) {
		return Code{}
	}
	typ, ok := ctx.textureType(index)
	if !ok {
		return Code{}
	}
	kind := UniformTextureParameter
	if typ == TypeTextureExternal {
		kind = UniformExternalTexture
	}
	return ctx.addUniformExpression(newTexture(kind, name, index, st), typ, 0, "")
}

// VirtualTexture returns a reference to the runtime virtual texture at
// index whose layer layout is fixed. It returns the zero Code when virtual
// texturing is disabled.
func (ctx Context) VirtualTexture(index, layer, pageTableLayer int, st SamplerType) Code {
	if !ctx.t.opts.VirtualTexturing {
		return Code{}
	}
	if ctx.freq != FreqPixel && ctx.freq != FreqCompute && !ctx.errorUnlessFeatureLevelSupported(FeatureES3_1) {
		return Code{}
	}
	u := newTexture(UniformTexture, "", index, st)
	u.LayerIndex = layer
	u.PageTableLayerIndex = pageTableLayer
	return ctx.addUniformExpression(u, TypeTextureVirtual, 0, "")
}

// SampleParams are the operands of [Context.TextureSample].
type SampleParams struct {
	// Texture is a code of texture type.
	Texture    Code
	Coordinate Code
	SamplerType
	MipMode MipValueMode
	// MipValue0 is the mip level, the mip bias or the X derivative depending on MipMode.
	MipValue0 Code
	// MipValue1 is the Y derivative for MipDerivative.
	MipValue1 Code
	SamplerSource
	// AutomaticViewMipBias applies the view mip bias to the sample.
	AutomaticViewMipBias bool
}

// TextureSample samples a texture at a coordinate and returns a four component value.
func (ctx Context) TextureSample(p SampleParams) Code {
	t := ctx.t
	fl := t.opts.FeatureLevel
	if !p.Texture.IsValid() || !p.Coordinate.IsValid() {
		return Code{}
	}
	pixel := ctx.freq == FreqPixel
	switch {
	case fl == FeatureES2 && ctx.freq == FreqVertex && p.MipMode != MipLevel:
		return ctx.domainErrorf("Sampling from vertex textures requires an absolute mip level on feature level ES2!")
	case !pixel && !ctx.errorUnlessFeatureLevelSupported(FeatureES3_1):
		return Code{}
	}
	texType := ctx.Type(p.Texture)
	if texType&TypeTexture == 0 {
		return ctx.typeErrorf("Sampling unknown texture type: %s", texType)
	}
	if !pixel && p.MipMode == MipBias {
		return ctx.domainErrorf("MipBias is only supported in the pixel shader")
	}
	domain := t.mat.Domain
	virtual := texType == TypeTextureVirtual
	if virtual && domain != DomainSurface && domain != DomainDeferredDecal {
		return ctx.domainErrorf("Sampling a virtual texture is currently only supported inside surface and decal shaders.")
	}
	if p.MipMode == MipDerivative {
		switch {
		case !p.MipValue0.IsValid():
			return ctx.Errorf("Missing DDX(UVs) parameter")
		case !p.MipValue1.IsValid():
			return ctx.Errorf("Missing DDY(UVs) parameter")
		case !ctx.Type(p.MipValue0).IsFloat():
			return ctx.typeErrorf("Invalid DDX(UVs) parameter")
		case !ctx.Type(p.MipValue1).IsFloat():
			return ctx.typeErrorf("Invalid DDY(UVs) parameter")
		}
	} else if p.MipMode != MipNone && p.MipValue0.IsValid() && !ctx.Type(p.MipValue0).IsFloat() {
		return ctx.typeErrorf("Invalid mip map parameter")
	}

	mode, mip0, mip1 := p.MipMode, p.MipValue0, p.MipValue1
	autoBias := p.AutomaticViewMipBias
	if !pixel {
		// Other stages have no derivatives to pick a mip level from.
		mode, autoBias = MipLevel, false
		if !mip0.IsValid() {
			mip0 = ctx.Constant(0)
		}
	}
	if (domain != DomainSurface && domain != DomainDeferredDecal) || fl < FeatureSM5 ||
		(texType != TypeTexture2D && texType != TypeTextureVirtual) {
		autoBias = false
	}

	var sampler string
	manualBias := autoBias
	if !virtual {
		switch p.SamplerSource {
		case SamplerSourceFromTextureAsset:
			sampler = "%[2]sSampler"
		case SamplerSourceSharedWrap:
			if autoBias {
				sampler = "GetMaterialSharedSampler(%[2]sSampler,View.MaterialTextureBilinearWrapedSampler)"
			} else {
				sampler = "GetMaterialSharedSampler(%[2]sSampler,Material.Wrap_WorldGroupSettings)"
			}
			manualBias = false
		case SamplerSourceSharedClamp:
			if autoBias {
				sampler = "GetMaterialSharedSampler(%[2]sSampler,View.MaterialTextureBilinearClampedSampler)"
			} else {
				sampler = "GetMaterialSharedSampler(%[2]sSampler,Material.Clamp_WorldGroupSettings)"
			}
			manualBias = false
		}
	}

	sampleName := "Texture2DSample"
	uvType := TypeFloat2
	switch texType {
	case TypeTextureCube:
		sampleName, uvType = "TextureCubeSample", TypeFloat3
	case TypeTexture2DArray:
		sampleName, uvType = "Texture2DArraySample", TypeFloat3
	case TypeVolumeTexture:
		sampleName, uvType = "Texture3DSample", TypeFloat3
	case TypeTextureExternal:
		sampleName = "TextureExternalSample"
	case TypeTextureVirtual:
		sampleName = "TextureVirtualSample"
	}

	if manualBias {
		switch {
		case mode == MipDerivative:
			mul := ctx.AddInlinedCodeChunk(TypeFloat, "View.MaterialTextureDerivativeMultiply")
			mip0, mip1 = ctx.Mul(mip0, mul), ctx.Mul(mip1, mul)
		case mip0.IsValid() && mode != MipNone:
			mip0 = ctx.Add(mip0, ctx.AddInlinedCodeChunk(TypeFloat, "View.MaterialTextureMipBias"))
		default:
			mip0 = ctx.AddInlinedCodeChunk(TypeFloat1, "View.MaterialTextureMipBias")
		}
		if mode == MipNone {
			mode = MipBias
		}
	}

	mip0Code, mip1Code := "0.0f", "0.0f"
	switch {
	case (mode == MipBias || mode == MipLevel) && mip0.IsValid():
		mip0Code = ctx.CoerceParameter(mip0, TypeFloat1)
	case mode == MipDerivative:
		mip0Code = ctx.CoerceParameter(mip0, uvType)
		mip1Code = ctx.CoerceParameter(mip1, uvType)
	}

	var texName string
	vtIndex := -1
	var vtUniform *Uniform
	switch {
	case texType == TypeTextureCube || texType == TypeTexture2DArray || texType == TypeVolumeTexture || texType == TypeTextureExternal:
		texName = ctx.CoerceParameter(p.Texture, texType)
	case virtual:
		// Coercing registers the texture in its slot table.
		ctx.CoerceParameter(p.Texture, TypeTextureVirtual)
		vtUniform = ctx.uniform(p.Texture)
		if vtUniform == nil {
			return ctx.Errorf("Unable to find VT uniform expression.")
		} else if !vtUniform.IsTexture() {
			return ctx.Errorf("The provided uniform expression is not a texture")
		}
		vtIndex = t.set.virtualTextureIndex(vtUniform)
		if p.SamplerSource != SamplerSourceFromTextureAsset {
			texName = fmt.Sprintf("Material.VirtualTexturePhysicalTable_%d, GetMaterialSharedSampler(Material.VirtualTexturePhysicalTable_%dSampler, View.SharedBilinearClampedSampler)", vtIndex, vtIndex)
		} else {
			texName = fmt.Sprintf("Material.VirtualTexturePhysicalTable_%d, Material.VirtualTexturePhysicalTable_%dSampler", vtIndex, vtIndex)
		}
		t.stats.VirtualTextureSamples++
	default:
		texName = ctx.CoerceParameter(p.Texture, TypeTexture2D)
	}
	uvs := ctx.CoerceParameter(p.Coordinate, uvType)

	var sample Code
	if virtual {
		pageTable, stack := ctx.virtualTextureLayer(vtUniform, vtIndex, mode, p, mip0, mip1)
		if stack < 0 {
			return Code{}
		}
		format := "TextureVirtualSample(%s, %s, %d, VTUniform_Unpack(Material.VTPackedUniform[%d]))"
		if mode == MipLevel {
			format = "TextureVirtualSampleLevel(%s, %s, %d, VTUniform_Unpack(Material.VTPackedUniform[%d]))"
		}
		sample = ctx.AddCodeChunk(TypeFloat4, wrapSample(p.SamplerType, format),
			texName, ctx.ParameterCode(t.vtEntries[stack].code), pageTable, vtIndex)
	} else {
		if pixel && domain == DomainDeferredDecal && mode == MipNone {
			sampleName += "_Decal"
		}
		var format string
		switch mode {
		case MipNone:
			format = sampleName + "(%[1]s," + sampler + ",%[3]s)"
		case MipLevel:
			if fl < FeatureES3_1 {
				if !ctx.errorUnlessFeatureLevelSupported(FeatureES3_1) {
					return Code{}
				}
				return ctx.domainErrorf("Sampling for a specific mip-level is not supported for ES2")
			}
			format = sampleName + "Level(%[1]s," + sampler + ",%[3]s,%[4]s)"
		case MipBias:
			format = sampleName + "Bias(%[1]s," + sampler + ",%[3]s,%[4]s)"
		case MipDerivative:
			format = sampleName + "Grad(%[1]s," + sampler + ",%[3]s,%[4]s,%[5]s)"
		}
		sample = ctx.AddCodeChunk(TypeFloat4, wrapSample(p.SamplerType, format),
			texName, texName, uvs, mip0Code, mip1Code)
	}
	t.addEstimatedTextureSample(ctx)
	return sample
}

// virtualTextureLayer binds the sampled texture to a layer of a VT stack and
// returns the page table layer index and the stack index.
func (ctx Context) virtualTextureLayer(u *Uniform, vtIndex int, mode MipValueMode, p SampleParams, mip0, mip1 Code) (pageTable, stack int) {
	var layer int
	t := ctx.t
	var tex TextureInfo
	if u.TextureIndex >= 0 && u.TextureIndex < len(t.mat.Textures) {
		tex = t.mat.Textures[u.TextureIndex]
	}
	var addrU, addrV TextureAddress
	switch {
	case tex.NumBlocks > 1:
		// UDIM tiles wrap.
		addrU, addrV = AddressWrap, AddressWrap
	case p.SamplerSource == SamplerSourceFromTextureAsset:
		addrU, addrV = tex.AddressX, tex.AddressY
	case p.SamplerSource == SamplerSourceSharedWrap:
		addrU, addrV = AddressWrap, AddressWrap
	case p.SamplerSource == SamplerSourceSharedClamp:
		addrU, addrV = AddressClamp, AddressClamp
	}
	feedback := ctx.freq == FreqPixel
	if u.LayerIndex >= 0 {
		stack = ctx.acquireVTStack(mode, addrU, addrV, 1, p.Coordinate, mip0, mip1, u.TextureIndex, feedback)
		layer, pageTable = u.LayerIndex, u.PageTableLayerIndex
	} else {
		aspect := float32(1)
		if tex.SizeY > 0 {
			aspect = float32(tex.SizeX) / float32(tex.SizeY)
		}
		stack = ctx.acquireVTStack(mode, addrU, addrV, aspect, p.Coordinate, mip0, mip1, -1, feedback)
		layer = t.set.VTStacks[stack].AddLayer()
		pageTable = layer
	}
	if layer < 0 || layer >= MaxVTLayers {
		ctx.Errorf("Invalid virtual texture layer %d", layer)
		return -1, -1
	}
	t.set.VTStacks[stack].SetLayer(layer, vtIndex)
	return pageTable, stack
}

// wrapSample wraps the sample format with the decoding of the sampler type.
func wrapSample(st SamplerType, format string) string {
	switch st {
	case SamplerExternal:
		return "ProcessMaterialExternalTextureLookup(" + format + ")"
	case SamplerColor, SamplerVirtualColor:
		return "ProcessMaterialColorTextureLookup(" + format + ")"
	case SamplerLinearColor, SamplerVirtualLinearColor:
		return "ProcessMaterialLinearColorTextureLookup(" + format + ")"
	case SamplerAlpha, SamplerVirtualAlpha, SamplerDistanceFieldFont:
		return "(" + format + ").rrrr"
	case SamplerGrayscale, SamplerVirtualGrayscale:
		return "ProcessMaterialGreyscaleTextureLookup((" + format + ").r).rrrr"
	case SamplerLinearGrayscale, SamplerVirtualLinearGrayscale:
		return "ProcessMaterialLinearGreyscaleTextureLookup((" + format + ").r).rrrr"
	case SamplerNormal, SamplerVirtualNormal:
		return "UnpackNormalMap(" + format + ")"
	}
	return format
}

// addEstimatedTextureSample counts a sample toward the stage statistics.
func (t *Translator) addEstimatedTextureSample(ctx Context) {
	if ctx.prevFrame {
		return
	}
	if ctx.freq == FreqPixel || ctx.freq == FreqCompute {
		t.stats.PixelTextureSamples++
	} else {
		t.stats.VertexTextureSamples++
	}
}

// TextureCoordinate returns the texture coordinate set at index, optionally unmirrored.
func (ctx Context) TextureCoordinate(index int, mirror TexCoordMirror) Code {
	t := ctx.t
	maxSets := 8
	if t.opts.FeatureLevel == FeatureES2 && t.mat.Domain != DomainUI {
		maxSets = 3
	}
	if index < 0 || index >= maxSets {
		return ctx.Errorf("Only %d texture coordinate sets can be used by this feature level, currently using %d", maxSets, index+1)
	}
	if ctx.freq == FreqVertex {
		t.texCoordsVertex.set(index)
	} else {
		t.texCoordsPixel.set(index)
	}
	switch mirror {
	case MirrorU:
		return ctx.AddInlinedCodeChunk(TypeFloat2, "UnMirrorU(Parameters.TexCoords[%d].xy, Parameters)", index)
	case MirrorV:
		return ctx.AddInlinedCodeChunk(TypeFloat2, "UnMirrorV(Parameters.TexCoords[%d].xy, Parameters)", index)
	case MirrorUV:
		return ctx.AddInlinedCodeChunk(TypeFloat2, "UnMirrorUV(Parameters.TexCoords[%d].xy, Parameters)", index)
	}
	return ctx.AddInlinedCodeChunk(TypeFloat2, "Parameters.TexCoords[%d].xy", index)
}

// bitArray is a growable set of small integers.
type bitArray []bool

func (b *bitArray) set(i int) {
	for len(*b) <= i {
		*b = append(*b, false)
	}
	(*b)[i] = true
}

func (b bitArray) has(i int) bool { return i < len(b) && b[i] }

// last returns the highest set index, or -1.
func (b bitArray) last() int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] {
			return i
		}
	}
	return -1
}

// setFirstZero sets the lowest unset index and returns it.
func (b *bitArray) setFirstZero() int {
	for i, v := range *b {
		if !v {
			(*b)[i] = true
			return i
		}
	}
	*b = append(*b, true)
	return len(*b) - 1
}

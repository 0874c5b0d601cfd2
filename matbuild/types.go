package matbuild

import "strconv"

// ValueType is a bit set describing the type of a code chunk. Two types are
// compatible when they share at least one bit.
type ValueType uint32

const (
	TypeFloat1 ValueType = 1 << iota
	TypeFloat2
	TypeFloat3
	TypeFloat4
	TypeTexture2D
	TypeTextureCube
	TypeTexture2DArray
	TypeVolumeTexture
	TypeStaticBool
	TypeUnknown
	TypeMaterialAttributes
	TypeTextureExternal
	TypeTextureVirtual
	TypeVTPageTableResult
	TypeShadingModel

	// TypeFloat is a scalar that is compatible with every float vector width.
	TypeFloat = TypeFloat1 | TypeFloat2 | TypeFloat3 | TypeFloat4
	// TypeTexture is compatible with every texture kind.
	TypeTexture = TypeTexture2D | TypeTextureCube | TypeTexture2DArray | TypeVolumeTexture | TypeTextureExternal | TypeTextureVirtual
)

// String returns the description of the type used in diagnostics.
func (t ValueType) String() string {
	switch t {
	case TypeFloat1, TypeFloat:
		return "float"
	case TypeFloat2:
		return "float2"
	case TypeFloat3:
		return "float3"
	case TypeFloat4:
		return "float4"
	case TypeTexture2D:
		return "texture2D"
	case TypeTextureCube:
		return "textureCube"
	case TypeTexture2DArray:
		return "texture2DArray"
	case TypeVolumeTexture:
		return "volumeTexture"
	case TypeStaticBool:
		return "static bool"
	case TypeMaterialAttributes:
		return "MaterialAttributes"
	case TypeTextureExternal:
		return "TextureExternal"
	case TypeTextureVirtual:
		return "TextureVirtual"
	case TypeVTPageTableResult:
		return "VTPageTableResult"
	case TypeShadingModel:
		return "ShadingModel"
	}
	return "unknown"
}

// HLSL returns the name of the type in generated source.
func (t ValueType) HLSL() string {
	switch t {
	case TypeFloat1, TypeFloat:
		return "MaterialFloat"
	case TypeFloat2:
		return "MaterialFloat2"
	case TypeFloat3:
		return "MaterialFloat3"
	case TypeFloat4:
		return "MaterialFloat4"
	case TypeTexture2D:
		return "texture2D"
	case TypeTextureCube:
		return "textureCube"
	case TypeTexture2DArray:
		return "texture2DArray"
	case TypeVolumeTexture:
		return "volumeTexture"
	case TypeStaticBool:
		return "static bool"
	case TypeMaterialAttributes:
		return "FMaterialAttributes"
	case TypeTextureExternal:
		return "TextureExternal"
	case TypeTextureVirtual:
		return "TextureVirtual"
	case TypeVTPageTableResult:
		return "VTPageTableResult"
	case TypeShadingModel:
		return "uint"
	}
	return "unknown"
}

// NumComponents returns the number of float components of t, or 0 for
// non-float types.
func (t ValueType) NumComponents() int {
	switch t {
	case TypeFloat, TypeFloat1:
		return 1
	case TypeFloat2:
		return 2
	case TypeFloat3:
		return 3
	case TypeFloat4:
		return 4
	}
	return 0
}

// IsFloat reports whether t is a float type of any width.
func (t ValueType) IsFloat() bool { return t&TypeFloat != 0 }

// IsTexture reports whether t is a texture type of any kind.
func (t ValueType) IsTexture() bool { return t&TypeTexture != 0 }

// VectorType returns the float type with n components. n==1 returns TypeFloat.
func VectorType(n int) ValueType {
	switch n {
	case 1:
		return TypeFloat
	case 2:
		return TypeFloat2
	case 3:
		return TypeFloat3
	case 4:
		return TypeFloat4
	}
	return TypeUnknown
}

// Frequency is the shader stage a property or chunk is evaluated at.
type Frequency uint8

const (
	FreqVertex Frequency = iota
	FreqHull
	FreqDomain
	FreqPixel
	FreqCompute
	numFrequencies
)

func (f Frequency) String() string {
	switch f {
	case FreqVertex:
		return "Vertex"
	case FreqHull:
		return "Hull"
	case FreqDomain:
		return "Domain"
	case FreqPixel:
		return "Pixel"
	case FreqCompute:
		return "Compute"
	}
	return "Frequency(" + strconv.Itoa(int(f)) + ")"
}

// FeatureLevel is the capability tier of the target platform.
type FeatureLevel uint8

const (
	FeatureES2 FeatureLevel = iota
	FeatureES3_1
	FeatureSM4
	FeatureSM5
)

func (fl FeatureLevel) String() string {
	switch fl {
	case FeatureES2:
		return "ES2"
	case FeatureES3_1:
		return "ES3_1"
	case FeatureSM4:
		return "SM4"
	case FeatureSM5:
		return "SM5"
	}
	return "FeatureLevel(" + strconv.Itoa(int(fl)) + ")"
}

// Domain is the usage domain of a material.
type Domain uint8

const (
	DomainSurface Domain = iota
	DomainDeferredDecal
	DomainLightFunction
	DomainVolume
	DomainPostProcess
	DomainUI
	DomainRuntimeVirtualTexture
)

func (d Domain) String() string {
	switch d {
	case DomainSurface:
		return "Surface"
	case DomainDeferredDecal:
		return "DeferredDecal"
	case DomainLightFunction:
		return "LightFunction"
	case DomainVolume:
		return "Volume"
	case DomainPostProcess:
		return "PostProcess"
	case DomainUI:
		return "UI"
	case DomainRuntimeVirtualTexture:
		return "RuntimeVirtualTexture"
	}
	return "Domain(" + strconv.Itoa(int(d)) + ")"
}

// BlendMode is the output blend mode of a material.
type BlendMode uint8

const (
	BlendOpaque BlendMode = iota
	BlendMasked
	BlendTranslucent
	BlendAdditive
	BlendModulate
	BlendAlphaComposite
	BlendAlphaHoldout
)

// IsTranslucent reports whether the blend mode renders in the translucency pass.
func (bm BlendMode) IsTranslucent() bool {
	return bm != BlendOpaque && bm != BlendMasked
}

func (bm BlendMode) String() string {
	switch bm {
	case BlendOpaque:
		return "Opaque"
	case BlendMasked:
		return "Masked"
	case BlendTranslucent:
		return "Translucent"
	case BlendAdditive:
		return "Additive"
	case BlendModulate:
		return "Modulate"
	case BlendAlphaComposite:
		return "AlphaComposite"
	case BlendAlphaHoldout:
		return "AlphaHoldout"
	}
	return "BlendMode(" + strconv.Itoa(int(bm)) + ")"
}

// ShadingModel is a lighting model a material can be shaded with.
type ShadingModel uint8

const (
	ShadingUnlit ShadingModel = iota
	ShadingDefaultLit
	ShadingSubsurface
	ShadingPreintegratedSkin
	ShadingClearCoat
	ShadingSubsurfaceProfile
	ShadingTwoSidedFoliage
	ShadingHair
	ShadingCloth
	ShadingEye
	ShadingSingleLayerWater
	ShadingThinTranslucent
	numShadingModels
)

var shadingModelNames = [numShadingModels]string{
	"Unlit", "DefaultLit", "Subsurface", "PreintegratedSkin", "ClearCoat",
	"SubsurfaceProfile", "TwoSidedFoliage", "Hair", "Cloth", "Eye",
	"SingleLayerWater", "ThinTranslucent",
}

func (sm ShadingModel) String() string {
	if sm >= numShadingModels {
		return "ShadingModel(" + strconv.Itoa(int(sm)) + ")"
	}
	return shadingModelNames[sm]
}

// ShadingModels is a set of shading models used by a material.
type ShadingModels uint16

// ShadingModelSet returns the set containing the argument models.
func ShadingModelSet(models ...ShadingModel) ShadingModels {
	var s ShadingModels
	for _, m := range models {
		s |= 1 << m
	}
	return s
}

// Has reports whether m is in the set.
func (s ShadingModels) Has(m ShadingModel) bool { return s&(1<<m) != 0 }

// IsUnlit reports whether the only model in the set is unlit.
func (s ShadingModels) IsUnlit() bool { return s == 1<<ShadingUnlit }

// IsLit reports whether the set contains any lit model.
func (s ShadingModels) IsLit() bool { return s&^(1<<ShadingUnlit) != 0 }

// HasAnySubsurface reports whether the set contains a model that uses subsurface color.
func (s ShadingModels) HasAnySubsurface() bool {
	return s.Has(ShadingSubsurface) || s.Has(ShadingPreintegratedSkin) || s.Has(ShadingSubsurfaceProfile) ||
		s.Has(ShadingTwoSidedFoliage) || s.Has(ShadingCloth) || s.Has(ShadingEye)
}

// Count returns the number of models in the set.
func (s ShadingModels) Count() int {
	n := 0
	for m := ShadingModel(0); m < numShadingModels; m++ {
		if s.Has(m) {
			n++
		}
	}
	return n
}

// First returns the lowest model in the set, or unlit for the empty set.
func (s ShadingModels) First() ShadingModel {
	for m := ShadingModel(0); m < numShadingModels; m++ {
		if s.Has(m) {
			return m
		}
	}
	return ShadingUnlit
}

// TextureAddress is the addressing mode of a texture axis.
type TextureAddress uint8

const (
	AddressWrap TextureAddress = iota
	AddressClamp
	AddressMirror
)

func (ta TextureAddress) vtMode() string {
	switch ta {
	case AddressClamp:
		return "VTADDRESSMODE_CLAMP"
	case AddressMirror:
		return "VTADDRESSMODE_MIRROR"
	}
	return "VTADDRESSMODE_WRAP"
}

// MipValueMode selects how a texture sample picks its mip level.
type MipValueMode uint8

const (
	MipNone MipValueMode = iota
	MipLevel
	MipBias
	MipDerivative
)

// SamplerType describes how a sampled texture value is decoded.
type SamplerType uint8

const (
	SamplerColor SamplerType = iota
	SamplerGrayscale
	SamplerAlpha
	SamplerNormal
	SamplerMasks
	SamplerDistanceFieldFont
	SamplerLinearColor
	SamplerLinearGrayscale
	SamplerData
	SamplerExternal
	SamplerVirtualColor
	SamplerVirtualGrayscale
	SamplerVirtualAlpha
	SamplerVirtualNormal
	SamplerVirtualMasks
	SamplerVirtualLinearColor
	SamplerVirtualLinearGrayscale
)

// IsVirtual reports whether the sampler type samples a virtual texture.
func (st SamplerType) IsVirtual() bool { return st >= SamplerVirtualColor }

// SamplerSource selects where a texture sample takes its sampler state from.
type SamplerSource uint8

const (
	SamplerSourceFromTextureAsset SamplerSource = iota
	SamplerSourceSharedWrap
	SamplerSourceSharedClamp
)

// TexCoordMirror selects the unmirroring applied to a texture coordinate.
type TexCoordMirror uint8

const (
	MirrorNone TexCoordMirror = iota
	MirrorU
	MirrorV
	MirrorUV
)

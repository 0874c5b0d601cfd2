package matbuild

import (
	"strconv"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Property is an output attribute of a material.
type Property uint8

const (
	PropEmissiveColor Property = iota
	PropOpacity
	PropOpacityMask
	PropDiffuseColor
	PropSpecularColor
	PropBaseColor
	PropMetallic
	PropSpecular
	PropRoughness
	PropNormal
	PropWorldPositionOffset
	PropWorldDisplacement
	PropTessellationMultiplier
	PropSubsurfaceColor
	PropCustomData0
	PropCustomData1
	PropAmbientOcclusion
	PropRefraction
	PropCustomizedUVs0
	PropCustomizedUVs1
	PropCustomizedUVs2
	PropCustomizedUVs3
	PropCustomizedUVs4
	PropCustomizedUVs5
	PropCustomizedUVs6
	PropCustomizedUVs7
	PropPixelDepthOffset
	PropShadingModel

	// Compiled extras are not connected by the user; the translator derives
	// them from other properties.

	// PropEmissiveColorCS is the emissive color of a light function evaluated in compute.
	PropEmissiveColorCS
	// PropPrevWorldPositionOffset is the world position offset of the previous frame.
	PropPrevWorldPositionOffset
	numCompiledProperties

	// NumProperties is the number of properties a material graph can connect.
	NumProperties = PropShadingModel + 1
	// PropNone is used when compiling outside of a material property.
	PropNone Property = 0xff
)

// NumCustomizedUVs is the number of user customizable texture coordinates.
const NumCustomizedUVs = 8

type propertyInfo struct {
	name  string
	typ   ValueType
	freq  Frequency
	share bool // shares the pixel chunk scope with the normal.
}

var propertyInfos = [numCompiledProperties]propertyInfo{
	PropEmissiveColor:           {"EmissiveColor", TypeFloat3, FreqPixel, true},
	PropOpacity:                 {"Opacity", TypeFloat1, FreqPixel, true},
	PropOpacityMask:             {"OpacityMask", TypeFloat1, FreqPixel, true},
	PropDiffuseColor:            {"DiffuseColor", TypeFloat3, FreqPixel, false},
	PropSpecularColor:           {"SpecularColor", TypeFloat3, FreqPixel, false},
	PropBaseColor:               {"BaseColor", TypeFloat3, FreqPixel, true},
	PropMetallic:                {"Metallic", TypeFloat1, FreqPixel, true},
	PropSpecular:                {"Specular", TypeFloat1, FreqPixel, true},
	PropRoughness:               {"Roughness", TypeFloat1, FreqPixel, true},
	PropNormal:                  {"Normal", TypeFloat3, FreqPixel, true},
	PropWorldPositionOffset:     {"WorldPositionOffset", TypeFloat3, FreqVertex, false},
	PropWorldDisplacement:       {"WorldDisplacement", TypeFloat3, FreqDomain, false},
	PropTessellationMultiplier:  {"TessellationMultiplier", TypeFloat1, FreqHull, false},
	PropSubsurfaceColor:         {"Subsurface", TypeFloat3, FreqPixel, true},
	PropCustomData0:             {"CustomData0", TypeFloat1, FreqPixel, false},
	PropCustomData1:             {"CustomData1", TypeFloat1, FreqPixel, false},
	PropAmbientOcclusion:        {"AmbientOcclusion", TypeFloat1, FreqPixel, true},
	PropRefraction:              {"Refraction", TypeFloat2, FreqPixel, true},
	PropCustomizedUVs0:          {"CustomizedUVs0", TypeFloat2, FreqVertex, false},
	PropCustomizedUVs1:          {"CustomizedUVs1", TypeFloat2, FreqVertex, false},
	PropCustomizedUVs2:          {"CustomizedUVs2", TypeFloat2, FreqVertex, false},
	PropCustomizedUVs3:          {"CustomizedUVs3", TypeFloat2, FreqVertex, false},
	PropCustomizedUVs4:          {"CustomizedUVs4", TypeFloat2, FreqVertex, false},
	PropCustomizedUVs5:          {"CustomizedUVs5", TypeFloat2, FreqVertex, false},
	PropCustomizedUVs6:          {"CustomizedUVs6", TypeFloat2, FreqVertex, false},
	PropCustomizedUVs7:          {"CustomizedUVs7", TypeFloat2, FreqVertex, false},
	PropPixelDepthOffset:        {"PixelDepthOffset", TypeFloat1, FreqPixel, true},
	PropShadingModel:            {"ShadingModel", TypeShadingModel, FreqPixel, true},
	PropEmissiveColorCS:         {"EmissiveColorCS", TypeFloat3, FreqCompute, false},
	PropPrevWorldPositionOffset: {"PrevWorldPositionOffset", TypeFloat3, FreqVertex, false},
}

func (p Property) valid() bool { return p < numCompiledProperties }

// String returns the attribute name of the property as it appears in generated code.
func (p Property) String() string {
	if !p.valid() {
		if p == PropNone {
			return "None"
		}
		return "Property(" + strconv.Itoa(int(p)) + ")"
	}
	return propertyInfos[p].name
}

// Type returns the value type a property is cast to after compilation.
func (p Property) Type() ValueType { return propertyInfos[p].typ }

// Frequency returns the shader stage a property is evaluated at.
func (p Property) Frequency() Frequency { return propertyInfos[p].freq }

// IsShared reports whether the property is computed in the pixel shader scope
// shared with the normal, after the normal's own code.
func (p Property) IsShared() bool { return propertyInfos[p].share }

// IsCustomizedUV reports whether p is one of the customized UV properties.
func (p Property) IsCustomizedUV() bool {
	return p >= PropCustomizedUVs0 && p <= PropCustomizedUVs7
}

// CustomizedUV returns the customized UV property with index i.
func CustomizedUV(i int) Property {
	if i < 0 || i >= NumCustomizedUVs {
		panic("matbuild: customized UV index out of range")
	}
	return PropCustomizedUVs0 + Property(i)
}

// sharedPixelProperties lists pixel properties written to PixelMaterialInputs
// in declaration order.
var sharedPixelProperties = []Property{
	PropNormal, PropEmissiveColor, PropOpacity, PropOpacityMask, PropBaseColor,
	PropMetallic, PropSpecular, PropRoughness, PropAmbientOcclusion, PropRefraction,
	PropPixelDepthOffset, PropSubsurfaceColor, PropShadingModel,
}

// compileDefault compiles the value used for an unconnected property.
func (ctx Context) compileDefault(p Property) Code {
	switch p {
	case PropEmissiveColor, PropDiffuseColor, PropSpecularColor, PropBaseColor,
		PropWorldPositionOffset, PropWorldDisplacement, PropEmissiveColorCS, PropPrevWorldPositionOffset:
		return ctx.Constant3(ms3.Vec{})
	case PropOpacity, PropOpacityMask, PropTessellationMultiplier, PropSubsurfaceColor,
		PropCustomData0, PropAmbientOcclusion:
		return ctx.Constant(1)
	case PropMetallic, PropPixelDepthOffset:
		return ctx.Constant(0)
	case PropSpecular, PropRoughness:
		return ctx.Constant(.5)
	case PropCustomData1:
		return ctx.Constant(.1)
	case PropNormal:
		return ctx.Constant3(ms3.Vec{Z: 1})
	case PropRefraction:
		return ctx.Constant2(ms2.Vec{X: 1})
	case PropShadingModel:
		return ctx.ShadingModel(ctx.t.mat.ShadingModels.First())
	}
	if p.IsCustomizedUV() {
		return ctx.TextureCoordinate(int(p-PropCustomizedUVs0), MirrorNone)
	}
	panic("matbuild: no default for property " + p.String())
}

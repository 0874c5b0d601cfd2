// Package matlib holds the shader source text the material translator
// generates code into.
package matlib

import (
	_ "embed"
)

//go:embed MaterialTemplate.hlsl
var materialTemplateSrc string

// MaterialTemplate is the text/template source of a material shader. The
// translator substitutes the generated property code into it.
func MaterialTemplate() string {
	return materialTemplateSrc
}

//go:embed helpers.hlsl
var helpersSrc string

// Helpers returns the HLSL helper functions called by generated code:
//
//	MaterialFloatN PositiveClampedPow(MaterialFloatN Base, MaterialFloatN Exponent)
//	MaterialFloat4 ProcessMaterialColorTextureLookup(MaterialFloat4 TextureValue)
//	MaterialFloat4 ProcessMaterialLinearColorTextureLookup(MaterialFloat4 TextureValue)
//	MaterialFloat ProcessMaterialGreyscaleTextureLookup(MaterialFloat TextureValue)
//	MaterialFloat ProcessMaterialLinearGreyscaleTextureLookup(MaterialFloat TextureValue)
//	MaterialFloat4 ProcessMaterialExternalTextureLookup(MaterialFloat4 TextureValue)
func Helpers() string {
	return helpersSrc
}

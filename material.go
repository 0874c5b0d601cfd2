package gmat

import "github.com/soypat/gmat/matbuild"

// Material is a material variant backed by a [Graph].
type Material struct {
	matbuild.Material
	graph *Graph
}

// NewMaterial returns a surface material reading its nodes from g, shaded
// with the default lit model and opaque blending.
func NewMaterial(name string, g *Graph) *Material {
	if g == nil {
		panic("nil graph argument to NewMaterial")
	}
	m := &Material{graph: g}
	m.Name = name
	m.Graph = g
	m.ShadingModels = matbuild.ShadingModelSet(matbuild.ShadingDefaultLit)
	m.OpacityMaskClipValue = 1. / 3
	m.TranslucencyLightingFactor = 1
	return m
}

// Connect connects property p to in.
func (m *Material) Connect(p matbuild.Property, in Input) {
	if p >= matbuild.NumProperties {
		panic("cannot connect property " + p.String())
	} else if int(in.Node) > m.graph.Len() {
		panic("connection to node not in graph")
	}
	m.Inputs[p] = in
}

// AddTexture appends a texture to the material and returns its index.
func (m *Material) AddTexture(tex matbuild.TextureInfo) int {
	m.Textures = append(m.Textures, tex)
	return len(m.Textures) - 1
}

// Translate translates the material with a new [matbuild.Translator].
// Custom outputs and vertex interpolators of the graph are translated
// unless the material lists its own.
func (m *Material) Translate(opts matbuild.Options) (*matbuild.Result, error) {
	mat := m.Material
	if mat.CustomOutputs == nil {
		mat.CustomOutputs = m.graph.CustomOutputs()
	}
	if mat.VertexInterpolators == nil {
		mat.VertexInterpolators = m.graph.VertexInterpolators()
	}
	return matbuild.NewTranslator(&mat, opts).Translate()
}

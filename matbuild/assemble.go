package matbuild

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/soypat/gmat/matlib"
)

var materialTemplate = template.Must(template.New("material").Parse(matlib.MaterialTemplate()))

type templateData struct {
	Defines                string
	NumUserVertexTexCoords int
	NumUserTexCoords       int
	NumCustomVectors       int
	NumTexCoordVectors     int
	InterpolatorDefines    string
	Helpers                string
	PixelMembers           string
	Resources              string

	EmissiveColorCS            string
	TranslucencyLightingFactor string
	OpacityMaskClipValue       string
	MaxDisplacement            string

	WorldPositionOffset     string
	PrevWorldPositionOffset string
	WorldDisplacement       string
	TessellationMultiplier  string
	CustomData0             string
	CustomData1             string

	CustomUVAssignments           string
	CustomInterpolatorAssignments string
	NormalDefinitions             string
	NormalAssignment              string
	PixelMembersSetup             string
}

func appendDefines(b []byte, defs []Define) string {
	for _, def := range defs {
		b = AppendDefineDecl(b, def.Name, def.Value)
	}
	return string(b)
}

// fixProperties fills the final code of every compiled property.
func (t *Translator) fixProperties(res *Result) {
	pixel := t.scopes[t.freqScopes[FreqPixel]].chunks
	defs, value := fixedParameterCode(pixel, 0, t.normalEnd, t.results[PropNormal])
	if defs == "" {
		// Properties after the normal may read its temporaries.
		defs = definitions(pixel, 0, t.normalEnd)
	}
	res.Properties[PropNormal] = PropertyCode{Definitions: defs, Value: value}
	for p := Property(0); p < numCompiledProperties; p++ {
		if p == PropNormal {
			continue
		}
		freq := p.Frequency()
		chunks := t.scopes[t.freqScopes[freq]].chunks
		start := 0
		if freq == FreqPixel && p.IsShared() {
			start = t.normalEnd
		}
		defs, value := fixedParameterCode(chunks, start, len(chunks), t.results[p])
		res.Properties[p] = PropertyCode{Definitions: defs, Value: value}
	}
}

// functionCode returns the body of a generated function returning p.
func functionCode(res *Result, p Property) string {
	code := res.Properties[p]
	return code.Definitions + "\treturn " + code.Value + ";"
}

// assemble substitutes the generated code into the material template.
func (t *Translator) assemble(res *Result) string {
	t.fixProperties(res)
	res.Defines = t.defines()
	allocated, interpolatorDefines := t.interpolatorSlots()
	data := templateData{
		Defines:                appendDefines(nil, res.Defines),
		NumUserVertexTexCoords: res.NumUserVertexTexCoords,
		NumUserTexCoords:       res.NumUserTexCoords,
		NumCustomVectors:       (t.interpolatorOffset + 1) / 2,
		NumTexCoordVectors:     allocated.last() + 1,
		InterpolatorDefines:    interpolatorDefines,
		Helpers:                matlib.Helpers(),

		EmissiveColorCS:            "\treturn 0;",
		TranslucencyLightingFactor: fmt.Sprintf("return %.5f", t.mat.TranslucencyLightingFactor),
		OpacityMaskClipValue:       fmt.Sprintf("return %.5f", t.mat.OpacityMaskClipValue),
		MaxDisplacement:            fmt.Sprintf("return %.5f", t.mat.MaxDisplacement),

		WorldPositionOffset:     functionCode(res, PropWorldPositionOffset),
		PrevWorldPositionOffset: functionCode(res, PropPrevWorldPositionOffset),
		WorldDisplacement:       functionCode(res, PropWorldDisplacement),
		TessellationMultiplier:  functionCode(res, PropTessellationMultiplier),
		CustomData0:             functionCode(res, PropCustomData0),
		CustomData1:             functionCode(res, PropCustomData1),
	}
	if t.mat.Domain == DomainLightFunction {
		data.EmissiveColorCS = functionCode(res, PropEmissiveColorCS)
	}

	var resources strings.Builder
	for _, def := range t.customDefines {
		resources.WriteString(def)
	}
	for _, impl := range t.customImplementations {
		resources.WriteString(impl)
		resources.WriteString("\n\n")
	}
	data.Resources = resources.String()

	var members, assignments strings.Builder
	last := -1
	for _, p := range sharedPixelProperties {
		typ := p.Type()
		if p == PropSubsurfaceColor {
			// The profile is appended to the color.
			typ = TypeFloat4
		}
		fmt.Fprintf(&members, "\t%s %s;\n", typ.HLSL(), p)
		code := res.Properties[p]
		if p == PropNormal {
			data.NormalAssignment = fmt.Sprintf("\tPixelMaterialInputs.%s = %s;\n", p, code.Value)
			continue
		}
		if code.Definitions != "" {
			last = int(p)
		}
		fmt.Fprintf(&assignments, "\tPixelMaterialInputs.%s = %s;\n", p, code.Value)
	}
	data.PixelMembers = members.String()
	data.NormalDefinitions = res.Properties[PropNormal].Definitions
	if last >= 0 {
		data.PixelMembersSetup = res.Properties[last].Definitions + "\n"
	}
	data.PixelMembersSetup += assignments.String()

	var uvs strings.Builder
	for i := 0; i < res.NumUserTexCoords && i < NumCustomizedUVs; i++ {
		code := res.Properties[CustomizedUV(i)]
		if i == 0 {
			uvs.WriteString(code.Definitions)
		}
		fmt.Fprintf(&uvs, "\tOutTexCoords[%d] = %s;\n", i, code.Value)
	}
	data.CustomUVAssignments = uvs.String()

	var interps strings.Builder
	for _, ip := range t.interpolators {
		if ip.offset < 0 {
			continue
		}
		for c := 0; c < ip.size(); c++ {
			fmt.Fprintf(&interps, "\tOutTexCoords[VERTEX_INTERPOLATOR_%d_TEXCOORDS_%c].%c = VertexInterpolator%d(Parameters).%c;\n",
				ip.index, "XYZW"[c], "xy"[(ip.offset+c)%2], ip.index, "xyzw"[c])
		}
	}
	data.CustomInterpolatorAssignments = interps.String()

	var b strings.Builder
	if err := materialTemplate.Execute(&b, data); err != nil {
		t.errorf(KindStructural, "Failed to assemble material template: %v", err)
		return ""
	}
	return b.String()
}

var shadingModelDefines = [numShadingModels]string{
	ShadingDefaultLit:        "MATERIAL_SHADINGMODEL_DEFAULT_LIT",
	ShadingSubsurface:        "MATERIAL_SHADINGMODEL_SUBSURFACE",
	ShadingPreintegratedSkin: "MATERIAL_SHADINGMODEL_PREINTEGRATED_SKIN",
	ShadingClearCoat:         "MATERIAL_SHADINGMODEL_CLEAR_COAT",
	ShadingSubsurfaceProfile: "MATERIAL_SHADINGMODEL_SUBSURFACE_PROFILE",
	ShadingTwoSidedFoliage:   "MATERIAL_SHADINGMODEL_TWOSIDED_FOLIAGE",
	ShadingHair:              "MATERIAL_SHADINGMODEL_HAIR",
	ShadingCloth:             "MATERIAL_SHADINGMODEL_CLOTH",
	ShadingEye:               "MATERIAL_SHADINGMODEL_EYE",
	ShadingSingleLayerWater:  "MATERIAL_SHADINGMODEL_SINGLELAYERWATER",
	ShadingThinTranslucent:   "MATERIAL_SHADINGMODEL_THIN_TRANSLUCENT",
}

// defines returns the compilation environment of the translated material.
func (t *Translator) defines() []Define {
	var defs []Define
	add := func(name string, v int) {
		defs = append(defs, Define{Name: name, Value: strconv.Itoa(v)})
	}
	add("INTERPOLATE_VERTEX_COLOR", b2i(t.usage.VertexColor))
	add("WANT_PIXEL_DEPTH_OFFSET", b2i(t.usage.PixelDepthOffset))
	add("USES_WORLD_POSITION_OFFSET", b2i(t.usage.WorldPositionOffset))
	add("USES_EMISSIVE_COLOR", b2i(t.usage.EmissiveColor))
	if t.usage.WorldPositionExcludingShaderOffsets {
		add("NEEDS_WORLD_POSITION_EXCLUDING_SHADER_OFFSETS", 1)
	}
	add("MATERIAL_FULLY_ROUGH", b2i(t.usage.FullyRough))
	add("MATERIAL_TWO_SIDED", b2i(t.mat.TwoSided))
	// Each stack allocates a feedback slot.
	add("NUM_VIRTUALTEXTURE_SAMPLES", len(t.set.VTStacks))
	for i := range t.set.VTStacks {
		value := fmt.Sprintf("Material.VirtualTexturePageTable0_%d", i)
		if t.set.VTStacks[i].NumPageTables() > 1 {
			value = fmt.Sprintf("Material.VirtualTexturePageTable0_%d, Material.VirtualTexturePageTable1_%d", i, i)
		}
		defs = append(defs, Define{Name: fmt.Sprintf("VIRTUALTEXTURE_PAGETABLE_%d", i), Value: value})
	}
	add("IS_MATERIAL_SHADER", 1)

	models := t.effectiveShadingModels()
	if !models.IsLit() {
		add("MATERIAL_SINGLE_SHADINGMODEL", 1)
		add("MATERIAL_SHADINGMODEL_UNLIT", 1)
		return defs
	}
	n := 0
	for m := ShadingDefaultLit; m < numShadingModels; m++ {
		if models.Has(m) {
			add(shadingModelDefines[m], 1)
			n++
		}
	}
	if n == 1 {
		add("MATERIAL_SINGLE_SHADINGMODEL", 1)
	}
	return defs
}

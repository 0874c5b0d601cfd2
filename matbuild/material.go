package matbuild

// NodeID is a stable handle to an expression node in a [Graph].
// The zero NodeID refers to no node.
type NodeID uint32

// Input is a connection to an output of an expression node.
type Input struct {
	Node   NodeID
	Output int
}

// IsConnected reports whether the input is connected to a node.
func (in Input) IsConnected() bool { return in.Node != 0 }

// Graph resolves node handles to expressions.
type Graph interface {
	// Node returns the expression with the given handle. It returns nil for
	// handles not in the graph.
	Node(id NodeID) Expression
}

// Expression is a node of a material graph that can be compiled to code.
type Expression interface {
	// Compile compiles the output of the expression at index output
	// and returns the resulting code. Errors are reported through ctx.
	Compile(ctx Context, output int) Code
	// Kind returns the name of the node kind, i.e: "Add", used in diagnostics.
	Kind() string
	// AppendInputs appends the inputs the expression may read to dst.
	AppendInputs(dst []Input) []Input
}

// Node kind names with special handling in diagnostics and function calls.
const (
	KindFunctionCall   = "FunctionCall"
	KindFunctionInput  = "FunctionInput"
	KindFunctionOutput = "FunctionOutput"
)

// FunctionCaller is implemented by expressions that call a material function.
type FunctionCaller interface {
	Expression
	// FunctionName returns the name of the called function.
	FunctionName() string
	// Argument returns the caller side connection of the function input
	// with the given index.
	Argument(index int) Input
}

// Optional interfaces an expression may implement to refine how it is
// memoized and validated.
type (
	// outputIgnorer is implemented by expressions whose result does not
	// depend on the requested output.
	outputIgnorer interface{ CanIgnoreOutputIndex() bool }
	// attributesProducer is implemented by expressions that produce
	// material attributes on some outputs.
	attributesProducer interface {
		IsResultMaterialAttributes(output int) bool
	}
	// virtualTextureUser is implemented by expressions that sample virtual textures.
	virtualTextureUser interface{ UsesVirtualTexture() bool }
	// outputMasker is implemented by expressions whose outputs select
	// components of one compiled value.
	outputMasker interface {
		OutputMask(output int) (mask [4]bool, ok bool)
	}
)

// TextureInfo describes a texture asset referenced by a material.
type TextureInfo struct {
	Name string
	// Type is the shader type of the texture, one of the texture ValueTypes.
	Type     ValueType
	AddressX TextureAddress
	AddressY TextureAddress
	SizeX    int
	SizeY    int
	// NumBlocks is the number of UDIM blocks of a virtual texture.
	NumBlocks int
}

// CustomOutput is a named output of a material that is not one of its properties.
type CustomOutput interface {
	Expression
	// OutputName is the base name of the generated function.
	OutputName() string
	// NumOutputs is the number of outputs implemented as functions.
	NumOutputs() int
	// ShaderFrequency is the stage the outputs are evaluated at.
	ShaderFrequency() Frequency
	// CompileBeforeProperties reports whether the output must be compiled
	// before the material properties so properties can reuse it.
	CompileBeforeProperties() bool
	// AllowMultiple reports whether a material may contain more than one
	// custom output with the same name.
	AllowMultiple() bool
	// NeedsDefine reports whether a NUM_MATERIAL_OUTPUTS define is emitted.
	NeedsDefine() bool
}

// Material describes a material variant to translate.
type Material struct {
	Name  string
	Graph Graph
	// Inputs holds the connection of each property. Unconnected properties
	// compile their default value.
	Inputs        [NumProperties]Input
	Domain        Domain
	BlendMode     BlendMode
	ShadingModels ShadingModels
	// ShadingModelFromExpression selects the shading models compiled from
	// ShadingModel expressions over ShadingModels when any is compiled.
	ShadingModelFromExpression bool
	// Textures referenced by index from texture expressions.
	Textures []TextureInfo
	// CustomOutputs lists nodes implementing [CustomOutput].
	CustomOutputs []NodeID
	// VertexInterpolators lists nodes compiled in the vertex stage
	// and interpolated to the pixel stage.
	VertexInterpolators []NodeID
	// StaticSwitches resolves static bool parameters by name.
	StaticSwitches map[string]bool
	// StaticComponentMasks resolves static component mask parameters by name.
	StaticComponentMasks map[string][4]bool

	OpacityMaskClipValue       float32
	RefractionDepthBias        float32
	MaxDisplacement            float32
	TranslucencyLightingFactor float32
	AllowNegativeEmissiveColor bool
	TwoSided                   bool
	// NumCustomizedUVs is the number of customized UV properties compiled.
	NumCustomizedUVs int
}

func (m *Material) node(id NodeID) Expression {
	if id == 0 {
		return nil
	}
	return m.Graph.Node(id)
}

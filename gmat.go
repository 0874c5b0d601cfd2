// Package gmat builds material graphs: arenas of expression nodes that the
// matbuild translator compiles to shader code.
//
// Nodes are created with a [Builder] and referenced by [Input] handles.
// A node is never mutated after creation so a graph may be translated any
// number of times, in parallel, with independent translators.
package gmat

import (
	"errors"
	"fmt"

	"github.com/soypat/gmat/matbuild"
)

// Input is a connection to an output of a node. The zero Input is unconnected.
type Input = matbuild.Input

// NodeID is the handle of a node in a [Graph].
type NodeID = matbuild.NodeID

// Output returns the connection to output index of the node of in.
func Output(in Input, index int) Input {
	in.Output = index
	return in
}

// Graph is an arena of expression nodes. It implements [matbuild.Graph].
type Graph struct {
	nodes         []matbuild.Expression
	interpolators []NodeID
	customOutputs []NodeID
}

// Node returns the node with handle id or nil. Implements [matbuild.Graph].
func (g *Graph) Node(id NodeID) matbuild.Expression {
	if id == 0 || int(id) > len(g.nodes) {
		return nil
	}
	return g.nodes[id-1]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// VertexInterpolators returns the vertex interpolator nodes of the graph in creation order.
func (g *Graph) VertexInterpolators() []NodeID { return g.interpolators }

// CustomOutputs returns the custom output nodes of the graph in creation order.
func (g *Graph) CustomOutputs() []NodeID { return g.customOutputs }

// Builder creates the nodes of a material graph.
// Provides error handling strategies with panics or error accumulation during graph construction.
type Builder struct {
	// NoInputPanic accumulates construction errors instead of panicking.
	// Accumulated errors are returned by [Builder.Err].
	NoInputPanic bool
	accumErrs    []error
	g            Graph
}

// Graph returns the graph nodes are added to.
func (bld *Builder) Graph() *Graph { return &bld.g }

// Err returns the construction errors accumulated when NoInputPanic is set.
func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *Builder) inputErrorf(msg string, args ...any) {
	if !bld.NoInputPanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

// checkInputs reports connections to nodes outside of the graph.
// Unconnected inputs are valid.
func (bld *Builder) checkInputs(kind string, inputs ...Input) {
	for i, in := range inputs {
		if int(in.Node) > len(bld.g.nodes) {
			bld.inputErrorf("%s: arg[%d] references node %d not in graph", kind, i, in.Node)
		} else if in.Output < 0 {
			bld.inputErrorf("%s: arg[%d] has negative output index", kind, i)
		}
	}
}

// mustConnected reports unconnected inputs that the node kind requires.
func (bld *Builder) mustConnected(kind string, inputs ...Input) {
	for i, in := range inputs {
		if !in.IsConnected() {
			bld.inputErrorf("%s: arg[%d] must be connected", kind, i)
		}
	}
}

func (bld *Builder) add(e matbuild.Expression) Input {
	bld.g.nodes = append(bld.g.nodes, e)
	return Input{Node: NodeID(len(bld.g.nodes))}
}

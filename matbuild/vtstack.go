package matbuild

// MaxVTLayers is the number of layers a virtual texture stack holds.
const MaxVTLayers = 8

// VTStack is a group of virtual texture layers that share one page table
// lookup. Layers sample different virtual textures at the same coordinates.
type VTStack struct {
	// Layers holds the virtual texture slot sampled by each layer, or -1.
	Layers    [MaxVTLayers]int
	NumLayers int
	// PreallocatedTexture is the texture index of a runtime virtual texture
	// whose layer layout is fixed, or -1.
	PreallocatedTexture int
}

func newVTStack(preallocated int) VTStack {
	s := VTStack{PreallocatedTexture: preallocated}
	for i := range s.Layers {
		s.Layers[i] = -1
	}
	return s
}

// AddLayer allocates the next free layer and returns its index.
func (s *VTStack) AddLayer() int {
	if s.AreLayersFull() {
		panic("matbuild: virtual texture stack layers exhausted")
	}
	s.NumLayers++
	return s.NumLayers - 1
}

// SetLayer binds the virtual texture slot vtIndex to layer.
func (s *VTStack) SetLayer(layer, vtIndex int) int {
	if vtIndex < 0 || layer < 0 || layer >= MaxVTLayers {
		panic("matbuild: invalid virtual texture stack layer")
	}
	s.Layers[layer] = vtIndex
	s.NumLayers = max(layer+1, s.NumLayers)
	return layer
}

// FindLayer returns the layer bound to vtIndex, or -1.
func (s *VTStack) FindLayer(vtIndex int) int {
	for i := 0; i < s.NumLayers; i++ {
		if s.Layers[i] == vtIndex {
			return i
		}
	}
	return -1
}

// AreLayersFull reports whether no further layer can be added.
func (s *VTStack) AreLayersFull() bool { return s.NumLayers == MaxVTLayers }

// NumPageTables returns the number of page table textures the stack reads.
// Each page table texture serves four layers.
func (s *VTStack) NumPageTables() int {
	if s.NumLayers > 4 {
		return 2
	}
	return 1
}

// vtEntry holds the grouping key and page table code of a stack.
type vtEntry struct {
	scope     int
	coordHash uint64
	mip0Hash  uint64
	mip1Hash  uint64
	mode      MipValueMode
	addressU  TextureAddress
	addressV  TextureAddress
	aspect    float32
	// preallocated is the texture index of a runtime virtual texture or -1.
	preallocated int
	feedback     bool
	code         Code
}

// acquireVTStack returns the index of a stack sampled with the given
// parameters that has room for another layer, allocating a stack and
// emitting its page table lookup when none exists.
func (ctx Context) acquireVTStack(mode MipValueMode, addressU, addressV TextureAddress, aspect float32,
	coord, mip0, mip1 Code, preallocated int, feedback bool) int {
	t := ctx.t
	key := vtEntry{
		scope:        ctx.scope,
		coordHash:    ctx.parameterHash(coord),
		mip0Hash:     ctx.parameterHash(mip0),
		mip1Hash:     ctx.parameterHash(mip1),
		mode:         mode,
		addressU:     addressU,
		addressV:     addressV,
		aspect:       aspect,
		preallocated: preallocated,
		feedback:     feedback,
	}
	h := hashCombine(uint64(key.scope), key.coordHash)
	h = hashCombine(h, key.mip0Hash)
	h = hashCombine(h, key.mip1Hash)
	h = hashCombine(h, uint64(mode))
	h = hashCombine(h, uint64(addressU))
	h = hashCombine(h, uint64(addressV))
	h = hashCombine(h, uint64(aspect*1000))
	h = hashCombine(h, uint64(int64(preallocated)))
	h = hashCombine(h, uint64(b2i(feedback)))

	for _, idx := range t.vtHash[h] {
		e := t.vtEntries[idx]
		e.code = Code{}
		if e == key && !t.set.VTStacks[idx].AreLayersFull() {
			return idx
		}
	}

	idx := len(t.vtEntries)
	if t.vtHash == nil {
		t.vtHash = make(map[uint64][]int)
	}
	t.vtHash[h] = append(t.vtHash[h], idx)
	t.set.VTStacks = append(t.set.VTStacks, newVTStack(preallocated))
	t.log.Debug("allocated virtual texture stack", "stack", idx, "mode", mode, "preallocated", preallocated)

	feedbackParam := ""
	if feedback {
		feedbackParam = "Parameters.VirtualTextureFeedback,"
	}
	const unpack = "VTPageTableUniform_Unpack(Material.VTPackedPageTableUniform[%d*2], Material.VTPackedPageTableUniform[%d*2+1])"
	uv := ctx.CoerceParameter(coord, TypeFloat2)
	u, v := addressU.vtMode(), addressV.vtMode()
	switch mode {
	case MipNone:
		key.code = ctx.AddCodeChunk(TypeVTPageTableResult,
			"TextureLoadVirtualPageTable(VIRTUALTEXTURE_PAGETABLE_%d, "+unpack+", Parameters.SvPosition.xy, Parameters.VirtualTextureFeedback, %d + LIGHTMAP_VT_ENABLED, %s, %s, %s)",
			idx, idx, idx, idx, uv, u, v)
	case MipBias:
		key.code = ctx.AddCodeChunk(TypeVTPageTableResult,
			"TextureLoadVirtualPageTableBias(VIRTUALTEXTURE_PAGETABLE_%d, "+unpack+", Parameters.SvPosition.xy, Parameters.VirtualTextureFeedback, %d + LIGHTMAP_VT_ENABLED, %s, %s, %s, %s)",
			idx, idx, idx, idx, uv, u, v, ctx.CoerceParameter(mip0, TypeFloat1))
	case MipLevel:
		key.code = ctx.AddCodeChunk(TypeVTPageTableResult,
			"TextureLoadVirtualPageTableLevel(VIRTUALTEXTURE_PAGETABLE_%d, "+unpack+", %s %d + LIGHTMAP_VT_ENABLED, %s, %s, %s, %s)",
			idx, idx, idx, feedbackParam, idx, uv, u, v, ctx.CoerceParameter(mip0, TypeFloat1))
	case MipDerivative:
		key.code = ctx.AddCodeChunk(TypeVTPageTableResult,
			"TextureLoadVirtualPageTableGrad(VIRTUALTEXTURE_PAGETABLE_%d, "+unpack+", Parameters.SvPosition.xy, Parameters.VirtualTextureFeedback, %d + LIGHTMAP_VT_ENABLED, %s, %s, %s, %s, %s)",
			idx, idx, idx, idx, uv, u, v, ctx.CoerceParameter(mip0, TypeFloat2), ctx.CoerceParameter(mip1, TypeFloat2))
	default:
		panic("matbuild: invalid mip value mode")
	}
	t.vtEntries = append(t.vtEntries, key)
	return idx
}

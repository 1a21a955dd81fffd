package scene

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"deferred-viewer/internal/logging"
	"deferred-viewer/textures"
)

// LoadGLTF opens a .glb or .gltf file and flattens its default scene into a
// Model: one Mesh per triangle primitive, carrying the accumulated world
// transform of its node. Base-colour textures are decoded through cache,
// which may be nil.
func LoadGLTF(path string, cache *textures.Cache) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	if cache == nil {
		cache = textures.NewCache()
	}
	l := &gltfLoader{doc: doc, path: path, dir: filepath.Dir(path), cache: cache}
	return l.load()
}

type gltfLoader struct {
	doc   *gltf.Document
	path  string
	dir   string
	cache *textures.Cache

	materials []Material
	model     Model
}

func (l *gltfLoader) load() (*Model, error) {
	l.model.Name = filepath.Base(l.path)

	l.materials = make([]Material, len(l.doc.Materials))
	for i, gm := range l.doc.Materials {
		l.materials[i] = l.loadMaterial(gm)
	}

	visited := make([]bool, len(l.doc.Nodes))
	for _, root := range l.roots() {
		if err := l.visit(root, mgl32.Ident4(), visited); err != nil {
			return nil, err
		}
	}
	logging.Logger().Debug("gltf: loaded", "path", l.path, "meshes", len(l.model.Meshes))
	return &l.model, nil
}

// roots returns the default scene's nodes, or every parentless node when the
// document names no scene.
func (l *gltfLoader) roots() []int {
	doc := l.doc
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (l *gltfLoader) visit(idx int, parent mgl32.Mat4, visited []bool) error {
	if idx < 0 || idx >= len(l.doc.Nodes) {
		return fmt.Errorf("gltf: node index %d out of range", idx)
	}
	if visited[idx] {
		return fmt.Errorf("gltf: node %d reached twice", idx)
	}
	visited[idx] = true

	gn := l.doc.Nodes[idx]
	world := parent.Mul4(localMatrix(gn))
	if gn.Mesh != nil {
		if err := l.addMesh(*gn.Mesh, world); err != nil {
			return err
		}
	}
	for _, c := range gn.Children {
		if err := l.visit(c, world, visited); err != nil {
			return err
		}
	}
	return nil
}

// localMatrix returns the node's matrix, or T*R*S when it has none.
func localMatrix(gn *gltf.Node) mgl32.Mat4 {
	m := gn.MatrixOrDefault()
	if m != identity64 && m != ([16]float64{}) {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault()
	s := gn.ScaleOrDefault()
	rot := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func (l *gltfLoader) addMesh(meshIdx int, world mgl32.Mat4) error {
	if meshIdx >= len(l.doc.Meshes) {
		return fmt.Errorf("gltf: mesh index %d out of range", meshIdx)
	}
	gm := l.doc.Meshes[meshIdx]
	for pi, prim := range gm.Primitives {
		name := fmt.Sprintf("%s_p%d", gm.Name, pi)
		if gm.Name == "" {
			name = fmt.Sprintf("mesh%d_p%d", meshIdx, pi)
		}
		if prim.Mode != gltf.PrimitiveTriangles {
			logging.Logger().Warn("gltf: skipping non-triangle primitive", "mesh", name, "mode", prim.Mode)
			continue
		}
		geom, err := l.readPrimitive(prim)
		if err != nil {
			return fmt.Errorf("gltf: mesh %q: %w", name, err)
		}
		mat := DefaultMaterial()
		if prim.Material != nil && *prim.Material < len(l.materials) {
			mat = l.materials[*prim.Material]
		}
		if err := l.model.AddMesh(Mesh{Name: name, Geometry: geom, Material: mat, Transform: world}); err != nil {
			return err
		}
	}
	return nil
}

// readPrimitive reads positions, normals, first UV set and indices. Missing
// normals default to +Y, missing UVs to zero and missing indices to the
// vertex order.
func (l *gltfLoader) readPrimitive(prim *gltf.Primitive) (Geometry, error) {
	doc := l.doc
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return Geometry{}, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return Geometry{}, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return Geometry{}, fmt.Errorf("normals: %w", err)
		}
	}
	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return Geometry{}, fmt.Errorf("texcoords: %w", err)
		}
	}

	n := len(positions)
	g := Geometry{
		Positions: make([]float32, 0, n*3),
		Normals:   make([]float32, 0, n*3),
		UVs:       make([]float32, 0, n*2),
	}
	for i, p := range positions {
		g.Positions = append(g.Positions, p[0], p[1], p[2])
		if i < len(normals) {
			g.Normals = append(g.Normals, normals[i][0], normals[i][1], normals[i][2])
		} else {
			g.Normals = append(g.Normals, 0, 1, 0)
		}
		if i < len(uvs) {
			g.UVs = append(g.UVs, uvs[i][0], uvs[i][1])
		} else {
			g.UVs = append(g.UVs, 0, 0)
		}
	}

	if prim.Indices != nil {
		if g.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return Geometry{}, fmt.Errorf("indices: %w", err)
		}
	} else {
		g.Indices = make([]uint32, n-n%3)
		for i := range g.Indices {
			g.Indices[i] = uint32(i)
		}
	}
	return g, nil
}

func (l *gltfLoader) loadMaterial(gm *gltf.Material) Material {
	mat := DefaultMaterial()
	pbr := gm.PBRMetallicRoughness
	if pbr == nil {
		return mat
	}
	cf := pbr.BaseColorFactorOrDefault()
	mat.BaseColor = mgl32.Vec4{float32(cf[0]), float32(cf[1]), float32(cf[2]), float32(cf[3])}
	if pbr.BaseColorTexture != nil {
		tex, err := l.loadTexture(pbr.BaseColorTexture.Index)
		if err != nil {
			logging.Logger().Warn("gltf: base colour texture unavailable", "material", gm.Name, "err", err)
		}
		mat.Texture = tex
	}
	return mat
}

// loadTexture decodes the image behind a texture index from a buffer view,
// a data URI or a file next to the document.
func (l *gltfLoader) loadTexture(texIdx int) (*textures.Texture, error) {
	doc := l.doc
	if texIdx < 0 || texIdx >= len(doc.Textures) || doc.Textures[texIdx].Source == nil {
		return nil, fmt.Errorf("texture %d has no image", texIdx)
	}
	imgIdx := *doc.Textures[texIdx].Source
	if imgIdx >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imgIdx)
	}
	img := doc.Images[imgIdx]
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("image%d", imgIdx)
	}

	switch {
	case img.BufferView != nil:
		key := fmt.Sprintf("%s#image%d", l.path, imgIdx)
		return l.cache.Get(key, func() (*textures.Texture, error) {
			raw, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			if err != nil {
				return nil, fmt.Errorf("image %d buffer view: %w", imgIdx, err)
			}
			return textures.DecodeBytes(name, raw)
		})
	case img.IsEmbeddedResource():
		key := fmt.Sprintf("%s#image%d", l.path, imgIdx)
		return l.cache.Get(key, func() (*textures.Texture, error) {
			raw, err := img.MarshalData()
			if err != nil {
				return nil, fmt.Errorf("image %d data uri: %w", imgIdx, err)
			}
			return textures.DecodeBytes(name, raw)
		})
	case img.URI != "":
		return l.cache.Load(filepath.Join(l.dir, img.URI))
	}
	return nil, fmt.Errorf("image %d has no data", imgIdx)
}

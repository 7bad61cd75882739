package mesh

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wave-glsl/fspt/asset"
	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/types"
)

type wavefrontReader struct {
	logger log.Logger

	mesh *Mesh

	// Material library contents and the group currently receiving faces.
	materials map[string]*Material
	curGroup  *Group

	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	// Extra error context accumulated while descending into included
	// files (mtllib and call directives).
	errStack []string
}

// Load a wavefront OBJ mesh together with its material libraries. Faces are
// triangulated with a fan and grouped by their active material in first-use
// order.
func Load(res *asset.Resource) (*Mesh, error) {
	r := &wavefrontReader{
		logger:    log.New("mesh"),
		mesh:      &Mesh{Bounds: scene.NewBoundingBox()},
		materials: make(map[string]*Material),
	}

	r.logger.Noticef("parsing mesh from %s", res.Path())
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}
	if r.mesh.TriangleCount() == 0 {
		return nil, r.emitError(res.Path(), 0, "mesh defines no faces")
	}

	r.logger.Noticef("parsed %d triangles in %d ms", r.mesh.TriangleCount(), time.Since(start).Nanoseconds()/1e6)
	return r.mesh, nil
}

func (r *wavefrontReader) parse(res *asset.Resource) error {
	var lineNum int

	scanner := bufio.NewScanner(res)
	scanner.Buffer(make([]byte, 0, 512*1024), 512*1024)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		var err error
		switch lineTokens[0] {
		case "call", "mtllib":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "'%s' expects 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.Open(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%v", err)
			}

			if lineTokens[0] == "call" {
				err = r.parse(incRes)
			} else {
				err = r.parseMaterials(incRes)
			}
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "usemtl":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "'usemtl' expects 1 argument; got %d", len(lineTokens)-1)
			}

			mat, exists := r.materials[lineTokens[1]]
			if !exists {
				return r.emitError(res.Path(), lineNum, "undefined material '%s'", lineTokens[1])
			}
			r.selectGroup(mat)
		case "v":
			var v types.Vec3
			v, err = parseVec3(lineTokens)
			r.vertexList = append(r.vertexList, v)
		case "vn":
			var v types.Vec3
			v, err = parseVec3(lineTokens)
			r.normalList = append(r.normalList, v)
		case "vt":
			var v types.Vec2
			v, err = parseVec2(lineTokens)
			r.uvList = append(r.uvList, v)
		case "f":
			err = r.parseFace(lineTokens)
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, "%v", err)
		}
	}

	return scanner.Err()
}

// Switch the face sink to the group for the given material, creating it on
// first use so group order follows the order materials first appear.
func (r *wavefrontReader) selectGroup(mat *Material) {
	for _, g := range r.mesh.Groups {
		if g.Material == mat {
			r.curGroup = g
			return
		}
	}
	r.curGroup = &Group{Material: mat}
	r.mesh.Groups = append(r.mesh.Groups, r.curGroup)
}

// The material used for faces that appear before any usemtl directive.
func (r *wavefrontReader) defaultMaterial() *Material {
	if mat, exists := r.materials[""]; exists {
		return mat
	}
	kd := types.Vec3{0.7, 0.7, 0.7}
	mat := &Material{Kd: &kd}
	r.materials[""] = mat
	return mat
}

// Parse a face row. Each vertex argument is 1 to 3 slash-separated indices
// (vertex, vertex/uv, vertex//normal or vertex/uv/normal); indices start at 1
// and may be negative to count from the end of the coord lists. Faces with
// more than three vertices are triangulated as a fan around the first vertex.
func (r *wavefrontReader) parseFace(lineTokens []string) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf("'f' expects at least 3 arguments; got %d", len(lineTokens)-1)
	}

	type corner struct {
		vert      types.Vec3
		uv        types.Vec2
		normal    types.Vec3
		hasNormal bool
	}

	corners := make([]corner, len(lineTokens)-1)
	for arg := range corners {
		vTokens := strings.Split(lineTokens[arg+1], "/")
		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		offset, err := faceCoordIndex(vTokens[0], len(r.vertexList))
		if err != nil {
			return fmt.Errorf("vertex coord for face argument %d: %v", arg, err)
		}
		corners[arg].vert = r.vertexList[offset]

		if len(vTokens) > 1 && vTokens[1] != "" {
			offset, err = faceCoordIndex(vTokens[1], len(r.uvList))
			if err != nil {
				return fmt.Errorf("tex coord for face argument %d: %v", arg, err)
			}
			corners[arg].uv = r.uvList[offset]
		}

		if len(vTokens) > 2 && vTokens[2] != "" {
			offset, err = faceCoordIndex(vTokens[2], len(r.normalList))
			if err != nil {
				return fmt.Errorf("normal coord for face argument %d: %v", arg, err)
			}
			corners[arg].normal = r.normalList[offset]
			corners[arg].hasNormal = true
		}
	}

	if r.curGroup == nil {
		r.selectGroup(r.defaultMaterial())
	}

	for i := 1; i+1 < len(corners); i++ {
		fan := [3]corner{corners[0], corners[i], corners[i+1]}

		tri := &scene.Triangle{
			Verts: [3]types.Vec3{fan[0].vert, fan[1].vert, fan[2].vert},
			UVs:   [3]types.Vec2{fan[0].uv, fan[1].uv, fan[2].uv},
		}

		faceNormal := fan[1].vert.Sub(fan[0].vert).Cross(fan[2].vert.Sub(fan[0].vert)).Normalize()
		for c := 0; c < 3; c++ {
			if fan[c].hasNormal {
				tri.Normals[c] = fan[c].normal.Normalize()
			} else {
				tri.Normals[c] = faceNormal
			}
		}

		tangent, bitangent := tangentBasis(tri.Verts, tri.UVs, faceNormal)
		for c := 0; c < 3; c++ {
			tri.Tangents[c] = tangent
			tri.Bitangents[c] = bitangent
		}

		r.curGroup.Triangles = append(r.curGroup.Triangles, tri)
		for c := 0; c < 3; c++ {
			r.mesh.Bounds.AddPoint(tri.Verts[c])
		}
	}

	return nil
}

// Derive the face tangent frame from the UV parameterization. Degenerate UVs
// fall back to an arbitrary frame perpendicular to the face normal.
func tangentBasis(verts [3]types.Vec3, uvs [3]types.Vec2, normal types.Vec3) (types.Vec3, types.Vec3) {
	edge1 := verts[1].Sub(verts[0])
	edge2 := verts[2].Sub(verts[0])
	duv1 := uvs[1].Sub(uvs[0])
	duv2 := uvs[2].Sub(uvs[0])

	det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
	if det > -1e-8 && det < 1e-8 {
		axis := types.Vec3{0, 1, 0}
		if normal[1] > 0.999 || normal[1] < -0.999 {
			axis = types.Vec3{1, 0, 0}
		}
		tangent := normal.Cross(axis).Normalize()
		return tangent, normal.Cross(tangent)
	}

	inv := 1.0 / det
	tangent := edge1.Mul(duv2[1]).Sub(edge2.Mul(duv1[1])).Mul(inv).Normalize()
	bitangent := edge2.Mul(duv1[0]).Sub(edge1.Mul(duv2[0])).Mul(inv).Normalize()
	return tangent, bitangent
}

// Parse a wavefront material library.
func (r *wavefrontReader) parseMaterials(res *asset.Resource) error {
	var lineNum int
	var curMaterial *Material

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		key := strings.ToLower(lineTokens[0])
		if key == "newmtl" {
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, "'newmtl' expects 1 argument; got %d", len(lineTokens)-1)
			}

			matName := lineTokens[1]
			if _, exists := r.materials[matName]; exists {
				return r.emitError(res.Path(), lineNum, "material '%s' already defined", matName)
			}

			curMaterial = &Material{Name: matName, Base: res}
			r.materials[matName] = curMaterial
			continue
		}

		if curMaterial == nil {
			return r.emitError(res.Path(), lineNum, "got '%s' without a 'newmtl'", lineTokens[0])
		}

		var err error
		switch key {
		case "kd", "pmr", "kem", "ke":
			var v types.Vec3
			if v, err = parseVec3(lineTokens); err == nil {
				c := v
				switch key {
				case "kd":
					curMaterial.Kd = &c
				case "pmr":
					curMaterial.Pmr = &c
				default:
					curMaterial.Kem = &c
				}
			}
		case "ni":
			var v float32
			if v, err = parseFloat32(lineTokens); err == nil {
				curMaterial.Ior = &v
			}
		case "dielectric":
			var v float32
			if v, err = parseFloat32(lineTokens); err == nil {
				curMaterial.Dielectric = &v
			}
		case "map_kd", "map_pmr", "map_kem", "map_ke", "map_bump", "bump":
			if len(lineTokens) < 2 {
				err = fmt.Errorf("'%s' expects a path argument", lineTokens[0])
				break
			}
			switch key {
			case "map_kd":
				curMaterial.MapKd = lineTokens[1]
			case "map_pmr":
				curMaterial.MapPmr = lineTokens[1]
				if len(lineTokens) > 2 {
					curMaterial.PmrSwizzle = lineTokens[2]
				}
			case "map_kem", "map_ke":
				curMaterial.MapKem = lineTokens[1]
			default:
				curMaterial.MapBump = lineTokens[1]
			}
		}

		if err != nil {
			return r.emitError(res.Path(), lineNum, "%v", err)
		}
	}

	return scanner.Err()
}

// Build an error that carries the include stack alongside the failing line.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = fmt.Sprintf("[%s: %d] error: %s", file, line, msg)
	} else {
		errMsg = fmt.Sprintf("error: %s", msg)
	}
	if len(r.errStack) > 0 {
		errMsg += "\n" + strings.Join(r.errStack, "\n")
	}

	return fmt.Errorf("%s", errMsg)
}

func (r *wavefrontReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *wavefrontReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Map a face coord token onto an offset into the coord list. Negative
// indices reference elements from the end of the list.
func faceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = coordListLen + int(index)
	} else {
		offset = int(index - 1)
	}
	if offset < 0 || offset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return offset, nil
}

func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf("'%s' expects 1 argument; got %d", lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}
	return float32(val), nil
}

func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf("'%s' expects 3 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

func parseVec2(lineTokens []string) (types.Vec2, error) {
	if len(lineTokens) < 3 {
		return types.Vec2{}, fmt.Errorf("'%s' expects 2 arguments; got %d", lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec2{}
	for tokIdx := 1; tokIdx <= 2; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}

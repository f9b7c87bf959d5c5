package geom

import "math"

// V2f is a 2-component float32 vector, used for texture coordinates.
type V2f [2]float32

// V3f is a 3-component float32 vector, used for positions, normals, and
// velocities.
type V3f [3]float32

// M44d is a 4x4 float64 matrix in row-major order with the row-vector
// convention: a point transforms as v' = v * M and the translation lives in
// row 3.
type M44d [16]float64

// Identity returns the identity matrix.
func Identity() M44d {
	return M44d{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m * n. With the row-vector convention applying m.Mul(n) to a
// point transforms it by m first and n second.
func (m M44d) Mul(n M44d) M44d {
	var out M44d
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[r*4+k] * n[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return out
}

func translateMatrix(x, y, z float64) M44d {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

func scaleMatrix(x, y, z float64) M44d {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

func rotateXMatrix(deg float64) M44d {
	s, c := math.Sincos(deg * math.Pi / 180)
	m := Identity()
	m[5], m[6] = c, s
	m[9], m[10] = -s, c
	return m
}

func rotateYMatrix(deg float64) M44d {
	s, c := math.Sincos(deg * math.Pi / 180)
	m := Identity()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

func rotateZMatrix(deg float64) M44d {
	s, c := math.Sincos(deg * math.Pi / 180)
	m := Identity()
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}

func axisAngleMatrix(x, y, z, deg float64) M44d {
	l := math.Sqrt(x*x + y*y + z*z)
	if l == 0 {
		return Identity()
	}
	x, y, z = x/l, y/l, z/l
	s, c := math.Sincos(deg * math.Pi / 180)
	t := 1 - c
	return M44d{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

func flatten3(vs []V3f) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flatten2(vs []V2f) []float32 {
	out := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}

func group3(flat []float32) []V3f {
	out := make([]V3f, len(flat)/3)
	for i := range out {
		out[i] = V3f{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out
}

func group2(flat []float32) []V2f {
	out := make([]V2f, len(flat)/2)
	for i := range out {
		out[i] = V2f{flat[i*2], flat[i*2+1]}
	}
	return out
}

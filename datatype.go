package bake

import "fmt"

// Pod identifies a plain-old-data element type.
type Pod uint8

// Wire codes for element types. These are stored in property headers and
// must not be renumbered.
const (
	PodBool Pod = iota
	PodInt8
	PodUint8
	PodInt16
	PodUint16
	PodInt32
	PodUint32
	PodInt64
	PodUint64
	PodFloat16
	PodFloat32
	PodFloat64
	PodString

	podCount
)

var podNames = [...]string{
	PodBool:    "bool",
	PodInt8:    "int8",
	PodUint8:   "uint8",
	PodInt16:   "int16",
	PodUint16:  "uint16",
	PodInt32:   "int32",
	PodUint32:  "uint32",
	PodInt64:   "int64",
	PodUint64:  "uint64",
	PodFloat16: "float16",
	PodFloat32: "float32",
	PodFloat64: "float64",
	PodString:  "string",
}

var podSizes = [...]int{
	PodBool:    1,
	PodInt8:    1,
	PodUint8:   1,
	PodInt16:   2,
	PodUint16:  2,
	PodInt32:   4,
	PodUint32:  4,
	PodInt64:   8,
	PodUint64:  8,
	PodFloat16: 2,
	PodFloat32: 4,
	PodFloat64: 8,
	PodString:  0,
}

func (p Pod) String() string {
	if !p.Valid() {
		return fmt.Sprintf("pod(%d)", uint8(p))
	}
	return podNames[p]
}

// Valid reports whether p is a known element type.
func (p Pod) Valid() bool { return p < podCount }

// ByteSize returns the storage size of one value, or 0 for variable-length
// types.
func (p Pod) ByteSize() int {
	if !p.Valid() {
		return 0
	}
	return podSizes[p]
}

// DataType describes a property element: a plain-old-data type and the
// number of those values packed into each element (1 for plain values,
// 3 for a 3-vector, 16 for a 4x4 matrix, and so on).
type DataType struct {
	Pod    Pod
	Extent uint8
}

func (dt DataType) String() string {
	if dt.Extent <= 1 {
		return dt.Pod.String()
	}
	return fmt.Sprintf("%s[%d]", dt.Pod, dt.Extent)
}

// Valid reports whether dt names a usable element type.
func (dt DataType) Valid() bool {
	return dt.Pod.Valid() && dt.Extent >= 1 && !(dt.Pod == PodString && dt.Extent != 1)
}

// Values returns the number of plain values in one element.
func (dt DataType) Values() int { return int(dt.Extent) }

// Common data types used by the geometry schemas.
var (
	BoolType    = DataType{Pod: PodBool, Extent: 1}
	Uint8Type   = DataType{Pod: PodUint8, Extent: 1}
	Int8Type    = DataType{Pod: PodInt8, Extent: 1}
	Int32Type   = DataType{Pod: PodInt32, Extent: 1}
	Uint64Type  = DataType{Pod: PodUint64, Extent: 1}
	Float32Type = DataType{Pod: PodFloat32, Extent: 1}
	Float64Type = DataType{Pod: PodFloat64, Extent: 1}
	StringType  = DataType{Pod: PodString, Extent: 1}
	V2fType     = DataType{Pod: PodFloat32, Extent: 2}
	V3fType     = DataType{Pod: PodFloat32, Extent: 3}
	V3dType     = DataType{Pod: PodFloat64, Extent: 3}
	M44dType    = DataType{Pod: PodFloat64, Extent: 16}
)

// Scope describes how a property's values correspond to mesh elements.
type Scope uint8

// Wire codes for scopes. These are stored in property headers and must not
// be renumbered.
const (
	ScopeConstant Scope = iota
	ScopeUniform
	ScopeVarying
	ScopeVertex
	ScopeFaceVarying

	scopeCount
)

var scopeNames = [...]string{
	ScopeConstant:    "constant",
	ScopeUniform:     "uniform",
	ScopeVarying:     "varying",
	ScopeVertex:      "vertex",
	ScopeFaceVarying: "faceVarying",
}

func (s Scope) String() string {
	if !s.Valid() {
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
	return scopeNames[s]
}

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool { return s < scopeCount }

// PropertyKind discriminates the three property kinds.
type PropertyKind uint8

const (
	KindScalar PropertyKind = iota
	KindArray
	KindCompound

	propertyKindCount
)

var propertyKindNames = [...]string{
	KindScalar:   "scalar",
	KindArray:    "array",
	KindCompound: "compound",
}

func (k PropertyKind) String() string {
	if k >= propertyKindCount {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return propertyKindNames[k]
}

// Package shaders holds the compiled SPIR-V of the triangle pipeline.
package shaders

import "embed"

//go:generate ./compile.sh

// FS holds one SPIR-V module per pipeline stage. `go generate` rebuilds them
// from the GLSL sources next to this file.
//
//go:embed frag.spv
//go:embed vert.spv
var FS embed.FS

// File names of the shader stages within FS.
const (
	Vertex   = "vert.spv"
	Fragment = "frag.spv"
)

package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// Language identifies the shading language a backend consumes.
type Language uint8

const (
	// WGSL is consumed by the explicit backend.
	WGSL Language = iota + 1

	// GLSL330 is consumed by the legacy backend on OpenGL 3.3 core.
	GLSL330

	// GLSL120 is consumed by the legacy backend on OpenGL 2.1.
	GLSL120
)

// String returns the language name.
func (l Language) String() string {
	switch l {
	case WGSL:
		return "wgsl"
	case GLSL330:
		return "glsl330"
	case GLSL120:
		return "glsl120"
	default:
		return fmt.Sprintf("Language(%d)", uint8(l))
	}
}

// Ext returns the file extension for sources in this language.
func (l Language) Ext() string {
	switch l {
	case WGSL:
		return ".wgsl"
	case GLSL330:
		return ".330.glsl"
	case GLSL120:
		return ".120.glsl"
	default:
		return ""
	}
}

// FragmentMarker separates the vertex and fragment stages of a GLSL file.
const FragmentMarker = "//Fragment shader"

// Entry points expected in WGSL sources.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// Parse errors.
var (
	// ErrUnknownLanguage is returned for a Language outside the defined set.
	ErrUnknownLanguage = errors.New("shader: unknown language")

	// ErrMissingStage is returned when a GLSL source lacks the fragment
	// marker or one of its stages is empty.
	ErrMissingStage = errors.New("shader: missing shader stage")

	// ErrMissingEntryPoint is returned when a WGSL source lacks vs_main or fs_main.
	ErrMissingEntryPoint = errors.New("shader: missing entry point")
)

// Module is a loaded shader ready for a backend to compile.
// Modules are immutable once returned by a Loader.
type Module struct {
	// Path is the backend-neutral shader path, e.g. "flat".
	Path string

	// Lang is the language of the sources below.
	Lang Language

	// Source is the WGSL source. Empty for GLSL modules.
	Source string

	// SPIRV holds the naga compilation of Source. Empty for GLSL modules.
	SPIRV []uint32

	// Vertex and Fragment are the GLSL stages. Empty for WGSL modules.
	Vertex   string
	Fragment string
}

// CompileError reports a shader that could not be parsed or validated.
type CompileError struct {
	Path string
	Lang Language
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader: compile %s (%s): %v", e.Path, e.Lang, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Parse builds a Module from raw source text.
// WGSL sources are compiled to SPIR-V; GLSL sources are split into stages.
func Parse(path string, lang Language, src string) (*Module, error) {
	switch lang {
	case WGSL:
		return parseWGSL(path, src)
	case GLSL330, GLSL120:
		vs, fs, err := SplitStages(src)
		if err != nil {
			return nil, &CompileError{Path: path, Lang: lang, Err: err}
		}
		return &Module{Path: path, Lang: lang, Vertex: vs, Fragment: fs}, nil
	default:
		return nil, &CompileError{Path: path, Lang: lang, Err: ErrUnknownLanguage}
	}
}

// SplitStages splits a GLSL file on FragmentMarker.
// The marker line itself belongs to neither stage.
func SplitStages(src string) (vertex, fragment string, err error) {
	vertex, fragment, ok := strings.Cut(src, FragmentMarker)
	if !ok {
		return "", "", ErrMissingStage
	}
	vertex = strings.TrimSpace(vertex)
	fragment = strings.TrimSpace(fragment)
	if vertex == "" || fragment == "" {
		return "", "", ErrMissingStage
	}
	return vertex + "\n", fragment + "\n", nil
}

func parseWGSL(path, src string) (*Module, error) {
	if !strings.Contains(src, VertexEntry) || !strings.Contains(src, FragmentEntry) {
		return nil, &CompileError{Path: path, Lang: WGSL, Err: ErrMissingEntryPoint}
	}
	spirv, err := compileSPIRV(src)
	if err != nil {
		return nil, &CompileError{Path: path, Lang: WGSL, Err: err}
	}
	return &Module{Path: path, Lang: WGSL, Source: src, SPIRV: spirv}, nil
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(src string) ([]uint32, error) {
	b, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("spir-v length %d is not a multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words, nil
}

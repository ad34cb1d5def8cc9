package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrCompile is the sentinel wrapped by every CompileError.
var ErrCompile = errors.New("shader: compilation failed")

// CompileError carries the diagnostics of a rejected shader.
type CompileError struct {
	Label    string
	Messages []string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("shader %q: %s", e.Label, strings.Join(e.Messages, "; "))
}

// Unwrap returns ErrCompile.
func (e *CompileError) Unwrap() error { return ErrCompile }

// Contract lists the names a program must expose.
type Contract struct {
	// Bindings are module-scope resource names (uniforms, textures).
	Bindings []string

	// Attributes are vertex inputs with a @location binding.
	Attributes []string

	// Vertex and Fragment are the required entry points.
	Vertex, Fragment string
}

// InstanceAttributes are the per-instance vertex inputs of the stipple programs.
var InstanceAttributes = []string{
	"translation", "scale", "colormap_scale", "rotation", "texture_rotation", "gamma",
}

// StippleContract is the interface of the plain stipple program.
var StippleContract = Contract{
	Bindings:   []string{"aspect_ratio", "discard_threshold", "source_mask", "source_colormap"},
	Attributes: InstanceAttributes,
	Vertex:     VertexEntry,
	Fragment:   FragmentEntry,
}

// TexturedContract is the interface of the textured stipple program.
var TexturedContract = Contract{
	Bindings:   []string{"aspect_ratio", "discard_threshold", "source_mask", "source_colormap", "source_texture"},
	Attributes: InstanceAttributes,
	Vertex:     VertexEntry,
	Fragment:   FragmentEntry,
}

// ProceduralContract is the interface of procedural texture programs.
var ProceduralContract = Contract{
	Vertex:   VertexEntry,
	Fragment: FragmentEntry,
}

// Report is the outcome of a successful check.
type Report struct {
	// Warnings are non-fatal diagnostics, such as contract names the
	// module does not declare.
	Warnings []string

	// Module is the validated IR.
	Module *ir.Module
}

// Check parses, lowers and validates WGSL source, then compares the module
// against the contract. Syntax, type and validation failures are returned
// as *CompileError. A missing entry point is fatal; missing bindings or
// attributes are reported as warnings.
func Check(label, src string, c Contract) (*Report, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, &CompileError{Label: label, Messages: []string{err.Error()}}
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, &CompileError{Label: label, Messages: []string{err.Error()}}
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, &CompileError{Label: label, Messages: []string{err.Error()}}
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i := range verrs {
			msgs[i] = verrs[i].Error()
		}
		return nil, &CompileError{Label: label, Messages: msgs}
	}

	report := &Report{Module: module}
	stages := entryPoints(module)
	for _, want := range []struct {
		name  string
		stage ir.ShaderStage
	}{{c.Vertex, ir.StageVertex}, {c.Fragment, ir.StageFragment}} {
		if want.name == "" {
			continue
		}
		if stage, ok := stages[want.name]; !ok || stage != want.stage {
			return nil, &CompileError{
				Label:    label,
				Messages: []string{fmt.Sprintf("missing entry point %q", want.name)},
			}
		}
	}

	globals := globalNames(module)
	for _, name := range c.Bindings {
		if !globals[name] {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: binding %q not declared", label, name))
		}
	}
	if len(c.Attributes) > 0 {
		attrs := vertexInputs(module, c.Vertex)
		for _, name := range c.Attributes {
			if !attrs[name] {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: attribute %q not declared", label, name))
			}
		}
	}
	return report, nil
}

func entryPoints(m *ir.Module) map[string]ir.ShaderStage {
	out := make(map[string]ir.ShaderStage, len(m.EntryPoints))
	for i := range m.EntryPoints {
		out[m.EntryPoints[i].Name] = m.EntryPoints[i].Stage
	}
	return out
}

func globalNames(m *ir.Module) map[string]bool {
	out := make(map[string]bool, len(m.GlobalVariables))
	for i := range m.GlobalVariables {
		if m.GlobalVariables[i].Binding != nil {
			out[m.GlobalVariables[i].Name] = true
		}
	}
	return out
}

// vertexInputs collects the names of location-bound inputs of the vertex
// entry point, looking through struct-typed arguments.
func vertexInputs(m *ir.Module, entry string) map[string]bool {
	out := make(map[string]bool)
	for i := range m.EntryPoints {
		ep := &m.EntryPoints[i]
		if ep.Name != entry || ep.Stage != ir.StageVertex {
			continue
		}
		for _, arg := range ep.Function.Arguments {
			if isLocation(arg.Binding) {
				out[arg.Name] = true
				continue
			}
			for _, member := range structMembers(m, arg.Type) {
				if isLocation(member.Binding) {
					out[member.Name] = true
				}
			}
		}
	}
	return out
}

func structMembers(m *ir.Module, h ir.TypeHandle) []ir.StructMember {
	if int(h) >= len(m.Types) {
		return nil
	}
	switch st := m.Types[h].Inner.(type) {
	case ir.StructType:
		return st.Members
	case *ir.StructType:
		return st.Members
	}
	return nil
}

func isLocation(b *ir.Binding) bool {
	if b == nil {
		return false
	}
	switch (*b).(type) {
	case ir.LocationBinding, *ir.LocationBinding:
		return true
	}
	return false
}

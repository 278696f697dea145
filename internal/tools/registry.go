package tools

import "github.com/nogbrian/agentloop/internal/agentic"

// ToolSet selects which builtin tool groups to register.
type ToolSet struct {
	Clock      bool
	Calculator bool
	HTTP       bool
	Filesystem bool
}

// DefaultToolSet enables everything except filesystem access, which needs
// an explicit root.
func DefaultToolSet() ToolSet {
	return ToolSet{Clock: true, Calculator: true, HTTP: true}
}

// NewToolRegistry builds an agentic.ToolRegistry with the selected builtin
// tools. root is only used when Filesystem is enabled.
func NewToolRegistry(root string, set ToolSet) agentic.ToolRegistry {
	reg := make(agentic.ToolRegistry)

	if set.Clock {
		reg.Register(NewClockTool())
	}
	if set.Calculator {
		reg.Register(NewCalculatorTool())
	}
	if set.HTTP {
		reg.Register(NewHTTPGetTool())
	}
	if set.Filesystem && root != "" {
		reg.Register(NewReadFileTool(root))
		reg.Register(NewListFilesTool(root))
	}

	return reg
}

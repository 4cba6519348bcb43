// Package tools defines the ToolExecutor capability consumed by Agent
// Runners: file read/write/edit, command execution, grep, directory
// listing, and two networked tools (web search, web fetch).
package tools

import "context"

// Result is the outcome of a single tool invocation.
type Result struct {
	Success bool
	Output  string
}

// Executor runs a named tool with the given arguments. Implementations are
// injected at coordinator construction; the core never hard-codes a tool's
// side effects.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) (Result, error)
}

// Names of the built-in tool roster.
const (
	ToolReadFile   = "read_file"
	ToolWriteFile  = "write_file"
	ToolEditFile   = "edit_file"
	ToolRunCommand = "run_command"
	ToolSearchCode = "search_code"
	ToolListFiles  = "list_files"
	ToolWebSearch  = "web_search"
	ToolWebFetch   = "web_fetch"
)

// Whitelist returns the fixed per-role tool whitelist.
func Whitelist(role string) []string {
	switch role {
	case "coder", "tester":
		return []string{ToolReadFile, ToolWriteFile, ToolEditFile, ToolRunCommand, ToolSearchCode, ToolListFiles}
	case "reviewer":
		return []string{ToolReadFile, ToolSearchCode, ToolListFiles}
	case "merger":
		return []string{ToolReadFile, ToolRunCommand, ToolWriteFile}
	default:
		return nil
	}
}

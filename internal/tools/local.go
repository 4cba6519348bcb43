package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// LocalExecutor implements Executor against the local filesystem and
// shell, rooted at Dir. It is the default Executor wired into the
// coordinator's Coder and Reviewer runners by internal/cli/run.go.
type LocalExecutor struct {
	Dir string
}

func (e *LocalExecutor) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.Dir, path)
}

func (e *LocalExecutor) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	switch name {
	case ToolReadFile:
		return e.readFile(args)
	case ToolWriteFile:
		return e.writeFile(args)
	case ToolEditFile:
		return e.editFile(args)
	case ToolRunCommand:
		return e.runCommand(ctx, args)
	case ToolSearchCode:
		return e.searchCode(args)
	case ToolListFiles:
		return e.listFiles(args)
	default:
		return Result{}, fmt.Errorf("tools: unknown tool %q", name)
	}
}

func strArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func (e *LocalExecutor) readFile(args map[string]any) (Result, error) {
	data, err := os.ReadFile(e.resolve(strArg(args, "path")))
	if err != nil {
		return Result{Success: false, Output: err.Error()}, nil
	}
	return Result{Success: true, Output: string(data)}, nil
}

func (e *LocalExecutor) writeFile(args map[string]any) (Result, error) {
	path := e.resolve(strArg(args, "path"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{Success: false, Output: err.Error()}, nil
	}
	if err := os.WriteFile(path, []byte(strArg(args, "content")), 0o644); err != nil {
		return Result{Success: false, Output: err.Error()}, nil
	}
	return Result{Success: true, Output: "wrote " + path}, nil
}

func (e *LocalExecutor) editFile(args map[string]any) (Result, error) {
	path := e.resolve(strArg(args, "path"))
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Success: false, Output: err.Error()}, nil
	}
	oldStr, newStr := strArg(args, "old"), strArg(args, "new")
	replaced := strings.Replace(string(data), oldStr, newStr, 1)
	if replaced == string(data) && oldStr != "" {
		return Result{Success: false, Output: "old string not found"}, nil
	}
	if err := os.WriteFile(path, []byte(replaced), 0o644); err != nil {
		return Result{Success: false, Output: err.Error()}, nil
	}
	return Result{Success: true, Output: "edited " + path}, nil
}

func (e *LocalExecutor) runCommand(ctx context.Context, args map[string]any) (Result, error) {
	command := strArg(args, "command")
	if command == "" {
		return Result{Success: false, Output: "empty command"}, nil
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return Result{Success: err == nil, Output: out.String()}, nil
}

func (e *LocalExecutor) searchCode(args map[string]any) (Result, error) {
	pattern := strArg(args, "pattern")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Result{Success: false, Output: err.Error()}, nil
	}
	var matches []string
	_ = filepath.Walk(e.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", path, i+1, line))
			}
		}
		return nil
	})
	return Result{Success: true, Output: strings.Join(matches, "\n")}, nil
}

func (e *LocalExecutor) listFiles(args map[string]any) (Result, error) {
	root := e.Dir
	if sub := strArg(args, "path"); sub != "" {
		root = e.resolve(sub)
	}
	var names []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() && strings.HasPrefix(info.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		names = append(names, path)
		return nil
	})
	return Result{Success: true, Output: strings.Join(names, "\n")}, nil
}

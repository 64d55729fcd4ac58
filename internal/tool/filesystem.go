package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"streamtap/internal/security"
)

const maxReadBytes = 50000

// FilesystemTool reads, writes and lists files inside one workspace directory.
type FilesystemTool struct {
	workspaceDir string
}

func NewFilesystemTool(workspaceDir string) *FilesystemTool {
	return &FilesystemTool{workspaceDir: workspaceDir}
}

func (t *FilesystemTool) Name() string { return "filesystem" }

func (t *FilesystemTool) Description() string {
	return "Read or write files within the workspace directory. Use action 'read' to read a file, 'write' to create or overwrite a file, 'list' to list directory contents."
}

func (t *FilesystemTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["read", "write", "list"],
				"description": "The file operation to perform"
			},
			"path": {
				"type": "string",
				"description": "Relative path within workspace"
			},
			"content": {
				"type": "string",
				"description": "Content to write (only for 'write' action)"
			}
		},
		"required": ["action", "path"]
	}`)
}

func (t *FilesystemTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Action  string `json:"action"`
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return errorResult("invalid arguments: " + err.Error()), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := t.resolve(params.Path)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	switch params.Action {
	case "read":
		return readFile(fullPath), nil
	case "write":
		return writeFile(fullPath, params.Content), nil
	case "list":
		return listDir(fullPath), nil
	default:
		return errorResult("unknown action: " + params.Action), nil
	}
}

func (t *FilesystemTool) resolve(relPath string) (string, error) {
	if t.workspaceDir == "" {
		return "", fmt.Errorf("workspace directory not configured")
	}
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("absolute paths not allowed")
	}
	fullPath, err := security.ResolveInWorkspace(t.workspaceDir, relPath)
	if err != nil {
		return "", err
	}

	// The nearest existing ancestor must not be a symlink leading out.
	root, err := filepath.EvalSymlinks(t.workspaceDir)
	if err != nil {
		root = t.workspaceDir
	}
	for p := fullPath; ; p = filepath.Dir(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			if !security.IsPathSafe(resolved, root) {
				return "", fmt.Errorf("symlink escapes workspace")
			}
			break
		}
		if filepath.Dir(p) == p {
			break
		}
	}
	return fullPath, nil
}

func errorResult(msg string) *Result {
	return &Result{Error: msg, IsError: true}
}

func readFile(path string) *Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return errorResult("failed to read file: " + err.Error())
	}
	output := string(data)
	if len(output) > maxReadBytes {
		output = output[:maxReadBytes] + "\n... (file truncated)"
	}
	return &Result{Output: output}
}

func writeFile(path, content string) *Result {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errorResult("failed to create directory: " + err.Error())
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return errorResult("failed to write file: " + err.Error())
	}
	return &Result{Output: fmt.Sprintf("File written: %s (%d bytes)", filepath.Base(path), len(content))}
}

func listDir(path string) *Result {
	entries, err := os.ReadDir(path)
	if err != nil {
		return errorResult("failed to list directory: " + err.Error())
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		prefix := "  "
		if e.IsDir() {
			prefix = "d "
		}
		lines = append(lines, prefix+e.Name())
	}
	return &Result{Output: strings.Join(lines, "\n")}
}

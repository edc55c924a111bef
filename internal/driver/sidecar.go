package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ResolveSidecar locates the bundled executable called name. Absolute paths
// are used as-is. Otherwise the directory holding the shell binary is checked
// first, both for name and for name-<goos>-<goarch> as produced by
// cross-compiled bundles, then PATH.
func ResolveSidecar(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("sidecar name is empty")
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("sidecar %s: %w", name, err)
		}
		return name, nil
	}

	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir := filepath.Dir(exe)
		candidates := []string{
			name,
			fmt.Sprintf("%s-%s-%s", name, runtime.GOOS, runtime.GOARCH),
		}
		for _, c := range candidates {
			path := filepath.Join(dir, c)
			if isExecutable(path) {
				return path, nil
			}
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("sidecar %s not found next to shell binary or in PATH: %w", name, err)
	}
	return path, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}

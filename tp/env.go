package tp

// env.go contains the controlled environment passed to trace_processor
// invocations.

import (
	"path/filepath"
	"runtime"
	"sort"
)

// Env returns the full environment for a trace_processor invocation.
// The parent environment is deliberately not inherited: the child sees
// only the test data directory and a PATH pointing at the in-tree clang
// toolchain, which carries the llvm symbolizer. Extra entries from the
// config file are appended in sorted key order and may override both.
func Env(rootDir string, extra map[string]string) []string {
	env := []string{
		"PERFETTO_BINARY_PATH=" + filepath.Join(rootDir, "test", "data"),
		"PATH=" + toolchainPath(rootDir),
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// toolchainPath returns the platform toolchain bin directory checked
// into the suite under buildtools. On macOS the symbolizer only ships
// with the Android NDK checkout.
func toolchainPath(rootDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(rootDir, "buildtools", "ndk", "toolchains", "llvm", "prebuilt", "darwin-x86_64", "bin")
	case "windows":
		return filepath.Join(rootDir, "buildtools", "win", "clang", "bin")
	default:
		return filepath.Join(rootDir, "buildtools", "linux64", "clang", "bin")
	}
}

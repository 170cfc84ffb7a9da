/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestMain(m *testing.M) {
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "bundle_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "bundle_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, dir string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "bundle_test")
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

func writeFixture(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestCompileSingleFile(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"index.js": "module.exports = 1 + 2",
	})

	stdout, stderr, code := runCLI(t, root, "compile", "/index.js", "--root", root)
	if code != 0 {
		t.Fatalf("compile exited %d, stderr: %s", code, stderr)
	}

	var exports map[string]any
	if err := json.Unmarshal([]byte(stdout), &exports); err != nil {
		t.Fatalf("unmarshal stdout %q: %v", stdout, err)
	}
	if got := exports["default"]; got != float64(3) {
		t.Errorf("exports = %#v, want default=3", exports)
	}
}

func TestCompileTwoFileLinkage(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"a.js": "module.exports = require('./b').x * 2",
		"b.js": "exports.x = 21",
	})

	stdout, stderr, code := runCLI(t, root, "compile", "/a.js", "--root", root)
	if code != 0 {
		t.Fatalf("compile exited %d, stderr: %s", code, stderr)
	}

	var exports map[string]any
	if err := json.Unmarshal([]byte(stdout), &exports); err != nil {
		t.Fatalf("unmarshal stdout %q: %v", stdout, err)
	}
	if got := exports["default"]; got != float64(42) {
		t.Errorf("exports = %#v, want default=42", exports)
	}
}

func TestCompileMissingEntry(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"index.js": "module.exports = 1",
	})

	_, stderr, code := runCLI(t, root, "compile", "/missing.js", "--root", root)
	if code == 0 {
		t.Fatal("expected a non-zero exit for a missing entry")
	}
	if stderr == "" {
		t.Fatal("expected an error message on stderr")
	}
}

func TestCompileImportMapExternal(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"index.js":       "module.exports = require('a-host-global')",
		"importmap.json": `{"imports": {"a-host-global": "a-host-global"}}`,
	})

	_, stderr, code := runCLI(t, root, "compile", "/index.js", "--root", root,
		"--importmap", filepath.Join(root, "importmap.json"), "--print-importmap")
	if code != 0 {
		t.Fatalf("compile exited %d, stderr: %s", code, stderr)
	}
}

func TestHelp(t *testing.T) {
	stdout, _, code := runCLI(t, t.TempDir(), "--help")
	if code != 0 {
		t.Fatalf("--help exited %d", code)
	}
	if !bytes.Contains([]byte(stdout), []byte("compile")) {
		t.Errorf("--help output missing compile command: %s", stdout)
	}
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, t.TempDir(), "version")
	if code != 0 {
		t.Fatalf("version exited %d, stderr: %s", code, stderr)
	}
	if stdout == "" {
		t.Fatal("version printed nothing")
	}
}

package preprocessor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectLikeMacro(t *testing.T) {
	out, err := Preprocess("#define WIDTH 320\nint w = WIDTH;\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "int w = 320;")
}

func TestFunctionLikeMacro(t *testing.T) {
	out, err := Preprocess("#define MAX(a, b) ((a) > (b) ? (a) : (b))\nint m = MAX(1, 2);\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "((1) > (2) ? (1) : (2))")
}

func TestIfdefTakesDefinedBranch(t *testing.T) {
	out, err := Preprocess("#define FOO\n#ifdef FOO\nint a;\n#else\nint b;\n#endif\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "int a;")
	assert.NotContains(t, out, "int b;")
}

func TestIfndefSkipsDefinedBranch(t *testing.T) {
	out, err := Preprocess("#define FOO\n#ifndef FOO\nint a;\n#else\nint b;\n#endif\n", nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "int a;")
	assert.Contains(t, out, "int b;")
}

func TestIfElifElse(t *testing.T) {
	out, err := Preprocess("#if 0\nint a;\n#elif 1\nint b;\n#else\nint c;\n#endif\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "int b;")
	assert.NotContains(t, out, "int a;")
	assert.NotContains(t, out, "int c;")
}

func TestUnterminatedConditionalErrors(t *testing.T) {
	_, err := Preprocess("#if 1\nint a;\n", nil)
	require.Error(t, err)
}

func TestElifAfterElseErrors(t *testing.T) {
	_, err := Preprocess("#if 1\nint a;\n#else\nint b;\n#elif 1\nint c;\n#endif\n", nil)
	require.Error(t, err)
}

func TestDuplicateElseErrors(t *testing.T) {
	_, err := Preprocess("#if 1\nint a;\n#else\nint b;\n#else\nint c;\n#endif\n", nil)
	require.Error(t, err)
}

func TestStrayEndifErrors(t *testing.T) {
	_, err := Preprocess("int a;\n#endif\n", nil)
	require.Error(t, err)
}

func TestIncludeExpandsFileContents(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "header.h")
	require.NoError(t, os.WriteFile(header, []byte("int included;\n"), 0644))

	out, err := Preprocess(`#include "header.h"`+"\nint main(void) { return 0; }\n", []string{dir})
	require.NoError(t, err)
	assert.Contains(t, out, "int included;")
}

func TestCircularIncludeDetected(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.h")
	b := filepath.Join(dir, "b.h")
	require.NoError(t, os.WriteFile(a, []byte(`#include "b.h"`+"\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte(`#include "a.h"`+"\n"), 0644))

	p := New(a, []string{dir})
	contents, err := os.ReadFile(a)
	require.NoError(t, err)
	_, err = p.Process(string(contents))
	require.Error(t, err)
}

func TestPredefinedFileAndLineMacros(t *testing.T) {
	p := New("demo.c", nil)
	out, err := p.Process("int line = __LINE__;\nconst char *f = __FILE__;\n")
	require.NoError(t, err)
	assert.Contains(t, out, "int line = 1;")
	assert.Contains(t, out, `const char *f = "demo.c";`)
}

func TestUndefRemovesMacro(t *testing.T) {
	out, err := Preprocess("#define FOO 1\n#undef FOO\n#ifdef FOO\nint a;\n#endif\n", nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "int a;")
}

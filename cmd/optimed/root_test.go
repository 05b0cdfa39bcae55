package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("storage:\n  compression: lz4\n  chunk_size: 1024\n"), 0o644))
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

const grid = `1 1 0 0
1 1 0 0
0 0 1 1
0 0 1 1
`

func TestDevice(t *testing.T) {
	out, err := run(t, "device")
	require.NoError(t, err)
	assert.Contains(t, out, "gpu available:")
	assert.Contains(t, out, "use gpu: false")

	out, err = run(t, "--gpu", "device")
	require.NoError(t, err)
	assert.Contains(t, out, "use gpu: true")
}

func TestLabel(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "in.txt", "1 1 0 0\n1 1 0 0\n0 0 1 1\n0 0 1 1\n")
	for _, gpu := range []string{"--gpu=false", "--gpu=true"} {
		out, err := run(t, gpu, "label", "--in", in, "--out", filepath.Join(dir, "l.txt"))
		require.NoError(t, err)
		assert.Contains(t, out, "components: 2")
		assert.Equal(t, "1 1 0 0\n1 1 0 0\n0 0 2 2\n0 0 2 2\n", read(t, filepath.Join(dir, "l.txt")))
	}

	diag := write(t, dir, "diag.txt", "1 0\n0 1\n")
	out, err := run(t, "label", "--in", diag, "--out", filepath.Join(dir, "d.txt"), "--connectivity", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "components: 1")
}

func TestDilate(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "in.txt", "0 0 0 0 0\n0 0 0 0 0\n0 0 1 0 0\n0 0 0 0 0\n0 0 0 0 0\n")
	se := write(t, dir, "se.txt", "1 1 1\n1 1 1\n1 1 1\n")
	_, err := run(t, "dilate", "--in", in, "--out", filepath.Join(dir, "o.txt"), "--structure", se)
	require.NoError(t, err)
	assert.Equal(t, "0 0 0 0 0\n0 1 1 1 0\n0 1 1 1 0\n0 1 1 1 0\n0 0 0 0 0\n", read(t, filepath.Join(dir, "o.txt")))
}

func TestEDT(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "in.txt", "1 1 1\n1 0 1\n1 1 1\n")
	_, err := run(t, "edt", "--in", in, "--out", filepath.Join(dir, "d.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(read(t, filepath.Join(dir, "d.txt"))), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1.4142135623730951 1 1.4142135623730951", lines[0])
	assert.Equal(t, "1 0 1", lines[1])
}

func TestReductions(t *testing.T) {
	dir := t.TempDir()
	values := write(t, dir, "v.txt", "1 2 3\n4 5 6\n7 8 9\n")
	labels := write(t, dir, "l.txt", "1 1 0\n1 2 2\n0 2 2\n")
	out, err := run(t, "sum", "--in", values, "--labels", labels, "--index", "1")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
	out, err = run(t, "minimum", "--in", values, "--labels", labels, "--index", "2")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, err = run(t, "sum", "--in", values)
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "m.txt", "1 2 3\n4 5 6\n")
	_, err := run(t, "filter", "--in", in, "--out", filepath.Join(dir, "f.txt"), "--keep", "1,5")
	require.NoError(t, err)
	assert.Equal(t, "1 0 0\n0 5 0\n", read(t, filepath.Join(dir, "f.txt")))
}

func TestConvertInspectVerify(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "g.txt", grid)
	nda := filepath.Join(dir, "g.nda")
	out, err := run(t, "convert", "--in", in, "--out", nda)
	require.NoError(t, err)
	assert.Contains(t, out, "int64 [4 4]")

	out, err = run(t, "inspect", nda)
	require.NoError(t, err)
	assert.Contains(t, out, `"dtype": "int64"`)
	assert.Contains(t, out, "section 2:")

	out, err = run(t, "verify", nda)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	back := filepath.Join(dir, "back.txt")
	_, err = run(t, "convert", "--in", nda, "--out", back)
	require.NoError(t, err)
	assert.Equal(t, grid, read(t, back))
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "device")
	assert.Error(t, err)
}

func TestPull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(grid))
	}))
	defer srv.Close()
	out := filepath.Join(t.TempDir(), "g.txt")
	msg, err := run(t, "pull", srv.URL+"/g.txt", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, msg, "int64 [4 4]")
	assert.Equal(t, grid, read(t, out))
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "g.txt", grid)
	png := filepath.Join(dir, "g.png")
	_, err := run(t, "render", "--in", in, "--out", png, "--title", "grid")
	require.NoError(t, err)
	assert.FileExists(t, png)
}

func TestDefaultName(t *testing.T) {
	name, err := defaultName("https://example.com/data/grid.nda?token=abc#v2")
	require.NoError(t, err)
	assert.Equal(t, "grid.nda", name)

	_, err = defaultName("https://example.com/")
	assert.Error(t, err)
	_, err = defaultName("https://example.com")
	assert.Error(t, err)
}

func TestMorphologyCommands(t *testing.T) {
	dir := t.TempDir()
	in := write(t, dir, "in.txt", "0 0 0 0 0\n0 1 1 1 0\n0 1 1 1 0\n0 1 1 1 0\n0 0 0 0 0\n")
	se := write(t, dir, "se.txt", "1 1 1\n1 1 1\n1 1 1\n")
	out := filepath.Join(dir, "o.txt")

	_, err := run(t, "erode", "--in", in, "--out", out, "--structure", se)
	require.NoError(t, err)
	assert.Equal(t, "0 0 0 0 0\n0 0 0 0 0\n0 0 1 0 0\n0 0 0 0 0\n0 0 0 0 0\n", read(t, out))

	for _, op := range []string{"open", "close"} {
		_, err = run(t, op, "--in", in, "--out", out, "--structure", se)
		require.NoError(t, err)
		assert.Equal(t, read(t, in), read(t, out), op)
	}
}

func TestMultiIndexReductions(t *testing.T) {
	dir := t.TempDir()
	values := write(t, dir, "v.txt", "1 2 3\n4 5 6\n7 8 9\n")
	labels := write(t, dir, "l.txt", "1 1 0\n1 2 2\n0 2 2\n")
	out, err := run(t, "maximum", "--in", values, "--labels", labels, "--index", "1,2")
	require.NoError(t, err)
	assert.Equal(t, "4\n9\n", out)
	out, err = run(t, "mean", "--in", values, "--labels", labels, "--index", "2")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
	out, err = run(t, "--gpu", "sum", "--in", values, "--labels", labels, "--index", "1,2")
	require.NoError(t, err)
	assert.Equal(t, "7\n28\n", out)

	_, err = run(t, "minimum", "--in", values, "--labels", labels, "--index", "5")
	assert.Error(t, err)
}

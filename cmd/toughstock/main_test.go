package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "toughstock.yml")
	content := "system:\n  workdir: " + dir + "\nlogger:\n  file_enable: false\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-v"}, nil, &out, &out))
	assert.Equal(t, version+"\n", out.String())
}

func TestImportExportRoundTrip(t *testing.T) {
	conf := writeConfig(t)
	dir := filepath.Dir(conf)

	in := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("name;price;quantity;brand\nKaiak;99,90;3;Natura\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-c", conf, "-import", in}, nil, &out, &out))
	assert.Contains(t, out.String(), "1 product(s) imported")

	exported := filepath.Join(dir, "out.csv")
	require.NoError(t, run([]string{"-c", conf, "-export", exported}, nil, &out, &out))
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Kaiak")

	out.Reset()
	require.NoError(t, run([]string{"-c", conf, "-summary"}, nil, &out, &out))
	assert.Contains(t, out.String(), `"products": 1`)
}

func TestConsole(t *testing.T) {
	conf := writeConfig(t)
	var out bytes.Buffer
	err := run([]string{"-c", conf, "-chat", "-u", "admin", "-p", "wrong"}, strings.NewReader(""), &out, &out)
	assert.Error(t, err)

	out.Reset()
	stdin := strings.NewReader("ajuda\nsair\n")
	require.NoError(t, run([]string{"-c", conf, "-chat", "-u", "admin", "-p", "123"}, stdin, &out, &out))
	assert.Contains(t, out.String(), "Comandos")
}

package patcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedis/fezmod-installer/internal/failure"
)

// TestHelperProcess is not a real test; it stands in for the patch tool.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("FEZMOD_HELPER_PROCESS") != "1" {
		return
	}
	path := os.Args[len(os.Args)-1]
	fmt.Fprintf(os.Stdout, "patching %s\n", path)
	fmt.Fprintf(os.Stdout, "done\r\n")
	fmt.Fprintln(os.Stderr, "warning: relinking")
	if strings.Contains(path, "broken") {
		fmt.Fprintln(os.Stderr, "fatal: cannot resolve module")
		os.Exit(3)
	}
	os.Exit(0)
}

func helper() *Exec {
	return &Exec{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     []string{"FEZMOD_HELPER_PROCESS=1"},
	}
}

func TestExecStreamsOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FezEngine.dll")
	var lines []string
	err := helper().Patch(context.Background(), path, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Contains(t, lines, "patching "+path)
	assert.Contains(t, lines, "done")
	assert.Contains(t, lines, "warning: relinking")
}

func TestExecFailureIsPatchError(t *testing.T) {
	var lines []string
	err := helper().Patch(context.Background(), filepath.Join(t.TempDir(), "broken.dll"), func(line string) {
		lines = append(lines, line)
	})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Patch))
	assert.Contains(t, err.Error(), "broken.dll")
	assert.Contains(t, lines, "fatal: cannot resolve module")
}

func TestExecWithoutCommand(t *testing.T) {
	err := (&Exec{}).Patch(context.Background(), "/games/FEZ/FEZ.exe", nil)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Patch))
}

func TestFunc(t *testing.T) {
	var got string
	var p Patcher = Func(func(_ context.Context, path string, log LineLogger) error {
		log("hello from " + path)
		return nil
	})
	require.NoError(t, p.Patch(context.Background(), "Common.dll", func(line string) { got = line }))
	assert.Equal(t, "hello from Common.dll", got)
}

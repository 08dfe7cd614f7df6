package platform

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag(t *testing.T) {
	tests := []struct {
		goos    string
		ptrBits int
		want    string
	}{
		{goos: "windows", ptrBits: 64, want: TagWindows},
		{goos: "windows", ptrBits: 32, want: TagWindows},
		{goos: "darwin", ptrBits: 64, want: TagMacOS},
		{goos: "linux", ptrBits: 64, want: TagLinux64},
		{goos: "linux", ptrBits: 32, want: TagLinux32},
		{goos: "freebsd", ptrBits: 64, want: TagLinux64},
		{goos: "plan9", ptrBits: 64, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			assert.Equal(t, tt.want, Tag(tt.goos, tt.ptrBits))
		})
	}
}

func TestDescribeFallsBackToRuntime(t *testing.T) {
	info, err := Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.Equal(t, Current(), info.Tag)
	assert.Contains(t, info.String(), info.Tag)
}

// Package platform maps the host operating system and pointer width onto the
// platform tags used by mod packages to ship native libraries.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Platform tags as they appear under LIBS/ in a mod package.
const (
	TagWindows = "win32"
	TagMacOS   = "osx"
	TagLinux32 = "lib"
	TagLinux64 = "lib64"
)

// Tag returns the platform tag for goos and the process pointer width in bits.
// Unknown operating systems yield an empty tag, which matches no LIBS/ entries.
func Tag(goos string, ptrBits int) string {
	goos = strings.ToLower(goos)
	switch {
	case goos == "windows":
		return TagWindows
	case goos == "darwin" || goos == "ios":
		return TagMacOS
	case goos == "linux" || goos == "android" || strings.HasSuffix(goos, "bsd") || goos == "dragonfly" || goos == "solaris" || goos == "illumos":
		if ptrBits == 32 {
			return TagLinux32
		}
		return TagLinux64
	default:
		return ""
	}
}

// Current returns the tag for the running process.
func Current() string {
	return Tag(runtime.GOOS, strconv.IntSize)
}

// Info describes the host for the session log.
type Info struct {
	OS       string
	Arch     string
	Platform string
	Version  string
	Kernel   string
	Tag      string
}

func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.OS)
	if i.Platform != "" {
		b.WriteString(" (" + i.Platform)
		if i.Version != "" {
			b.WriteString(" " + i.Version)
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " %s, platform tag %q", i.Arch, i.Tag)
	return b.String()
}

// Describe gathers host details. It uses runtime.GOOS and runtime.GOARCH for
// the basics and gopsutil for distribution details; if gopsutil cannot read
// them the basic fields are still returned.
func Describe(ctx context.Context) (Info, error) {
	info := Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		Tag:  Current(),
	}

	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return info, fmt.Errorf("host detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}
	info.Platform = hi.Platform
	info.Version = hi.PlatformVersion
	info.Kernel = hi.KernelVersion
	if hi.KernelArch != "" && info.Arch == "" {
		info.Arch = hi.KernelArch
	}
	return info, nil
}

package modelcfg

import (
	"fmt"
	"strings"
)

// Arch identifies a model architecture family.
type Arch string

const (
	ArchMDX    Arch = "mdx"
	ArchMDXC   Arch = "mdxc"
	ArchVR     Arch = "vr"
	ArchDemucs Arch = "demucs"
)

// ParseArch accepts the canonical names plus a few common spellings.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mdx", "mdx-net", "mdxnet":
		return ArchMDX, nil
	case "mdxc", "mdx-c", "mdx23c", "roformer":
		return ArchMDXC, nil
	case "vr", "vr-arch", "vrarch":
		return ArchVR, nil
	case "demucs":
		return ArchDemucs, nil
	default:
		return "", fmt.Errorf("unknown architecture: %q", s)
	}
}

func (a Arch) String() string { return string(a) }

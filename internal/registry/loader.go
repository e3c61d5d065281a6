package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stemd/internal/common/fsutil"
	"stemd/internal/modelcfg"
	"stemd/pkg/types"
)

// artifactExts maps a weight file extension to the architecture it usually
// belongs to when the directory gives no better hint.
var artifactExts = map[string]modelcfg.Arch{
	".onnx": modelcfg.ArchMDX,
	".ckpt": modelcfg.ArchMDX,
	".pth":  modelcfg.ArchVR,
	".th":   modelcfg.ArchDemucs,
	".gz":   modelcfg.ArchDemucs,
	".yaml": modelcfg.ArchDemucs,
}

// metadataDirs hold documents, not artifacts.
var metadataDirs = map[string]bool{
	"model_data":    true,
	"mdx_c_configs": true,
	"modelparams":   true,
}

// LoadDir walks dir for model artifacts and builds a registry from file names.
// ID is the file name without extension; Path is absolute. The architecture
// comes from the nearest parent directory naming one, else the extension.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && metadataDirs[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		guess, ok := artifactExts[ext]
		if !ok {
			return nil
		}
		if hint, ok := archFromDir(abs, filepath.Dir(p)); ok {
			guess = hint
		}
		models = append(models, types.Model{
			ID:   strings.TrimSuffix(name, filepath.Ext(name)),
			Name: name,
			Path: p,
			Arch: string(guess),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Path < models[j].Path })
	return models, nil
}

// archFromDir looks at the directories between root and dir, innermost first.
func archFromDir(root, dir string) (modelcfg.Arch, bool) {
	for dir != root && strings.HasPrefix(dir, root) {
		n := strings.ToLower(filepath.Base(dir))
		switch {
		case strings.Contains(n, "demucs"):
			return modelcfg.ArchDemucs, true
		case strings.HasPrefix(n, "vr"):
			return modelcfg.ArchVR, true
		case strings.Contains(n, "mdx"):
			return modelcfg.ArchMDX, true
		}
		dir = filepath.Dir(dir)
	}
	return "", false
}

// Find returns the model whose ID or file name equals id. When arch is
// non-empty, models of other families are skipped unless the match is by path.
func Find(models []types.Model, id string, arch modelcfg.Arch) (types.Model, bool) {
	for _, m := range models {
		if m.ID != id && m.Name != id {
			continue
		}
		if arch != "" && !compatible(modelcfg.Arch(m.Arch), arch) {
			continue
		}
		return m, true
	}
	return types.Model{}, false
}

// compatible treats MDX and MDX-C as one family since they share a directory.
func compatible(have, want modelcfg.Arch) bool {
	if have == want {
		return true
	}
	mdx := func(a modelcfg.Arch) bool { return a == modelcfg.ArchMDX || a == modelcfg.ArchMDXC }
	return mdx(have) && mdx(want)
}

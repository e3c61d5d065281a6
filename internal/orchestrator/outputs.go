package orchestrator

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"stemd/internal/common/fsutil"
	"stemd/internal/modelcfg"
	"stemd/pkg/types"
)

// stemSelection is the primary/secondary pair a job reports together with
// the stems it writes.
type stemSelection struct {
	Primary   string
	Secondary string
	Stems     []string
}

// pairedStems selects outputs for two-stem models (MDX, MDX-C, VR).
func pairedStems(cfg modelcfg.ModelConfig, req types.SeparateRequest) (stemSelection, error) {
	sel := stemSelection{Primary: cfg.PrimaryStem, Secondary: cfg.SecondaryStem}
	switch {
	case req.PrimaryOnly:
		sel.Stems = []string{sel.Primary}
		return sel, nil
	case req.SecondaryOnly:
		sel.Stems = []string{sel.Secondary}
		return sel, nil
	}
	switch stem := modelcfg.NormalizeStem(req.Stem); stem {
	case "", modelcfg.StemAll:
		sel.Stems = []string{sel.Primary, sel.Secondary}
	case sel.Primary, modelcfg.StemPrimary:
		sel.Stems = []string{sel.Primary}
	case sel.Secondary, modelcfg.StemSecondary:
		sel.Stems = []string{sel.Secondary}
	default:
		return sel, invalidRequestError{fmt.Errorf("model produces %s and %s, not %q", sel.Primary, sel.Secondary, req.Stem)}
	}
	return sel, nil
}

// mdxStems handles MDX-C models trained on more than two instruments like
// Demucs models; every other MDX model is paired.
func mdxStems(cfg modelcfg.ModelConfig, req types.SeparateRequest) (stemSelection, error) {
	if p, ok := cfg.MDXC(); ok && len(p.Stems) > 2 {
		return multiStems(cfg, p.Stems, req)
	}
	return pairedStems(cfg, req)
}

// demucsStems selects outputs among the model's sources.
func demucsStems(cfg modelcfg.ModelConfig, req types.SeparateRequest) (stemSelection, error) {
	sources := modelcfg.DemucsFourStem
	if p, ok := cfg.Demucs(); ok && len(p.Sources) > 0 {
		sources = p.Sources
	}
	return multiStems(cfg, sources, req)
}

// multiStems writes every source unless one is selected. A selected stem
// becomes the primary, its complement ("No Drums") the secondary, and
// primary_only / secondary_only then pick one of that pair.
func multiStems(cfg modelcfg.ModelConfig, sources []string, req types.SeparateRequest) (stemSelection, error) {
	all := make([]string, 0, len(sources))
	for _, s := range sources {
		all = append(all, modelcfg.NormalizeStem(s))
	}
	stem := modelcfg.NormalizeStem(req.Stem)
	if stem == "" || stem == modelcfg.StemAll {
		return stemSelection{Primary: cfg.PrimaryStem, Secondary: cfg.SecondaryStem, Stems: all}, nil
	}
	if !slices.Contains(all, stem) {
		return stemSelection{}, invalidRequestError{fmt.Errorf("model sources are %s, not %q", strings.Join(all, ", "), req.Stem)}
	}
	sel := stemSelection{Primary: stem, Secondary: modelcfg.SecondaryStem(stem)}
	switch {
	case req.PrimaryOnly:
		sel.Stems = []string{sel.Primary}
	case req.SecondaryOnly:
		sel.Stems = []string{sel.Secondary}
	default:
		sel.Stems = []string{sel.Primary, sel.Secondary}
	}
	return sel, nil
}

// outputPaths names each stem file as {base}_({stem}).{format} in outDir.
func outputPaths(input, outDir, format string, stems []string) map[string]string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	ext := "." + strings.ToLower(strings.TrimPrefix(format, "."))
	out := make(map[string]string, len(stems))
	for _, s := range stems {
		out[s] = filepath.Join(outDir, fmt.Sprintf("%s_(%s)%s", base, s, ext))
	}
	return out
}

// collectOutputs reports the expected files the separator actually wrote.
func collectOutputs(job Job) []string {
	out := make([]string, 0, len(job.Stems))
	for _, s := range job.Stems {
		if p := job.Outputs[s]; fsutil.IsFile(p) {
			out = append(out, p)
		}
	}
	return out
}

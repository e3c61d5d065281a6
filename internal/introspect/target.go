package introspect

import (
	"strings"

	"stemd/internal/modelcfg"
)

// targetKeywords is checked in order; the first keyword contained in the
// lower-cased target name wins. "other" deliberately maps to Instrumental.
var targetKeywords = []struct {
	keyword string
	stem    string
}{
	{"vocals", modelcfg.StemVocals},
	{"instrumental", modelcfg.StemInstrumental},
	{"drums", modelcfg.StemDrums},
	{"bass", modelcfg.StemBass},
	{"other", modelcfg.StemInstrumental},
}

// StemFromTarget maps a checkpoint target_name onto a primary stem,
// defaulting to Vocals.
func StemFromTarget(target string) string {
	t := strings.ToLower(target)
	for _, k := range targetKeywords {
		if strings.Contains(t, k.keyword) {
			return k.stem
		}
	}
	return modelcfg.StemVocals
}

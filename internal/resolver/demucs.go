package resolver

import (
	"slices"
	"strings"
	"unicode"

	"stemd/internal/modelcfg"
)

// demucsUVRModel marks the two-stem Demucs fine-tune shipped with UVR.
const demucsUVRModel = "UVR_Model"

var demucsVersions = []string{"v1", "v2", "v3", "v4"}

// DemucsVersion derives the Demucs generation from a model file name. An
// explicit version tag in the name ("v3 | ...", "model_v4") wins over name
// heuristics; the tag must be a whole token.
func DemucsVersion(name string) string {
	tokens := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if slices.Contains(demucsVersions, tok) {
			return tok
		}
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "htdemucs"):
		return "v4"
	case strings.Contains(lower, "hdemucs"):
		return "v3"
	case strings.HasSuffix(lower, ".gz") || strings.Contains(lower, "demucs"):
		return "v2"
	}
	return "v4"
}

// DemucsSources derives the source list from a model name.
func DemucsSources(name string) []string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(name, demucsUVRModel) || strings.Contains(lower, "2stem"):
		return slices.Clone(modelcfg.DemucsTwoStem)
	case strings.Contains(lower, "6s"):
		return slices.Clone(modelcfg.DemucsSixStem)
	default:
		return slices.Clone(modelcfg.DemucsFourStem)
	}
}

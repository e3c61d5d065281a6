package modelcfg

import "strings"

const (
	StemVocals        = "Vocals"
	StemInstrumental  = "Instrumental"
	StemDrums         = "Drums"
	StemBass          = "Bass"
	StemOther         = "Other"
	StemGuitar        = "Guitar"
	StemPiano         = "Piano"
	StemLeadVocals    = "Lead Vocals"
	StemBackingVocals = "Backing Vocals"
	StemPrimary       = "Primary Stem"
	StemSecondary     = "Secondary Stem"
	StemAll           = "All Stems"
)

// stemPairs is bijective: every entry has its mirror.
var stemPairs = map[string]string{
	StemVocals:        StemInstrumental,
	StemInstrumental:  StemVocals,
	StemLeadVocals:    StemBackingVocals,
	StemBackingVocals: StemLeadVocals,
	StemPrimary:       StemSecondary,
	StemSecondary:     StemPrimary,
}

const aggregatePrefix = "No "

// SecondaryStem returns the complement of primary. Paired stems map to their
// partner; any other stem X maps to the aggregate "No X" and back.
// An empty primary is treated as Vocals.
func SecondaryStem(primary string) string {
	p := NormalizeStem(primary)
	if p == "" {
		p = StemVocals
	}
	if s, ok := stemPairs[p]; ok {
		return s
	}
	if rest, ok := strings.CutPrefix(p, aggregatePrefix); ok && rest != "" {
		return NormalizeStem(rest)
	}
	return aggregatePrefix + p
}

var canonicalStems = func() map[string]string {
	m := make(map[string]string)
	for _, s := range []string{
		StemVocals, StemInstrumental, StemDrums, StemBass, StemOther, StemGuitar,
		StemPiano, StemLeadVocals, StemBackingVocals, StemPrimary, StemSecondary, StemAll,
	} {
		m[strings.ToLower(s)] = s
	}
	m["all"] = StemAll
	m["primary"] = StemPrimary
	m["secondary"] = StemSecondary
	m["vocal"] = StemVocals
	m["instrument"] = StemInstrumental
	return m
}()

// NormalizeStem maps case and whitespace variants onto the canonical spelling.
// Unknown names are returned trimmed but otherwise unchanged.
func NormalizeStem(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if c, ok := canonicalStems[strings.ToLower(s)]; ok {
		return c
	}
	if rest, ok := cutPrefixFold(s, aggregatePrefix); ok && rest != "" {
		return aggregatePrefix + NormalizeStem(rest)
	}
	return s
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

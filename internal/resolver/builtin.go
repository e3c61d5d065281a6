package resolver

import (
	"stemd/internal/modelcfg"
	"stemd/internal/registry"
)

// woodInstrumentHash identifies the VR woodwinds model, which ships without a
// catalog entry.
const woodInstrumentHash = "0ec76fd9e65f81d8b4fbd13af4826ed8"

// builtinEntries answer the registry tier for hashes the catalogs do not
// cover. They take precedence over model_data.json.
var builtinEntries = map[modelcfg.Arch]map[string]registry.Entry{
	modelcfg.ArchVR: {
		woodInstrumentHash: {"vr_model_param": "4band_v3", "primary_stem": "No Woodwinds"},
	},
}

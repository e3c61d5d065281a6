// Package modelcfg defines the resolved runtime configuration of a separation
// model: its architecture kind, per-architecture parameters, stem pair and the
// provenance tier that produced it.
//
// A ModelConfig is built once per resolution and is not mutated afterwards.
package modelcfg

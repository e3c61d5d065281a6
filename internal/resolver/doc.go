// Package resolver turns a model artifact into a fully specified
// modelcfg.ModelConfig by walking a fixed cascade of metadata sources:
//
//  1. an explicit config document supplied by the caller
//  2. a per-hash document {metadataDir}/{hash}.json
//  3. the registry table {metadataDir}/model_data.json
//  4. parameters introspected from the artifact itself (MDX only)
//  5. built-in defaults
//
// The first usable tier wins. Misses are never errors: the only failure
// Resolve reports is a missing artifact.
package resolver

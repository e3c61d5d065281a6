package modelcfg

// Source records which fallback tier produced a configuration.
type Source string

const (
	SourceExplicit     Source = "explicit"
	SourceHashFile     Source = "hash_file"
	SourceRegistry     Source = "registry"
	SourceIntrospected Source = "introspected"
	SourceDefault      Source = "default"
)

// Sources lists the tiers in priority order.
var Sources = []Source{SourceExplicit, SourceHashFile, SourceRegistry, SourceIntrospected, SourceDefault}

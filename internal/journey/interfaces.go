package journey

type StatusResolver interface {
	Resolve(levels []Level, entries []ProgressEntry, index int) Status
	BuildMap(levels []Level, entries []ProgressEntry) Map
}

var _ StatusResolver = Resolver{}

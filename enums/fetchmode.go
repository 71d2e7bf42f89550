package enums

type FetchMode int

const (
	FetchNone FetchMode = iota
	FetchOne
	FetchAll
)

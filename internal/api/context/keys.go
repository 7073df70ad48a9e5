package context

type contextKey string

const (
	Claims contextKey = "claims"
	Params contextKey = "params"
)

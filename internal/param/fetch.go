package param

import "context"

// Fetcher resolves a named parameter to its (decrypted) value.
type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}

package devtools

import "context"

type Demo interface {
	Resolve(name string) Scenario
	SetState(ctx context.Context, cacheDir string, state string, rendered bool) error
}

var _ Demo = (*Manager)(nil)

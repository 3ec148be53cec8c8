package embedding

import "context"

// Embedder converts text into numeric vectors of a fixed dimension.
type Embedder interface {
	// Name identifies the model; snapshots built by a different name are rebuilt.
	Name() string
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

package ai

import (
	"context"
	"errors"
	"fmt"
)

// Preload asks the client to load every distinct non-empty model. All
// models are attempted; the failures are joined.
func Preload(ctx context.Context, client GraphAIClient, models ...string) error {
	seen := make(map[string]struct{}, len(models))
	var errs []error
	for _, model := range models {
		if model == "" {
			continue
		}
		if _, ok := seen[model]; ok {
			continue
		}
		seen[model] = struct{}{}
		if err := client.LoadModel(ctx, WithModel(model)); err != nil {
			errs = append(errs, fmt.Errorf("load model %s: %w", model, err))
		}
	}
	return errors.Join(errs...)
}

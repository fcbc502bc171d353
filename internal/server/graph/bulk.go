package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
)

type personWriter interface {
	CreateOrUpdatePerson(ctx context.Context, in PersonInput) (string, error)
}

// bulkCreatePeople upserts each person independently. A failed item is
// recorded and skipped; it never aborts the rest of the batch.
func bulkCreatePeople(ctx context.Context, w personWriter, people []PersonInput) *BulkResult {
	result := &BulkResult{BatchID: uuid.New().String()}
	for i, p := range people {
		if _, err := w.CreateOrUpdatePerson(ctx, p); err != nil {
			logger.Warn("bulk person create failed", "batch", result.BatchID, "index", i, "name", p.Name, "err", err)
			result.Failed = append(result.Failed, BulkFailure{Index: i, Name: p.Name, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}
	if len(result.Failed) > 0 {
		logger.Info("bulk person create finished with failures", "batch", result.BatchID,
			"succeeded", result.Succeeded, "failed", len(result.Failed))
	}
	return result
}

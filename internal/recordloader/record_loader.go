package recordloader

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/sheetfed/internal/domain"
)

// BatchSource fetches the records of several sheets in one call.
type BatchSource interface {
	ListRecordsBySheets(ctx context.Context, sheetIDs []string) (map[string][]domain.Record, error)
}

// RecordLoader batches per-sheet record fetches issued close together.
type RecordLoader struct {
	Loader *dataloader.Loader
}

// New builds a loader over source. Loaders cache results, so use one per run.
func New(source BatchSource) *RecordLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		sheetIDs := keys.Keys()

		bySheet, err := source.ListRecordsBySheets(ctx, sheetIDs)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range sheetIDs {
			records := bySheet[id]
			if records == nil {
				records = []domain.Record{}
			}
			results[i] = &dataloader.Result{Data: records}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &RecordLoader{Loader: loader}
}

// Thunk resolves the records of one sheet.
type Thunk func() ([]domain.Record, error)

// Load schedules a fetch for sheetID. Fetches scheduled before any thunk is
// resolved are sent as one batch.
func (l *RecordLoader) Load(ctx context.Context, sheetID string) Thunk {
	thunk := l.Loader.Load(ctx, dataloader.StringKey(sheetID))
	return func() ([]domain.Record, error) {
		data, err := thunk()
		if err != nil {
			return nil, err
		}
		records, ok := data.([]domain.Record)
		if !ok {
			return nil, fmt.Errorf("unexpected loader result %T for sheet %s", data, sheetID)
		}
		return records, nil
	}
}

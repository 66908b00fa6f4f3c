package pipeline

import (
	"fmt"

	"pagetransform/internal/analyzer"
	"pagetransform/internal/model"
	"pagetransform/internal/source"
)

// Family is the page-family specific part of a run: it validates and
// analyzes one source record.
type Family interface {
	Analyze(rec source.Record, opts analyzer.Options) (model.Analysis, error)
}

// Auto detects the page family of every record.
var Auto Family = analyzer.StrategyFunc(analyzer.Analyze)

// Only restricts a run to the given page types. Other detected types are
// rejected with an analyzer.RejectedError.
func Only(types ...model.PageType) Family {
	allowed := make(map[model.PageType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return analyzer.StrategyFunc(func(rec source.Record, opts analyzer.Options) (model.Analysis, error) {
		t := analyzer.Detect(rec)
		if !allowed[t] {
			if err := analyzer.Reject(t); err != nil {
				return model.Analysis{Type: t}, err
			}
			return model.Analysis{Type: t}, &analyzer.RejectedError{Type: t, Reason: fmt.Sprintf("run is limited to %v", types)}
		}
		return analyzer.Analyze(rec, opts)
	})
}

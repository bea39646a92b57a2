package store

import "push-subscription-backend/internal/model"

// ResultKind tags the shape of a query result, replacing ad hoc presence
// checks on an untyped item list.
type ResultKind int

const (
	ResultEmpty ResultKind = iota
	ResultOne
	ResultMany
)

// Result is the tagged outcome of a secondary-index query.
type Result struct {
	Kind    ResultKind
	Records []model.Subscription
}

func resultOf(records []model.Subscription) Result {
	switch len(records) {
	case 0:
		return Result{Kind: ResultEmpty}
	case 1:
		return Result{Kind: ResultOne, Records: records}
	default:
		return Result{Kind: ResultMany, Records: records}
	}
}

// First returns the newest matched record, if any.
func (r Result) First() (model.Subscription, bool) {
	if r.Kind == ResultEmpty {
		return model.Subscription{}, false
	}
	return r.Records[0], true
}

// Empty reports whether the query matched nothing.
func (r Result) Empty() bool {
	return r.Kind == ResultEmpty
}

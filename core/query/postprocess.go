package query

import (
	"github.com/asaidimu/go-maktaba/core/schema"
)

// PostprocessStep is one transform in the deferred pipeline a QueryBuilder
// runs over materialized results. Steps are tagged variants interpreted by
// the evaluator rather than opaque closures, which keeps ordering explicit
// and the pipeline inspectable in tests. The interface is sealed.
type PostprocessStep interface {
	postprocessStep()
}

// StripFieldStep removes a single field from every document. The builder
// registers one for the "text" field at construction; it is always the
// first step ever registered.
type StripFieldStep struct {
	Field string
}

// ProjectStep reduces every document to the listed keys, in list order.
// Keys absent from a document are omitted from its output, not nulled.
type ProjectStep struct {
	Keys []string
}

// WindowStep replaces the result set with a fixed-size window of the
// neighbors around the document whose lookup field equals Slug. Positions
// [0, Before) hold predecessors right-aligned against the target, positions
// [Before, Before+After) hold successors left-aligned; missing neighbors
// are nil. When the target is absent the whole window is nil. Field names
// the lookup field; empty means schema.DefaultSlugField.
type WindowStep struct {
	Slug   string
	Before int
	After  int
	Field  string
}

func (StripFieldStep) postprocessStep() {}
func (ProjectStep) postprocessStep()    {}
func (WindowStep) postprocessStep()     {}

// ApplySteps runs the pipeline in order, each step consuming the previous
// step's output. Steps never mutate their input documents.
func ApplySteps(steps []PostprocessStep, docs []schema.Document) []schema.Document {
	for _, step := range steps {
		docs = applyStep(step, docs)
	}
	return docs
}

func applyStep(step PostprocessStep, docs []schema.Document) []schema.Document {
	switch s := step.(type) {
	case StripFieldStep:
		return stripField(docs, s.Field)
	case ProjectStep:
		return project(docs, s.Keys)
	case WindowStep:
		return window(docs, s)
	default:
		return docs
	}
}

func stripField(docs []schema.Document, field string) []schema.Document {
	out := make([]schema.Document, len(docs))
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		if _, ok := doc[field]; !ok {
			out[i] = doc
			continue
		}
		clone := doc.Clone()
		delete(clone, field)
		out[i] = clone
	}
	return out
}

func project(docs []schema.Document, keys []string) []schema.Document {
	out := make([]schema.Document, len(docs))
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		projected := make(schema.Document, len(keys))
		for _, key := range keys {
			if value, ok := doc[key]; ok {
				projected[key] = value
			}
		}
		out[i] = projected
	}
	return out
}

func window(docs []schema.Document, step WindowStep) []schema.Document {
	before := max(step.Before, 0)
	after := max(step.After, 0)
	field := step.Field
	if field == "" {
		field = schema.DefaultSlugField
	}

	target := -1
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		if slug, ok := doc[field].(string); ok && slug == step.Slug {
			target = i
			break
		}
	}

	out := make([]schema.Document, before+after)
	if target < 0 {
		return out
	}
	for j := 0; j < before; j++ {
		if src := target - before + j; src >= 0 {
			out[j] = docs[src]
		}
	}
	for j := 0; j < after; j++ {
		if src := target + 1 + j; src < len(docs) {
			out[before+j] = docs[src]
		}
	}
	return out
}

package dataset

import (
	"fmt"

	"github.com/mkoval/faqforge/internal/catalog"
	"github.com/mkoval/faqforge/internal/faq"
)

// Example is one training text of the form "question ### answer". Examples
// are derived values; they exist only for the duration of a single training
// invocation and are never mutated after creation.
type Example struct {
	Text string `json:"text"`
}

// Builder assembles the training set for one fine-tuning run by merging
// user-supplied FAQ pairs with the industry catalog's defaults. The catalog
// is an explicit dependency so tests can substitute their own.
type Builder struct {
	catalog *catalog.Catalog
}

// New creates a Builder backed by the given catalog.
func New(c *catalog.Catalog) *Builder {
	return &Builder{catalog: c}
}

// Build turns FAQ pairs into training examples. Custom pairs come first, in
// caller order; when industry names a catalog entry, that industry's default
// pairs follow in catalog order. Unknown industries add nothing. No
// de-duplication is performed: identical questions from the custom input and
// the catalog both survive as separate examples. The caller's slice is never
// mutated.
func (b *Builder) Build(pairs []faq.Pair, industry string) []Example {
	all := make([]faq.Pair, 0, len(pairs))
	all = append(all, pairs...)

	if defaults, ok := b.catalog.Pairs(industry); ok {
		all = append(all, defaults...)
	}

	examples := make([]Example, len(all))
	for i, p := range all {
		examples[i] = Example{Text: fmt.Sprintf("%s %s %s", p.Question, faq.Separator, p.Answer)}
	}
	return examples
}

// Texts returns the bare example texts in order, the form the model runner
// accepts on the wire.
func Texts(examples []Example) []string {
	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
	}
	return texts
}

package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mkoval/faqforge/internal/faq"
)

// Industry is one catalog entry: an industry name and its default FAQ pairs.
// Pair order within an industry is part of the contract; builders append
// catalog pairs in exactly this order.
type Industry struct {
	Name  string     `json:"name"`
	Pairs []faq.Pair `json:"pairs"`
}

// Catalog is the fixed set of per-industry sample FAQs. It is loaded once at
// startup and never mutated; all getters copy.
type Catalog struct {
	industries []Industry
}

// Default returns the built-in industry catalog.
func Default() *Catalog {
	return &Catalog{industries: []Industry{
		{
			Name: "retail",
			Pairs: []faq.Pair{
				{Question: "What are your store hours?", Answer: "Our store is open Monday through Saturday from 9 AM to 6 PM."},
				{Question: "Do you offer returns?", Answer: "Yes, we offer returns within 30 days of purchase with original receipt."},
			},
		},
		{
			Name: "restaurant",
			Pairs: []faq.Pair{
				{Question: "Do you take reservations?", Answer: "Yes, we accept reservations through our website or by phone."},
				{Question: "Are you open for lunch?", Answer: "Yes, we serve lunch from 11 AM to 3 PM daily."},
			},
		},
		{
			Name: "fitness",
			Pairs: []faq.Pair{
				{Question: "What are your membership options?", Answer: "We offer monthly and annual memberships with various packages."},
				{Question: "Do you offer personal training?", Answer: "Yes, we have certified personal trainers available for one-on-one sessions."},
			},
		},
	}}
}

// Load reads a catalog from a JSON file: an array of {"name", "pairs"}
// entries replacing the built-in set. Operators use this to supply their own
// industry samples.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var industries []Industry
	if err := json.Unmarshal(data, &industries); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	c := &Catalog{industries: industries}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.industries))
	for i, ind := range c.industries {
		if ind.Name == "" {
			return fmt.Errorf("industry %d has an empty name", i)
		}
		if seen[ind.Name] {
			return fmt.Errorf("industry %q appears twice", ind.Name)
		}
		seen[ind.Name] = true
		for j, p := range ind.Pairs {
			if p.Question == "" || p.Answer == "" {
				return fmt.Errorf("industry %q pair %d has an empty question or answer", ind.Name, j)
			}
		}
	}
	return nil
}

// Names returns the industry names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.industries))
	for i, ind := range c.industries {
		names[i] = ind.Name
	}
	return names
}

// Pairs returns a copy of the default FAQ pairs for the given industry, in
// catalog order, and whether the industry exists. Lookup is exact; unknown
// industries are not an error for callers, which simply skip augmentation.
func (c *Catalog) Pairs(industry string) ([]faq.Pair, bool) {
	for _, ind := range c.industries {
		if ind.Name == industry {
			pairs := make([]faq.Pair, len(ind.Pairs))
			copy(pairs, ind.Pairs)
			return pairs, true
		}
	}
	return nil, false
}

// Industries returns a copy of all catalog entries in catalog order.
func (c *Catalog) Industries() []Industry {
	out := make([]Industry, len(c.industries))
	for i, ind := range c.industries {
		pairs := make([]faq.Pair, len(ind.Pairs))
		copy(pairs, ind.Pairs)
		out[i] = Industry{Name: ind.Name, Pairs: pairs}
	}
	return out
}

// Len returns the number of industries in the catalog.
func (c *Catalog) Len() int { return len(c.industries) }

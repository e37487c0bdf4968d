// Package synonyms groups (lemma, representation) pairs into a symmetric
// synonym mapping suitable for a search engine synonym filter.
package synonyms

import "sort"

// Pair is a single row read from the lexeme source.
type Pair struct {
	Lemma          string `json:"lemma"`
	Representation string `json:"representation"`
}

// Mapping maps every word to the words it is synonymous with, itself included.
type Mapping map[string][]string

// Stats describes what the base pass consumed.
type Stats struct {
	// Lemmas is the number of distinct lemmas that got at least one entry.
	Lemmas int
	// Representations counts every append attempt, duplicates included.
	Representations int
}

// Build runs the base pass and the expansion pass over pairs.
func Build(pairs []Pair) (Mapping, Stats) {
	base, stats := Base(pairs)
	return base.Expand(), stats
}

// Clusters is the result of the base pass: one ordered group per lemma.
type Clusters struct {
	order  []string
	groups map[string]*group
}

// Base collects the representations of every lemma. Pairs whose lemma equals
// the representation carry no synonym and are skipped.
func Base(pairs []Pair) (*Clusters, Stats) {
	c := &Clusters{groups: make(map[string]*group)}
	var stats Stats

	for _, p := range pairs {
		if p.Lemma == p.Representation {
			continue
		}

		g, ok := c.groups[p.Lemma]
		if !ok {
			// the lemma goes first so the synonym filter keeps the original word
			g = newGroup(p.Lemma)
			c.groups[p.Lemma] = g
			c.order = append(c.order, p.Lemma)
			stats.Lemmas++
		}

		g.add(p.Representation)
		stats.Representations++
	}

	return c, stats
}

// Len returns the number of lemmas.
func (c *Clusters) Len() int {
	return len(c.order)
}

// Mapping returns the base mapping keyed by lemma only.
func (c *Clusters) Mapping() Mapping {
	m := make(Mapping, len(c.order))
	for _, lemma := range c.order {
		m[lemma] = c.groups[lemma].list()
	}
	return m
}

// Expand links every member of a lemma's cluster with every other member.
// Clusters are read from c and never from the mapping under construction, so
// the resulting sets do not depend on input order.
func (c *Clusters) Expand() Mapping {
	expanded := make(map[string]*group, len(c.order))
	var keys []string

	for _, lemma := range c.order {
		expanded[lemma] = c.groups[lemma].clone()
		keys = append(keys, lemma)
	}

	for _, lemma := range c.order {
		members := c.groups[lemma].items
		for _, word := range members {
			g, ok := expanded[word]
			if !ok {
				g = newGroup(word)
				expanded[word] = g
				keys = append(keys, word)
			}
			for _, other := range members {
				g.add(other)
			}
		}
	}

	m := make(Mapping, len(keys))
	for _, k := range keys {
		m[k] = expanded[k].list()
	}
	return m
}

// group is an insertion ordered set of strings.
type group struct {
	items []string
	seen  map[string]struct{}
}

func newGroup(first string) *group {
	return &group{
		items: []string{first},
		seen:  map[string]struct{}{first: {}},
	}
}

func (g *group) add(s string) {
	if _, ok := g.seen[s]; ok {
		return
	}
	g.seen[s] = struct{}{}
	g.items = append(g.items, s)
}

func (g *group) clone() *group {
	cp := &group{
		items: make([]string, len(g.items)),
		seen:  make(map[string]struct{}, len(g.seen)),
	}
	copy(cp.items, g.items)
	for k := range g.seen {
		cp.seen[k] = struct{}{}
	}
	return cp
}

func (g *group) list() []string {
	out := make([]string, len(g.items))
	copy(out, g.items)
	return out
}

// Keys returns the words of m in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

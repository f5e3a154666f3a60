// Package bundle groups questions into units sent in one round trip.
package bundle

import inquire "github.com/Paranoid-AF/inquire"

// Bundle is an ordered, non-empty run of questions sent together.
// Only its first member may depend on earlier answers.
type Bundle []*inquire.Question

// Group partitions questions left to right. Every dynamic question (computed
// message, default or choices, or a When predicate) opens a new bundle, so its
// dependencies are resolved against all answers from earlier bundles. Static
// questions join the current bundle.
func Group(questions []*inquire.Question) []Bundle {
	var bundles []Bundle
	for i, q := range questions {
		if i == 0 || q.Dynamic() {
			bundles = append(bundles, Bundle{q})
			continue
		}
		last := len(bundles) - 1
		bundles[last] = append(bundles[last], q)
	}
	return bundles
}

// Names returns the member names in order.
func (b Bundle) Names() []string {
	names := make([]string, len(b))
	for i, q := range b {
		names[i] = q.Name
	}
	return names
}

// Find returns the member called name, or nil.
func (b Bundle) Find(name string) *inquire.Question {
	for _, q := range b {
		if q.Name == name {
			return q
		}
	}
	return nil
}

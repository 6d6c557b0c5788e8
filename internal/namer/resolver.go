package namer

import (
	"fmt"

	"github.com/Hk-V1/consignee-renamer/constants"
)

// ExistsFunc probes the staging area for a file name already on disk.
type ExistsFunc func(name string) bool

// Resolver assigns final names that are unique within one run. Names given
// out are remembered, so for a fixed input order the assignment is
// deterministic. It never reuses a name, whatever the policy.
type Resolver struct {
	policy      constants.NumberingPolicy
	maxAttempts int
	exists      ExistsFunc

	counts map[string]int
	taken  map[string]struct{}
}

// NewResolver builds a resolver for one run. exists may be nil when the
// staging area starts empty.
func NewResolver(policy constants.NumberingPolicy, maxAttempts int, exists ExistsFunc) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = 10000
	}
	return &Resolver{
		policy:      policy,
		maxAttempts: maxAttempts,
		exists:      exists,
		counts:      make(map[string]int),
		taken:       make(map[string]struct{}),
	}
}

// Resolve returns the final name for base+ext. seq is the entry's position in
// enumeration order and stamps the fallback name when the suffix search is
// exhausted; exhausted reports that the fallback was used.
func (r *Resolver) Resolve(base, ext string, seq int) (name string, exhausted bool) {
	switch r.policy {
	case constants.PolicyOccurrence:
		name = r.resolveOccurrence(base, ext)
	default:
		name = r.resolveProbe(base, ext)
	}
	if name == "" {
		return r.fallback(base, ext, seq), true
	}
	r.taken[name] = struct{}{}
	return name, false
}

// resolveProbe appends _1, _2, ... until a free name is found.
func (r *Resolver) resolveProbe(base, ext string) string {
	candidate := base + ext
	for counter := 1; r.used(candidate); counter++ {
		if counter > r.maxAttempts {
			return ""
		}
		candidate = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}
	return candidate
}

// resolveOccurrence counts per base name; the first keeps the bare name and
// the Kth duplicate gets _K. If the counted candidate is somehow taken, the
// count keeps advancing so the name stays unique.
func (r *Resolver) resolveOccurrence(base, ext string) string {
	for attempt := 0; attempt <= r.maxAttempts; attempt++ {
		r.counts[base]++
		count := r.counts[base]

		candidate := base + ext
		if count > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, count, ext)
		}
		if !r.used(candidate) {
			return candidate
		}
	}
	return ""
}

// fallback stamps the entry sequence onto the base and walks forward until
// free. The sequence is unique per run, so this terminates quickly.
func (r *Resolver) fallback(base, ext string, seq int) string {
	for k := seq; ; k++ {
		candidate := fmt.Sprintf("%s_%d%s", base, k, ext)
		if !r.used(candidate) {
			r.taken[candidate] = struct{}{}
			return candidate
		}
	}
}

func (r *Resolver) used(name string) bool {
	if _, ok := r.taken[name]; ok {
		return true
	}
	return r.exists != nil && r.exists(name)
}

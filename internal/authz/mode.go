package authz

// Mode selects how a multi-name check is satisfied.
type Mode int

const (
	// All requires every requested name. It is the zero value.
	All Mode = iota
	// Any requires at least one requested name.
	Any
)

func (m Mode) String() string {
	if m == Any {
		return "any"
	}
	return "all"
}

// satisfied applies the mode to the requested names and the set the user holds.
func (m Mode) satisfied(requested []string, held map[string]struct{}) bool {
	if len(requested) == 0 {
		return false
	}
	matched := 0
	for _, name := range requested {
		if _, ok := held[name]; ok {
			matched++
		}
	}
	if m == Any {
		return matched > 0
	}
	return matched == len(requested)
}

// distinct drops duplicates, keeping first-seen order. An empty name is kept
// so that it fails the membership test like any other unknown name.
func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

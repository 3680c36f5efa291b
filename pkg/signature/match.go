package signature

// Match reports whether the observed pattern satisfies the reference pattern.
//
// The matcher is greedy and never backtracks: after a wildcard it commits to
// the first occurrence of the next wanted value. Database entries are written
// against exactly these semantics, so it must not be replaced with a general
// backtracking matcher.
//
// Optional tokens that are not found (or are met outside a wildcard run) are
// skipped without consuming observed values.
func Match(ref, observed Pattern) bool {
	var (
		i, j     int
		wildcard bool
	)

	for ; i < len(ref) && j < len(observed); i++ {
		r := ref[i]

		// Exact or optional value sitting right at the cursor.
		if r.Kind != Wildcard && r.Value == observed[j].Value {
			wildcard = false
			j++
			continue
		}

		if r.Kind == Wildcard {
			wildcard = true
			continue
		}

		if r.Kind == Optional {
			if wildcard {
				if k := indexFrom(observed, j, r.Value); k >= 0 {
					wildcard = false
					j = k + 1
				}
			}
			continue
		}

		// Exact value after a wildcard: scan forward. When it is absent the
		// observed cursor runs off the end.
		if wildcard {
			if k := indexFrom(observed, j, r.Value); k >= 0 {
				j = k + 1
			} else {
				j = len(observed)
			}
			wildcard = false
			continue
		}

		return false
	}

	// Trailing wildcard and optional tokens impose nothing.
	for i < len(ref) && ref[i].Kind != Exact {
		i++
	}

	if i == len(ref) && j == len(observed) {
		return true
	}
	return i == len(ref) && wildcard
}

func indexFrom(p Pattern, from int, v uint32) int {
	for k := from; k < len(p); k++ {
		if p[k].Value == v {
			return k
		}
	}
	return -1
}

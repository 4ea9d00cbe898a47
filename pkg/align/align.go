// Package align computes longest-common-subsequence alignments between two
// sequences of comparable units. It is used at syllable granularity for
// phonetic scoring and at jamo granularity for highlighting.
//
// The backtrace is deterministic: whenever the unit pair differs and both
// directions keep an optimal alignment, the unit from sequence A is consumed
// first (treated as deleted). Highlight output depends on this rule, so it is
// part of the package contract.
package align

// Kind is the type of a single alignment step.
type Kind uint8

const (
	// Match pairs A[I] with B[J]; the units are equal.
	Match Kind = iota

	// DeleteFromA leaves A[I] unmatched.
	DeleteFromA

	// InsertFromB leaves B[J] unmatched.
	InsertFromB
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Match:
		return "match"
	case DeleteFromA:
		return "delete"
	case InsertFromB:
		return "insert"
	default:
		return "unknown"
	}
}

// Op is one step of an alignment path. I is -1 for [InsertFromB] and J is -1
// for [DeleteFromA].
type Op struct {
	Kind Kind
	I    int
	J    int
}

// Path is an ordered list of alignment steps. Reading the A indices of the
// Match and DeleteFromA steps in order yields 0..len(A)-1; the same holds for
// B with Match and InsertFromB.
type Path []Op

// Align returns the LCS alignment of a and b. Empty inputs never fail: two
// empty sequences give an empty path and a single empty side gives a path of
// pure insertions or deletions.
//
// Time and space are O(len(a)·len(b)).
func Align[T comparable](a, b []T) Path {
	m, n := len(a), len(b)
	if m == 0 && n == 0 {
		return Path{}
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			switch {
			case a[i-1] == b[j-1]:
				dp[i][j] = dp[i-1][j-1] + 1
			case dp[i-1][j] >= dp[i][j-1]:
				dp[i][j] = dp[i-1][j]
			default:
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	rev := make(Path, 0, m+n)
	i, j := m, n
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			rev = append(rev, Op{Kind: Match, I: i - 1, J: j - 1})
			i--
			j--
		case i > 0 && (j == 0 || dp[i-1][j] >= dp[i][j-1]):
			rev = append(rev, Op{Kind: DeleteFromA, I: i - 1, J: -1})
			i--
		default:
			rev = append(rev, Op{Kind: InsertFromB, I: -1, J: j - 1})
			j--
		}
	}

	path := make(Path, len(rev))
	for k, op := range rev {
		path[len(rev)-1-k] = op
	}
	return path
}

// Counts returns the number of matches, deletions, and insertions in p.
func (p Path) Counts() (matches, deletions, insertions int) {
	for _, op := range p {
		switch op.Kind {
		case Match:
			matches++
		case DeleteFromA:
			deletions++
		case InsertFromB:
			insertions++
		}
	}
	return matches, deletions, insertions
}

// KeptA returns a mask of length lenA where index i is true when A[i] was
// matched.
func (p Path) KeptA(lenA int) []bool {
	kept := make([]bool, lenA)
	for _, op := range p {
		if op.Kind == Match && op.I < lenA {
			kept[op.I] = true
		}
	}
	return kept
}

// KeptB returns a mask of length lenB where index j is true when B[j] was
// matched.
func (p Path) KeptB(lenB int) []bool {
	kept := make([]bool, lenB)
	for _, op := range p {
		if op.Kind == Match && op.J < lenB {
			kept[op.J] = true
		}
	}
	return kept
}

// Gap is a run of consecutive non-matching steps between two matches (or the
// path ends). Deleted and Inserted hold the A and B indices in path order.
type Gap struct {
	Deleted  []int
	Inserted []int
}

// Segment is either a single match or a gap; exactly one of Match and Gap is
// set.
type Segment struct {
	Match *Op
	Gap   *Gap
}

// Segments groups p into matches and the gaps between them.
func (p Path) Segments() []Segment {
	var (
		segs []Segment
		cur  *Gap
	)
	flush := func() {
		if cur != nil {
			segs = append(segs, Segment{Gap: cur})
			cur = nil
		}
	}
	for k := range p {
		op := p[k]
		switch op.Kind {
		case Match:
			flush()
			segs = append(segs, Segment{Match: &op})
		case DeleteFromA:
			if cur == nil {
				cur = &Gap{}
			}
			cur.Deleted = append(cur.Deleted, op.I)
		case InsertFromB:
			if cur == nil {
				cur = &Gap{}
			}
			cur.Inserted = append(cur.Inserted, op.J)
		}
	}
	flush()
	return segs
}

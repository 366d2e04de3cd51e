package search

// Edit operation costs. The asymmetry is deliberate: inserting characters
// into the query is cheap while deleting them is expensive, which rewards
// queries that are prefixes or truncations of the target over queries that
// need substitutions.
const (
	costInsert    = 1
	costDelete    = 3
	costSubst     = 2
	costTranspose = 1
)

// Distance is the weighted Damerau-Levenshtein cost of transforming query
// into target. Inputs are compared as runes; callers are expected to Fold
// both sides first.
func Distance(query, target string) int {
	a := []rune(query)
	b := []rune(target)
	n, m := len(a), len(b)

	if n == 0 {
		return m * costInsert
	}
	if m == 0 {
		return n * costDelete
	}

	// Full matrix so the transposition lookback stays simple. Names and
	// identifiers are short, this never matters.
	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		d[i][0] = i * costDelete
	}
	for j := 1; j <= m; j++ {
		d[0][j] = j * costInsert
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			sub := costSubst
			if a[i-1] == b[j-1] {
				sub = 0
			}
			best := min3(
				d[i-1][j]+costDelete,
				d[i][j-1]+costInsert,
				d[i-1][j-1]+sub,
			)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := d[i-2][j-2] + costTranspose; t < best {
					best = t
				}
			}
			d[i][j] = best
		}
	}
	return d[n][m]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

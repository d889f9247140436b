package testing

// UserPairs returns every unordered pair of distinct ids, each pair once, in both argument orders
// e.g. [a, b, c] -> [[a,b], [b,a], [a,c], [c,a], [b,c], [c,b]]
func UserPairs(ids []string) [][2]string {
	pairs := make([][2]string, 0, len(ids)*(len(ids)-1))
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, [2]string{ids[i], ids[j]}, [2]string{ids[j], ids[i]})
		}
	}

	return pairs
}

package crawler

// Batches splits urls into consecutive groups of at most size URLs.
// The last group holds the remainder.
func Batches(urls []string, size int) [][]string {
	if size < 1 {
		size = 1
	}

	batches := make([][]string, 0, (len(urls)+size-1)/size)
	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))
		batches = append(batches, urls[start:end:end])
	}
	return batches
}

// Dedupe drops repeated URLs, keeping the first occurrence of each.
func Dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	unique := make([]string, 0, len(urls))

	for _, u := range urls {
		// Skip duplicates
		if seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}
	return unique
}

package core

// CategoryCount is the number of loaded expenses behind one filter option.
type CategoryCount struct {
	Filter Filter
	Count  int
}

// CountByCategory returns All followed by every category in display order.
// Categories without expenses are listed with a zero count.
func CountByCategory(expenses []Expense) []CategoryCount {
	byCat := make(map[Category]int, len(categories))
	for _, e := range expenses {
		byCat[e.Category]++
	}
	out := make([]CategoryCount, 0, len(categories)+1)
	out = append(out, CategoryCount{Filter: All, Count: len(expenses)})
	for _, c := range categories {
		out = append(out, CategoryCount{Filter: FilterFor(c), Count: byCat[c]})
	}
	return out
}

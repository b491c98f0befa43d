package engine

import "strings"

// Criteria narrows a published list. The zero value matches everyone.
type Criteria struct {
	Department Department
	Query      string
}

// Filter applies the department and query filters, preserving order.
func Filter(people []Person, c Criteria) []Person {
	return FilterByQuery(FilterByDepartment(people, c.Department), c.Query)
}

// FilterByDepartment keeps people of dept. The "all" wildcard and the empty value keep everyone.
func FilterByDepartment(people []Person, dept Department) []Person {
	if dept == "" || dept == DeptAll {
		return people
	}
	out := make([]Person, 0, len(people))
	for _, p := range people {
		if p.Department == dept {
			out = append(out, p)
		}
	}
	return out
}

// FilterByQuery keeps people whose full name or tag contains the query, ignoring case.
// Trailing whitespace in the query is ignored.
func FilterByQuery(people []Person, query string) []Person {
	q := strings.ToLower(strings.TrimRight(query, " \t\r\n"))
	if q == "" {
		return people
	}
	out := make([]Person, 0, len(people))
	for _, p := range people {
		if strings.Contains(strings.ToLower(p.FullName()), q) || strings.Contains(strings.ToLower(p.UserTag), q) {
			out = append(out, p)
		}
	}
	return out
}

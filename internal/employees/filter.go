package employees

import (
	"sort"
	"strings"
)

type FilterOptions struct {
	Search      string   `json:"search"`
	Departments []string `json:"departments"`
	Positions   []string `json:"positions"`
	Active      *bool    `json:"active"`
}

func containsExact(hay []string, needle string) bool {
	for _, h := range hay {
		if h == needle {
			return true
		}
	}
	return false
}

// matchesSearch follows the credential screens: case-insensitive match on
// first or last name, plain substring match on the rut.
func matchesSearch(e Employee, search string) bool {
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(e.FirstName), q) ||
		strings.Contains(strings.ToLower(e.LastName), q) ||
		strings.Contains(e.RUT, search)
}

func Filter(list []Employee, opt FilterOptions) []Employee {
	out := []Employee{}
	search := strings.TrimSpace(opt.Search)
	for _, e := range list {
		if opt.Active != nil && e.IsActive != *opt.Active {
			continue
		}
		if len(opt.Departments) > 0 && !containsExact(opt.Departments, e.Department) {
			continue
		}
		if len(opt.Positions) > 0 && !containsExact(opt.Positions, e.Position) {
			continue
		}
		if search != "" && !matchesSearch(e, search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

type DepartmentCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Departments lists the distinct departments sorted by name, with the number
// of employees in each.
func Departments(list []Employee) []DepartmentCount {
	counts := map[string]int{}
	for _, e := range list {
		counts[e.Department]++
	}
	out := make([]DepartmentCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, DepartmentCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Package batch describes which employees go into one credentials document.
package batch

import (
	"strings"

	"github.com/youruser/emsapp/internal/employees"
)

// Selection picks employees by department or by explicit id/rut. An empty
// selection matches nobody.
type Selection struct {
	Name        string   `json:"name"`
	Departments []string `json:"departments,omitempty"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

func (s Selection) Empty() bool {
	return len(s.Departments) == 0 && len(s.EmployeeIDs) == 0
}

// Resolve returns the selected employees in list order. Each employee
// appears at most once even if both a department and an id select it.
// missing holds the ids that matched no employee.
func (s Selection) Resolve(list []employees.Employee) (selected []employees.Employee, missing []string) {
	depts := map[string]bool{}
	for _, d := range s.Departments {
		depts[strings.ToLower(strings.TrimSpace(d))] = true
	}
	ids := map[string]bool{}
	found := map[string]bool{}
	for _, id := range s.EmployeeIDs {
		ids[strings.TrimSpace(id)] = true
	}

	for _, e := range list {
		hit := depts[strings.ToLower(e.Department)]
		if ids[e.ID] {
			found[e.ID] = true
			hit = true
		}
		if e.RUT != "" && ids[e.RUT] {
			found[e.RUT] = true
			hit = true
		}
		if hit {
			selected = append(selected, e)
		}
	}

	for _, id := range s.EmployeeIDs {
		id = strings.TrimSpace(id)
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return selected, missing
}

// Label is a short human name for the selection, used in logs and job
// listings.
func (s Selection) Label() string {
	if s.Name != "" {
		return s.Name
	}
	switch {
	case len(s.Departments) > 0 && len(s.EmployeeIDs) == 0:
		return strings.Join(s.Departments, ", ")
	case len(s.EmployeeIDs) == 1 && len(s.Departments) == 0:
		return s.EmployeeIDs[0]
	}
	return "selection"
}

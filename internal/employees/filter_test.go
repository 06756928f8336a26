package employees

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sample() []Employee {
	return []Employee{
		{ID: "1", RUT: "12345678-9", FirstName: "Juan", LastName: "Pérez", Department: "Operations", Position: "Driver", IsActive: true},
		{ID: "2", RUT: "9876543-2", FirstName: "Ana", LastName: "Soto", Department: "Finance", Position: "Analyst", IsActive: true},
		{ID: "3", RUT: "11222333-4", FirstName: "Luis", LastName: "Rojas", Department: "Operations", Position: "Mechanic", IsActive: false},
	}
}

func ids(list []Employee) []string {
	out := []string{}
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	inactive := false
	tests := []struct {
		name string
		opt  FilterOptions
		want []string
	}{
		{"all", FilterOptions{}, []string{"1", "2", "3"}},
		{"name case-insensitive", FilterOptions{Search: "JUAN"}, []string{"1"}},
		{"last name", FilterOptions{Search: "rojas"}, []string{"3"}},
		{"rut substring", FilterOptions{Search: "876"}, []string{"2"}},
		{"department", FilterOptions{Departments: []string{"Operations"}}, []string{"1", "3"}},
		{"position", FilterOptions{Positions: []string{"Analyst", "Mechanic"}}, []string{"2", "3"}},
		{"inactive", FilterOptions{Active: &inactive}, []string{"3"}},
		{"no match", FilterOptions{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(Filter(sample(), tt.opt))); diff != "" {
				t.Errorf("Filter (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDepartments(t *testing.T) {
	want := []DepartmentCount{{Name: "Finance", Count: 1}, {Name: "Operations", Count: 2}}
	if diff := cmp.Diff(want, Departments(sample())); diff != "" {
		t.Errorf("Departments (-want +got):\n%s", diff)
	}
}

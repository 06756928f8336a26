package batch

import (
	"strconv"
	"strings"

	"github.com/youruser/emsapp/internal/credential"
)

// ExportManifest lists the pages of a generated document, one line per
// page in page order:
//
//	# name
//	1 12345678-9 Juan Pérez
//	2 9876543-2 Ana Soto (initials)
func ExportManifest(name string, pages []credential.Page) string {
	lines := []string{}
	if name != "" {
		lines = append(lines, "# "+name)
	}
	for i, p := range pages {
		line := strconv.Itoa(i+1) + " " + p.NationalID + " " + p.Name
		if p.Placeholder {
			line += " (initials)"
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n") + "\n"
}

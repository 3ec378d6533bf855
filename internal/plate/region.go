package plate

import "strings"

type region struct {
	canonical string
	names     []string
}

// regions are matched as whole words against normalized text, first match wins.
var regions = []region{
	{"NCR", []string{"NCR", "METRO MANILA", "NATIONAL CAPITAL REGION"}},
	{"CAR", []string{"CAR", "CORDILLERA"}},
	{"BARMM", []string{"BARMM", "ARMM", "BANGSAMORO"}},
	{"NIR", []string{"NIR", "NEGROS ISLAND"}},
	{"REGION I", []string{"ILOCOS"}},
	{"REGION II", []string{"CAGAYAN VALLEY"}},
	{"REGION III", []string{"CENTRAL LUZON"}},
	{"REGION IV-A", []string{"CALABARZON"}},
	{"REGION IV-B", []string{"MIMAROPA"}},
	{"REGION V", []string{"BICOL"}},
	{"REGION VI", []string{"WESTERN VISAYAS"}},
	{"REGION VII", []string{"CENTRAL VISAYAS"}},
	{"REGION VIII", []string{"EASTERN VISAYAS"}},
	{"REGION IX", []string{"ZAMBOANGA"}},
	{"REGION X", []string{"NORTHERN MINDANAO"}},
	{"REGION XI", []string{"DAVAO"}},
	{"REGION XII", []string{"SOCCSKSARGEN"}},
	{"REGION XIII", []string{"CARAGA"}},
}

var numbered = map[string]string{
	"I": "REGION I", "1": "REGION I",
	"II": "REGION II", "2": "REGION II",
	"III": "REGION III", "3": "REGION III",
	"IVA": "REGION IV-A", "4A": "REGION IV-A",
	"IVB": "REGION IV-B", "4B": "REGION IV-B",
	"V": "REGION V", "5": "REGION V",
	"VI": "REGION VI", "6": "REGION VI",
	"VII": "REGION VII", "7": "REGION VII",
	"VIII": "REGION VIII", "8": "REGION VIII",
	"IX": "REGION IX", "9": "REGION IX",
	"X": "REGION X", "10": "REGION X",
	"XI": "REGION XI", "11": "REGION XI",
	"XII": "REGION XII", "12": "REGION XII",
	"XIII": "REGION XIII", "13": "REGION XIII",
}

// NormalizeRegion maps a printed region label to its canonical name. Unknown labels
// come back normalized but otherwise unchanged.
func NormalizeRegion(text string) string {
	canonical, _ := lookupRegion(Normalize(text))
	return canonical
}

// IsKnownRegion reports whether text names one of the Philippine regions.
func IsKnownRegion(text string) bool {
	_, ok := lookupRegion(Normalize(text))
	return ok
}

func lookupRegion(n string) (string, bool) {
	if n == "" {
		return "", false
	}
	padded := " " + n + " "
	for _, r := range regions {
		for _, name := range r.names {
			if strings.Contains(padded, " "+name+" ") {
				return r.canonical, true
			}
		}
	}

	fields := strings.Fields(n)
	for i, f := range fields {
		if f != "REGION" || i+1 >= len(fields) {
			continue
		}
		num := fields[i+1]
		if i+2 < len(fields) && (fields[i+2] == "A" || fields[i+2] == "B") {
			if c, ok := numbered[num+fields[i+2]]; ok {
				return c, true
			}
		}
		if c, ok := numbered[num]; ok {
			return c, true
		}
	}
	return n, false
}

package rules

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Listing renders active rules as stable text, one rule per line followed by
// one indented line per set parameter in definition order. Values of ids the
// rule does not declare come last, by id. Rules are listed in slice order.
//
//	squid:S1067 MAJOR
//	  max="10"
func Listing(ars []ActiveRule) string {
	var sb strings.Builder
	for i := range ars {
		ar := &ars[i]
		sb.WriteString(ar.Key().String())
		sb.WriteByte(' ')
		sb.WriteString(ar.Severity.String())
		sb.WriteByte('\n')

		seen := make(map[int]bool, len(ar.Params))
		if ar.Rule != nil {
			for _, p := range ar.Rule.Params {
				if v, ok := ar.Params[p.ID]; ok {
					writeParam(&sb, p.Name, v)
					seen[p.ID] = true
				}
			}
		}
		for _, id := range slices.Sorted(maps.Keys(ar.Params)) {
			if !seen[id] {
				writeParam(&sb, "#"+strconv.Itoa(id), ar.Params[id])
			}
		}
	}
	return sb.String()
}

func writeParam(sb *strings.Builder, name, value string) {
	sb.WriteString("  ")
	sb.WriteString(name)
	sb.WriteByte('=')
	sb.WriteString(strconv.Quote(value))
	sb.WriteByte('\n')
}

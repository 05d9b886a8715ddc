package loader

import (
	"fmt"
	"strings"
)

// Rejection records one input row that never reached the engine
type Rejection struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report summarizes one table load
type Report struct {
	Table      string      `json:"table"`
	Rows       int         `json:"rows"`
	Accepted   int         `json:"accepted"`
	Duplicates int         `json:"duplicates,omitempty"`
	Rejected   []Rejection `json:"rejected,omitempty"`
}

func (r *Report) reject(line int, format string, args ...any) {
	r.Rejected = append(r.Rejected, Rejection{Line: line, Reason: fmt.Sprintf(format, args...)})
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d rows, %d accepted", r.Table, r.Rows, r.Accepted)
	if r.Duplicates > 0 {
		fmt.Fprintf(&b, ", %d duplicates", r.Duplicates)
	}
	if len(r.Rejected) > 0 {
		fmt.Fprintf(&b, ", %d rejected", len(r.Rejected))
	}
	return b.String()
}

// Reports pairs the two table reports of a load
type Reports struct {
	Winning Report `json:"winning"`
	Sets    Report `json:"sets"`
}

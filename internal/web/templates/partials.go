// Package templates renders the HTMX fragments returned by the web server.
//
// Components live in partials.templ; run `templ generate` after editing it.
package templates

import (
	"strconv"
	"strings"
)

const (
	isoTime     = "2006-01-02T15:04:05Z07:00"
	displayTime = "Jan 2, 2006 15:04"
)

func progressClass(complete bool) string {
	if complete {
		return "complete"
	}
	return "incomplete"
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// Package parser contains the pure extraction and normalization helpers of
// the pipeline: pulling the embedded client state out of raw HTML and
// flattening raw schedule rows into weekly business hours.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const stateMarker = "window.__INITIAL_STATE__"

// scanState tracks where the brace scanner is relative to JSON string
// literals, so braces and quotes inside strings are never treated as
// structural.
type scanState int

const (
	scanNormal scanState = iota
	scanInString
	scanEscaped
)

// ExtractInitialState locates the window.__INITIAL_STATE__ assignment in a
// raw HTML document and returns the balanced JSON object assigned to it.
// There is no HTML or JS parser here on purpose: the surrounding document is
// not well-formed JSON, and the only reliable boundary is brace depth tracked
// outside string literals.
func ExtractInitialState(html string) (json.RawMessage, error) {
	markerIdx := strings.Index(html, stateMarker)
	if markerIdx == -1 {
		return nil, fmt.Errorf("could not find %s in document", stateMarker)
	}

	afterMarker := html[markerIdx+len(stateMarker):]
	eqIdx := strings.IndexByte(afterMarker, '=')
	if eqIdx == -1 {
		return nil, fmt.Errorf("could not find assignment operator after %s", stateMarker)
	}

	braceIdx := strings.IndexByte(afterMarker[eqIdx:], '{')
	if braceIdx == -1 {
		return nil, fmt.Errorf("could not find opening brace for state object")
	}

	start := markerIdx + len(stateMarker) + eqIdx + braceIdx
	end := -1
	depth := 0
	state := scanNormal

scan:
	// Byte-wise scanning is safe here: the bytes that drive the state machine
	// are all ASCII and never occur inside UTF-8 continuation sequences.
	for i := start; i < len(html); i++ {
		c := html[i]

		switch state {
		case scanEscaped:
			state = scanInString
		case scanInString:
			switch c {
			case '\\':
				state = scanEscaped
			case '"':
				state = scanNormal
			}
		case scanNormal:
			switch c {
			case '"':
				state = scanInString
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i + 1
					break scan
				}
			}
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("could not find closing brace for state object")
	}

	raw := json.RawMessage(html[start:end])
	if err := json.Unmarshal(raw, new(any)); err != nil {
		return nil, fmt.Errorf("parse extracted state: %w", err)
	}
	return raw, nil
}

var poiIDPattern = regexp.MustCompile(`-r(\d+)\.json$`)

// PoiIDFromFilename recovers the POI id from a state filename of the form
// r-{callName}-r{poiId}.json. Used as a fallback when the state payload
// itself carries no id.
func PoiIDFromFilename(filename string) (int, bool) {
	match := poiIDPattern.FindStringSubmatch(filename)
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

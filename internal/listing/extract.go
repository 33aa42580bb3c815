package listing

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// jsonFenceRe matches a markdown-fenced JSON block anywhere in the reply.
var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractCandidate locates the JSON payload in a raw model reply. If the
// reply contains a ```json fenced block, its interior is used; otherwise the
// entire reply is attempted as the candidate. A parse failure is terminal
// for the current cycle.
func ExtractCandidate(raw string) (map[string]any, error) {
	content := raw
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		content = m[1]
	}
	var candidate map[string]any
	if err := json.Unmarshal([]byte(content), &candidate); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return candidate, nil
}

// RepairTitle truncates an over-length title to TitleMaxLen characters in
// place. The model occasionally exceeds the stated limit; truncating before
// validation salvages an otherwise valid reply.
func RepairTitle(candidate map[string]any) {
	title, ok := candidate["title"].(string)
	if !ok {
		return
	}
	runes := []rune(title)
	if len(runes) > TitleMaxLen {
		candidate["title"] = string(runes[:TitleMaxLen])
	}
}

// ParseReply runs the full extract, repair and validate chain on a raw model
// reply and returns the validated listing.
func ParseReply(raw string) (*Listing, error) {
	candidate, err := ExtractCandidate(raw)
	if err != nil {
		return nil, err
	}
	RepairTitle(candidate)
	return Validate(candidate)
}

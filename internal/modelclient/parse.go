package modelclient

import (
	"regexp"
	"strings"
)

var moveTagPattern = regexp.MustCompile(`(?is)<uci_move>\s*([a-h][1-8][a-h][1-8][qrbnk]?)\s*</uci_move>`)

// ParseMove extracts a legal UCI move from a model completion. The tagged
// form wins; when the tag is missing or its content is not legal, the raw
// text is scanned for the earliest occurrence of any legal move. Returns ""
// when nothing usable is found.
func ParseMove(raw string, legal []string) string {
	legalSet := make(map[string]bool, len(legal))
	for _, mv := range legal {
		legalSet[strings.ToLower(mv)] = true
	}

	if m := moveTagPattern.FindStringSubmatch(raw); m != nil {
		mv := strings.ToLower(m[1])
		if legalSet[mv] {
			return mv
		}
	}

	// Models often answer in prose ("I'll play e2e4 because..."); pick the
	// legal move mentioned first.
	lowered := strings.ToLower(raw)
	best := ""
	bestIdx := -1
	for mv := range legalSet {
		idx := strings.Index(lowered, mv)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(mv) > len(best)) {
			best = mv
			bestIdx = idx
		}
	}
	return best
}

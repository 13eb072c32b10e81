package blocks

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/smartblock/internal/models"
)

const (
	// EndMarker closes a block.
	EndMarker = "<!-- /block -->"

	startPrefix = "<!--"
	startSuffix = "-->"
	blockKey    = "block:"
)

var startMarkerRe = regexp.MustCompile(`^<!--\s*block:(.*?)\s*-->$`)

// marker holds the attributes decoded from one start marker line.
type marker struct {
	id          string
	typ         string
	title       string
	tags        []string
	reorderable *bool
	extra       map[string]string
}

// parseStartMarker decodes a start marker line. ok is false for any other line.
func parseStartMarker(line string) (marker, bool) {
	m := startMarkerRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return marker{}, false
	}
	var mk marker
	for _, tok := range strings.Fields(m[1]) {
		key, value, _ := strings.Cut(tok, "=")
		switch key {
		case "id":
			mk.id = value
		case "type":
			mk.typ = value
		case "reorderable":
			v := value == "true"
			mk.reorderable = &v
		case "tags":
			mk.tags = splitTags(value)
		case "title":
			if decoded, err := url.PathUnescape(value); err == nil {
				mk.title = decoded
			} else {
				mk.title = value
			}
		default:
			if mk.extra == nil {
				mk.extra = make(map[string]string)
			}
			mk.extra[key] = value
		}
	}
	return mk, true
}

func isEndMarker(line string) bool {
	return strings.TrimSpace(line) == EndMarker
}

func splitTags(value string) []string {
	out := []string{}
	for _, t := range strings.Split(value, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// StartMarker serializes the recognized attributes of b into a start marker.
// Unrecognized attributes are not written back.
func (e *Engine) StartMarker(b models.Block) string {
	var sb strings.Builder
	sb.WriteString(startPrefix)
	sb.WriteString(" ")
	sb.WriteString(blockKey)
	sb.WriteString("id=")
	sb.WriteString(b.ID)
	sb.WriteString(" type=")
	sb.WriteString(string(b.Type))
	switch {
	case b.Reorderable:
		sb.WriteString(" reorderable=true")
	case e.defaultReorderable:
		sb.WriteString(" reorderable=false")
	}
	if len(b.Tags) > 0 {
		sb.WriteString(" tags=")
		sb.WriteString(strings.Join(b.Tags, ","))
	}
	if b.Title != "" {
		sb.WriteString(" title=")
		sb.WriteString(url.PathEscape(b.Title))
	}
	sb.WriteString(" ")
	sb.WriteString(startSuffix)
	return sb.String()
}

// sortedKeys is used to keep warnings about extra attributes deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	dErrors "acspop/pkg/domain-errors"
)

const totalPrefix = "Estimate!!Total"

// VariableMap maps a raw variable code (e.g. B01001_003E) to its decoded
// dimension labels, e.g. ["Male", "Under 5 years"].
type VariableMap map[string][]string

// Variable is one entry of the ACS variables.json document.
type Variable struct {
	Label   string `json:"label"`
	Concept string `json:"concept"`
	Group   string `json:"group"`
}

// Metadata is the parsed ACS variables document, restricted to the groups
// it was parsed for.
type Metadata struct {
	Variables map[string]Variable `json:"variables"`
}

// ParseMetadata decodes an ACS variables.json document and keeps only
// variables belonging to groups.
func ParseMetadata(r io.Reader, groups []string) (*Metadata, error) {
	var doc Metadata
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeShape, "decode acs variables metadata")
	}
	keep := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		keep[g] = struct{}{}
	}
	filtered := make(map[string]Variable)
	for code, v := range doc.Variables {
		if _, ok := keep[v.Group]; ok {
			filtered[code] = v
		}
	}
	return &Metadata{Variables: filtered}, nil
}

// LoadMetadataFile reads and parses a variables.json file.
func LoadMetadataFile(path string, groups []string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata %s: %w", path, err)
	}
	defer f.Close()
	return ParseMetadata(f, groups)
}

// VarsForGroup returns the estimate variables of concept whose label has
// exactly depth parts below "Estimate!!Total". Labels are split on "!!" and
// stripped of the trailing ":" newer vintages append.
func (m *Metadata) VarsForGroup(_ context.Context, concept string, depth int) (VariableMap, error) {
	vars := make(VariableMap)
	for code, v := range m.Variables {
		if !strings.EqualFold(v.Concept, concept) || !strings.HasSuffix(code, "E") {
			continue
		}
		labels, ok := labelParts(v.Label)
		if !ok || len(labels) != depth {
			continue
		}
		vars[code] = labels
	}
	if len(vars) == 0 {
		return nil, dErrors.Newf(dErrors.CodeMapping, "concept %q has no variables at depth %d", concept, depth)
	}
	return vars, nil
}

func labelParts(label string) ([]string, bool) {
	parts := strings.Split(label, "!!")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(strings.TrimSpace(p), ":")
	}
	if len(parts) < 2 || parts[0]+"!!"+parts[1] != totalPrefix {
		return nil, false
	}
	return parts[2:], true
}

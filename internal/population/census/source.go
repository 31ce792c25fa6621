package census

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"acspop/internal/population/models"
	dErrors "acspop/pkg/domain-errors"
	"acspop/pkg/platform/sentinel"
)

// FileName is the extract file name of a concept, e.g.
// SEX_BY_AGE_(WHITE_ALONE)_state.json.
func FileName(concept models.Concept, level models.Level) string {
	return strings.ReplaceAll(concept.Name, " ", "_") + level.Suffix() + ".json"
}

// FileSource reads extracts downloaded into a directory, one file per
// concept and level.
type FileSource struct {
	dir string
}

// NewFileSource constructs a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Load(ctx context.Context, concept models.Concept, level models.Level) (*RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, FileName(concept, level))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dErrors.Wrap(fmt.Errorf("%s: %w", path, sentinel.ErrNotFound), dErrors.CodeNotFound, "raw table not downloaded")
		}
		return nil, fmt.Errorf("open raw table %s: %w", path, err)
	}
	defer f.Close()

	table, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

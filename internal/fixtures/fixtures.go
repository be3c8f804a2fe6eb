package fixtures

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/coursedb/internal/schema"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const Extension = ".json"

// File is one fixture file and the table its records go to.
type File struct {
	Path  string
	Base  string
	Table string
	// Known is false when the base name matched no entity.
	Known bool
}

// Discover lists the fixture files in dir, sorted by name. Directories and
// files without the .json extension are skipped.
func Discover(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures directory %s: %w", dir, err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		table, known := schema.TableForFixture(base)
		files = append(files, File{
			Path:  filepath.Join(dir, entry.Name()),
			Base:  base,
			Table: table,
			Known: known,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Records reads the file as a JSON array of objects.
func (f File) Records() ([]map[string]any, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a JSON array of objects. Numbers are kept as their literal
// text (attributevalue.Number) so they are stored as N without going through
// float64.
func Parse(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fixture: unexpected data after the top-level array")
	}

	for _, record := range records {
		for k, v := range record {
			record[k] = literalNumbers(v)
		}
	}
	return records, nil
}

func literalNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		return attributevalue.Number(v)
	case map[string]any:
		for k, e := range v {
			v[k] = literalNumbers(e)
		}
	case []any:
		for i, e := range v {
			v[i] = literalNumbers(e)
		}
	}
	return v
}

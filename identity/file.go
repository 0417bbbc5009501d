package identity

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/attrgen/errors"
)

// fixture is the on-disk layout of an identity file.
type fixture struct {
	Identities []Identity `json:"identities" yaml:"identities" toml:"identities"`
}

// LoadFile reads identities from a JSON, YAML or TOML file, chosen by
// extension. The result is sorted by id.
func LoadFile(path string) ([]Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read identity file %s", path)
	}

	var f fixture
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		_, err = toml.Decode(string(data), &f)
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported identity file extension %q", ext),
			"use .json, .yaml, .yml or .toml",
		)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse identity file %s", path)
	}

	for i, id := range f.Identities {
		if id.ID == "" {
			return nil, errors.Newf("identity file %s: entry %d has no id", path, i)
		}
	}

	sort.SliceStable(f.Identities, func(i, j int) bool {
		return f.Identities[i].ID < f.Identities[j].ID
	})
	return f.Identities, nil
}

// FileSource serves identities from memory, typically loaded with LoadFile.
type FileSource struct {
	path       string
	identities []Identity
}

// NewFileSource loads path into a FileSource.
func NewFileSource(path string) (*FileSource, error) {
	ids, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{path: path, identities: ids}, nil
}

// NewStaticSource serves the given identities.
func NewStaticSource(identities ...Identity) *FileSource {
	ids := append([]Identity(nil), identities...)
	sort.SliceStable(ids, func(i, j int) bool { return ids[i].ID < ids[j].ID })
	return &FileSource{identities: ids}
}

// Search supports "*" (or empty) for all identities and "id:<id>" for one.
// Any other query returns every identity.
func (s *FileSource) Search(_ context.Context, query string) ([]Identity, error) {
	if id, ok := strings.CutPrefix(strings.TrimSpace(query), "id:"); ok {
		for _, ident := range s.identities {
			if ident.ID == id {
				return []Identity{ident}, nil
			}
		}
		return nil, nil
	}
	return append([]Identity(nil), s.identities...), nil
}

// Get returns the identity with the given id.
func (s *FileSource) Get(ctx context.Context, id string) (*Identity, error) {
	found, _ := s.Search(ctx, "id:"+id)
	if len(found) == 0 {
		return nil, errors.NewNotFoundError("identity %s", id)
	}
	return &found[0], nil
}

// Ping checks the backing file is still readable.
func (s *FileSource) Ping(context.Context) error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return errors.Wrapf(err, "identity file %s", s.path)
	}
	return nil
}

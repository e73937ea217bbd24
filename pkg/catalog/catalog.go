// Package catalog loads the static lookup tables used by a search: the
// material and service catalogs (item name to code) and the unit sphere
// table (UASG code to sphere code).
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
	"github.com/Sternrassler/buscador-adesoes/pkg/sphere"
)

// File names inside a catalog directory.
const (
	MaterialsFile = "catalogo_pdm.json"
	ServicesFile  = "catalogo_servicos.json"
	SpheresFile   = "esfera_uasg.json"
)

var (
	// ErrUnknownItem is returned when a name is not in the catalog.
	ErrUnknownItem = errors.New("unknown catalog item")

	// ErrUnknownKind is returned for an item kind without a catalog.
	ErrUnknownKind = errors.New("unknown item kind")
)

// Catalog maps an item display name to its code.
type Catalog map[string]string

// Names returns the item names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Code resolves a name. Exact matches win; otherwise a single
// case-insensitive match is accepted.
func (c Catalog) Code(name string) (string, error) {
	if code, ok := c[name]; ok {
		return code, nil
	}

	var found []string
	for candidate, code := range c {
		if strings.EqualFold(candidate, strings.TrimSpace(name)) {
			found = append(found, code)
		}
	}
	if len(found) == 1 {
		return found[0], nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownItem, name)
}

// Search returns the sorted names containing term, ignoring case.
func (c Catalog) Search(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []string
	for _, name := range c.Names() {
		if strings.Contains(strings.ToLower(name), term) {
			out = append(out, name)
		}
	}
	return out
}

// Source provides catalogs and the sphere table.
type Source interface {
	Catalog(ctx context.Context, kind ata.ItemKind) (Catalog, error)
	SphereTable(ctx context.Context) (sphere.Table, error)
}

// FileSource reads the JSON files from Dir. Each file is read once and kept
// for the lifetime of the source.
type FileSource struct {
	Dir string

	mu     sync.Mutex
	loaded map[string]map[string]string
}

// NewFileSource creates a source over a catalog directory.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Catalog returns the material or service catalog.
func (s *FileSource) Catalog(_ context.Context, kind ata.ItemKind) (Catalog, error) {
	file, err := fileFor(kind)
	if err != nil {
		return nil, err
	}
	m, err := s.load(file)
	if err != nil {
		return nil, err
	}
	return Catalog(m), nil
}

// SphereTable returns the unit sphere table.
func (s *FileSource) SphereTable(_ context.Context) (sphere.Table, error) {
	m, err := s.load(SpheresFile)
	if err != nil {
		return nil, err
	}
	return sphere.Table(m), nil
}

func (s *FileSource) load(file string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.loaded[file]; ok {
		return m, nil
	}

	m, err := readMapping(filepath.Join(s.Dir, file))
	if err != nil {
		return nil, err
	}
	if s.loaded == nil {
		s.loaded = make(map[string]map[string]string)
	}
	s.loaded[file] = m
	return m, nil
}

func fileFor(kind ata.ItemKind) (string, error) {
	switch kind {
	case ata.KindMaterial:
		return MaterialsFile, nil
	case ata.KindService:
		return ServicesFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// readMapping decodes a flat JSON object. Values may be strings or numbers.
func readMapping(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case string:
			out[k] = x
		case json.Number:
			out[k] = x.String()
		case bool:
			out[k] = strconv.FormatBool(x)
		case nil:
			continue
		default:
			return nil, fmt.Errorf("decode %s: unsupported value for %q", filepath.Base(path), k)
		}
	}
	return out, nil
}

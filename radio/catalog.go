package radio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownVariant = errors.New("unknown radio variant")
	ErrInvalidVariant = errors.New("invalid radio variant")
)

// Catalog is a read-only table of radio variants keyed by ID. It is safe
// for concurrent use because nothing mutates it after construction and
// every lookup hands out a copy.
type Catalog struct {
	variants map[string]RadioVariant
	order    []string
}

// NewCatalog builds a catalog from the given variants. IDs must be
// non-empty and unique.
func NewCatalog(variants ...RadioVariant) (*Catalog, error) {
	c := &Catalog{
		variants: make(map[string]RadioVariant, len(variants)),
		order:    make([]string, 0, len(variants)),
	}
	for _, v := range variants {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidVariant)
		}
		if _, exists := c.variants[id]; exists {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidVariant, id)
		}
		v.ID = id
		c.variants[id] = v
		c.order = append(c.order, id)
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog of built-in SKUs.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog(builtinVariants()...)
		if err != nil {
			panic(fmt.Sprintf("radio: built-in catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Lookup returns a copy of the variant with the given ID.
func (c *Catalog) Lookup(id string) (RadioVariant, error) {
	if c == nil {
		return RadioVariant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, id)
	}
	v, ok := c.variants[strings.TrimSpace(id)]
	if !ok {
		return RadioVariant{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownVariant, id, strings.Join(c.SortedIDs(), ", "))
	}
	return v.Clone(), nil
}

// IDs returns the variant IDs in insertion order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// All returns copies of every variant in insertion order.
func (c *Catalog) All() []RadioVariant {
	if c == nil {
		return nil
	}
	out := make([]RadioVariant, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.variants[id].Clone())
	}
	return out
}

// Merge returns a new catalog holding the entries of c followed by extra.
// Entries in extra replace entries of c with the same ID.
func (c *Catalog) Merge(extra *Catalog) *Catalog {
	out := &Catalog{variants: make(map[string]RadioVariant)}
	for _, src := range []*Catalog{c, extra} {
		if src == nil {
			continue
		}
		for _, id := range src.order {
			if _, exists := out.variants[id]; !exists {
				out.order = append(out.order, id)
			}
			out.variants[id] = src.variants[id]
		}
	}
	return out
}

// catalog file shapes; kept unexported so the on-disk layout can evolve.
type catalogFile struct {
	Variants []variantYAML `yaml:"variants"`
}

type variantYAML struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	SingleAntenna bool      `yaml:"single_antenna"`
	Power         []float64 `yaml:"power"`
	Sensitivity   []float64 `yaml:"sensitivity"`
	Modulation    []string  `yaml:"modulation"`
	CodingRate    []float64 `yaml:"coding_rate"`
	BitsPerSymbol []int     `yaml:"bits_per_symbol"`
}

// LoadCatalog reads a YAML catalog. Modulation, coding_rate and
// bits_per_symbol may be omitted, in which case the 802.11n ladder is used;
// power and sensitivity are mandatory and must hold exactly MCSLevels values.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrInvalidVariant)
	}

	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return NewCatalog()
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	variants := make([]RadioVariant, 0, len(file.Variants))
	for i, raw := range file.Variants {
		v, err := raw.toVariant()
		if err != nil {
			return nil, fmt.Errorf("variants[%d]: %w", i, err)
		}
		variants = append(variants, v)
	}
	return NewCatalog(variants...)
}

// LoadCatalogFile reads the YAML catalog at path and merges it over the
// built-in variants. An empty path returns Default().
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	extra, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Default().Merge(extra), nil
}

func (y variantYAML) toVariant() (RadioVariant, error) {
	v := RadioVariant{
		ID:            y.ID,
		Name:          y.Name,
		SingleAntenna: y.SingleAntenna,
		Modulation:    ht20Modulation,
		CodingRate:    ht20CodingRate,
		BitsPerSymbol: ht20BitsPerSymbol,
	}

	if err := fillFloats(&v.Power, y.Power, "power", true); err != nil {
		return RadioVariant{}, err
	}
	if err := fillFloats(&v.Sensitivity, y.Sensitivity, "sensitivity", true); err != nil {
		return RadioVariant{}, err
	}
	if err := fillFloats(&v.CodingRate, y.CodingRate, "coding_rate", false); err != nil {
		return RadioVariant{}, err
	}
	if len(y.Modulation) > 0 {
		if len(y.Modulation) != MCSLevels {
			return RadioVariant{}, fmt.Errorf("%w: %q modulation has %d entries, want %d", ErrInvalidVariant, y.ID, len(y.Modulation), MCSLevels)
		}
		copy(v.Modulation[:], y.Modulation)
	}
	if len(y.BitsPerSymbol) > 0 {
		if len(y.BitsPerSymbol) != MCSLevels {
			return RadioVariant{}, fmt.Errorf("%w: %q bits_per_symbol has %d entries, want %d", ErrInvalidVariant, y.ID, len(y.BitsPerSymbol), MCSLevels)
		}
		copy(v.BitsPerSymbol[:], y.BitsPerSymbol)
	}

	for i, cr := range v.CodingRate {
		if cr <= 0 || cr > 1 {
			return RadioVariant{}, fmt.Errorf("%w: %q coding_rate[%d] = %v out of (0,1]", ErrInvalidVariant, y.ID, i, cr)
		}
	}
	return v, nil
}

func fillFloats(dst *[MCSLevels]float64, src []float64, field string, required bool) error {
	if len(src) == 0 && !required {
		return nil
	}
	if len(src) != MCSLevels {
		return fmt.Errorf("%w: %s has %d entries, want %d", ErrInvalidVariant, field, len(src), MCSLevels)
	}
	copy(dst[:], src)
	return nil
}

// SortedIDs returns the catalog IDs in lexical order, as listed in unknown
// variant errors.
func (c *Catalog) SortedIDs() []string {
	ids := c.IDs()
	sort.Strings(ids)
	return ids
}

package batch

import (
	"strings"

	"image-sizer-go/internal/domain/sizes"
)

// Resolution is the outcome of mapping size ids to specs.
type Resolution struct {
	Specs        []sizes.SizeSpec
	Unrecognized []string
}

// NoValidSizesError is returned when none of the requested ids resolved.
type NoValidSizesError struct {
	Unrecognized []string
}

func (e *NoValidSizesError) Error() string {
	if len(e.Unrecognized) == 0 {
		return "No sizes selected"
	}
	return "No valid sizes selected. Unrecognized size IDs: " + strings.Join(e.Unrecognized, ", ")
}

func (e *NoValidSizesError) Is(target error) bool {
	return target == ErrNoSpecs
}

// Resolver maps size ids to specs: the custom grammar first, then the catalog.
type Resolver struct {
	catalog *sizes.Catalog
}

func NewResolver(catalog *sizes.Catalog) *Resolver {
	if catalog == nil {
		catalog = sizes.Builtin()
	}
	return &Resolver{catalog: catalog}
}

func (r *Resolver) Catalog() *sizes.Catalog {
	return r.catalog
}

// Resolve keeps request order, drops repeated ids after their first occurrence
// and collects ids matching neither the custom grammar nor the catalog.
func (r *Resolver) Resolve(ids []string) Resolution {
	res := Resolution{Specs: make([]sizes.SizeSpec, 0, len(ids))}
	seen := make(map[string]bool, len(ids))

	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if spec, ok := r.lookup(id); ok {
			res.Specs = append(res.Specs, spec)
			continue
		}
		res.Unrecognized = append(res.Unrecognized, id)
	}
	return res
}

// ResolveStrict resolves ids and fails when nothing resolved.
func (r *Resolver) ResolveStrict(ids []string) (Resolution, error) {
	res := r.Resolve(ids)
	if len(res.Specs) == 0 {
		return res, &NoValidSizesError{Unrecognized: res.Unrecognized}
	}
	return res, nil
}

func (r *Resolver) lookup(id string) (sizes.SizeSpec, bool) {
	if w, h, err := sizes.ParseCustomID(id); err == nil {
		spec, err := sizes.NewCustomSpec(w, h)
		return spec, err == nil
	}
	// malformed custom ids fall through; the catalog never holds the custom prefix
	return r.catalog.Lookup(id)
}

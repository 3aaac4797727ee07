package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/at-ishikawa/lexipack/internal/langtag"
)

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid pack catalog")

// Registry is an immutable, validated set of pack manifests. Accessors return
// copies.
type Registry struct {
	catalog Catalog
	byID    map[string]int
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		return langtag.Valid(fl.Field().String())
	})
	return validate
}

// NewRegistry validates catalog and indexes its packs. Pack ids must be
// unique and companion links must point to an existing pack that links back
// and has the source and target languages swapped.
func NewRegistry(catalog Catalog) (*Registry, error) {
	if err := newValidator().Struct(catalog); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	byID := make(map[string]int, len(catalog.Packs))
	for i, pack := range catalog.Packs {
		if _, ok := byID[pack.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate pack id %q", ErrInvalidCatalog, pack.ID)
		}
		byID[pack.ID] = i
	}

	for _, pack := range catalog.Packs {
		if !pack.HasCompanion() {
			continue
		}
		if pack.CompanionPackID == pack.ID {
			return nil, fmt.Errorf("%w: pack %q is its own companion", ErrInvalidCatalog, pack.ID)
		}
		i, ok := byID[pack.CompanionPackID]
		if !ok {
			return nil, fmt.Errorf("%w: pack %q has unknown companion %q", ErrInvalidCatalog, pack.ID, pack.CompanionPackID)
		}
		companion := catalog.Packs[i]
		if companion.CompanionPackID != pack.ID {
			return nil, fmt.Errorf("%w: companion %q of pack %q does not link back", ErrInvalidCatalog, companion.ID, pack.ID)
		}
		if companion.SourceLanguage != pack.TargetLanguage || companion.TargetLanguage != pack.SourceLanguage {
			return nil, fmt.Errorf("%w: companion %q of pack %q is not the reverse language pair", ErrInvalidCatalog, companion.ID, pack.ID)
		}
	}

	packs := make([]PackManifest, len(catalog.Packs))
	copy(packs, catalog.Packs)
	catalog.Packs = packs
	return &Registry{catalog: catalog, byID: byID}, nil
}

// Parse decodes a catalog JSON document. Relative dictionary URLs are
// resolved against base when base is not empty.
func Parse(data []byte, base string) (*Registry, error) {
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(catalog) > %w", err)
	}
	if base != "" {
		if err := resolveURLs(&catalog, base); err != nil {
			return nil, fmt.Errorf("resolveURLs > %w", err)
		}
	}
	return NewRegistry(catalog)
}

// LoadFile reads a catalog from a local file. Relative dictionary URLs are
// resolved against the directory of the file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs > %w", err)
	}
	return Parse(data, (&url.URL{Scheme: "file", Path: filepath.ToSlash(dir) + "/"}).String())
}

// Fetch downloads a catalog from catalogURL.
func Fetch(ctx context.Context, client *resty.Client, catalogURL string) (*Registry, error) {
	if client == nil {
		client = resty.New()
	}
	res, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(catalogURL)
	if err != nil {
		return nil, fmt.Errorf("client.Get(%s) > %w", catalogURL, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch catalog %s: unexpected status %d", catalogURL, res.StatusCode())
	}
	return Parse(res.Body(), catalogURL)
}

func resolveURLs(catalog *Catalog, base string) error {
	baseURL, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("url.Parse(%s) > %w", base, err)
	}
	for i := range catalog.Packs {
		asset := &catalog.Packs[i].Dictionary
		ref := asset.URL
		if ref == "" {
			ref = asset.Filename
		}
		if ref == "" {
			continue
		}
		refURL, err := url.Parse(ref)
		if err != nil {
			return fmt.Errorf("url.Parse(%s) > %w", ref, err)
		}
		asset.URL = baseURL.ResolveReference(refURL).String()
	}
	return nil
}

// Catalog returns a copy of the underlying catalog.
func (r *Registry) Catalog() Catalog {
	catalog := r.catalog
	catalog.Packs = r.List()
	return catalog
}

// List returns every pack in catalog order.
func (r *Registry) List() []PackManifest {
	packs := make([]PackManifest, len(r.catalog.Packs))
	copy(packs, r.catalog.Packs)
	return packs
}

func (r *Registry) Get(id string) (PackManifest, bool) {
	i, ok := r.byID[id]
	if !ok {
		return PackManifest{}, false
	}
	return r.catalog.Packs[i], true
}

// Companion returns the reverse-direction pack of id, if any.
func (r *Registry) Companion(id string) (PackManifest, bool) {
	pack, ok := r.Get(id)
	if !ok || !pack.HasCompanion() {
		return PackManifest{}, false
	}
	return r.Get(pack.CompanionPackID)
}

// ForLanguage returns the packs whose source language is language.
func (r *Registry) ForLanguage(language string) []PackManifest {
	var packs []PackManifest
	for _, pack := range r.catalog.Packs {
		if pack.SourceLanguage == language {
			packs = append(packs, pack)
		}
	}
	return packs
}

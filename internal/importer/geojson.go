package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/diana-archive/gazetteer/internal/errors"
)

// Layer is a GeoJSON file whose features all get the same place type.
type Layer struct {
	PlaceType string
	Path      string
}

// ParseLayer parses "type=path".
func ParseLayer(s string) (Layer, error) {
	placeType, path, ok := strings.Cut(s, "=")
	placeType, path = strings.TrimSpace(placeType), strings.TrimSpace(path)
	if !ok || placeType == "" || path == "" {
		return Layer{}, errors.Newf("invalid layer %q, expected type=path", s).
			Component("importer").
			Category(errors.CategoryValidation).
			Build()
	}
	return Layer{PlaceType: placeType, Path: path}, nil
}

// feature is a parsed GeoJSON feature ready to be written.
type feature struct {
	sourceRef string
	geometry  orb.Geometry
	names     []featureName
}

// featureName is a name text with the abbreviations of its languages.
type featureName struct {
	text          string
	folded        string
	abbreviations []string
}

// parseLayer reads and parses one layer file.
func parseLayer(fs afero.Fs, layer Layer, nameKeys map[string]string) ([]feature, error) {
	data, err := afero.ReadFile(fs, layer.Path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read layer: %w", err)).
			Component("importer").
			Category(errors.CategoryFileIO).
			Context("path", layer.Path).
			Build()
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to parse layer: %w", err)).
			Component("importer").
			Category(errors.CategoryFileParsing).
			Context("path", layer.Path).
			Build()
	}

	keys := make([]string, 0, len(nameKeys))
	for k := range nameKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	features := make([]feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			GetLogger().Warn("skipping feature without geometry")
			continue
		}
		ref, err := sourceRef(f)
		if err != nil {
			return nil, errors.New(err).
				Component("importer").
				Category(errors.CategoryImport).
				Context("path", layer.Path).
				Context("feature", i).
				Build()
		}
		features = append(features, feature{
			sourceRef: ref,
			geometry:  f.Geometry,
			names:     featureNames(f.Properties, keys, nameKeys),
		})
	}
	return features, nil
}

// sourceRef is the natural key of a feature: its id, its "@id" or "id"
// property, or a hash of the geometry for anonymous features.
func sourceRef(f *geojson.Feature) (string, error) {
	for _, v := range []any{f.ID, f.Properties["@id"], f.Properties["id"]} {
		if id := idString(v); id != "" {
			return "osm:" + id, nil
		}
	}

	data, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to hash geometry: %w", err)
	}
	sum := sha256.Sum256(data)
	return "geom:" + hex.EncodeToString(sum[:]), nil
}

// idString formats a JSON id. Numbers are decoded as float64 and must not
// come out in exponent form.
func idString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// normalizeName returns the NFC form of s with runs of white space collapsed.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// featureNames collects the names of a feature. Texts equal up to case
// folding become one name carrying every language they were given in.
func featureNames(props geojson.Properties, keys []string, nameKeys map[string]string) []featureName {
	var names []featureName
	folder := cases.Fold() // a Caser is stateful, one per call
	for _, key := range keys {
		text := normalizeName(props.MustString(key, ""))
		if text == "" {
			continue
		}
		folded := folder.String(text)
		abbr := nameKeys[key]

		idx := slices.IndexFunc(names, func(n featureName) bool { return n.folded == folded })
		if idx < 0 {
			names = append(names, featureName{text: text, folded: folded, abbreviations: []string{abbr}})
			continue
		}
		if !slices.Contains(names[idx].abbreviations, abbr) {
			names[idx].abbreviations = append(names[idx].abbreviations, abbr)
		}
	}
	return names
}

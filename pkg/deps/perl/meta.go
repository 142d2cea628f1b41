package perl

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/cpanmeta/pkg/deps"
	cerrors "github.com/matzehuels/cpanmeta/pkg/errors"
)

// requirement is one module/version pair in document order.
type requirement struct {
	name    string
	version string
}

// manifest is the format-independent view of a META document.
type manifest struct {
	name     string
	version  string
	requires []requirement
}

func (m manifest) source(origin string, kind FileKind) deps.Source {
	src := deps.Source{
		Name:         strings.TrimSpace(m.name),
		Version:      strings.TrimSpace(m.version),
		Path:         filepath.Dir(origin),
		Origin:       origin,
		Kind:         kind.String(),
		Dependencies: make([]deps.Dependency, 0, len(m.requires)),
	}
	for _, r := range m.requires {
		name := strings.TrimSpace(r.name)
		if name == "" {
			continue
		}
		src.Dependencies = append(src.Dependencies, deps.Dependency{
			Name:    name,
			Version: deps.NormalizeVersion(r.version),
			Path:    origin,
		})
	}
	return src
}

// ParseManifest reads and parses a META/MYMETA file, choosing the format by
// extension (.json, or .yml/.yaml).
//
// Only runtime requirements are read: prereqs.runtime.requires, or the flat
// top-level requires mapping of version 1 metadata when there is no prereqs
// section. Build, test and configure requirements are ignored.
func ParseManifest(path string) (deps.Source, error) {
	var parse func([]byte, string) (deps.Source, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parse = ParseMetaJSON
	case ".yml", ".yaml":
		parse = ParseMetaYAML
	default:
		return deps.Source{}, cerrors.WrapPath(cerrors.ErrCodeUnsupported, nil, path, "unknown manifest format")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return deps.Source{}, cerrors.WrapPath(cerrors.ErrCodeFileNotFound, err, path, "manifest not found")
	}
	if err != nil {
		return deps.Source{}, cerrors.WrapPath(cerrors.ErrCodeManifestParse, err, path, "read manifest")
	}
	return parse(data, path)
}

// ParseMetaJSON parses META.json content. origin is recorded on the result
// and on every dependency.
func ParseMetaJSON(data []byte, origin string) (deps.Source, error) {
	m, err := decodeJSONManifest(data)
	if err != nil {
		return deps.Source{}, cerrors.WrapPath(cerrors.ErrCodeManifestParse, err, origin, "invalid META JSON")
	}
	return m.source(origin, KindMetaJSON), nil
}

// ParseMetaYAML parses META.yml content. origin is recorded on the result
// and on every dependency.
func ParseMetaYAML(data []byte, origin string) (deps.Source, error) {
	m, err := decodeYAMLManifest(data)
	if err != nil {
		return deps.Source{}, cerrors.WrapPath(cerrors.ErrCodeManifestParse, err, origin, "invalid META YAML")
	}
	return m.source(origin, KindMetaYAML), nil
}

// =============================================================================
// JSON
// =============================================================================

type jsonPair struct {
	key   string
	value json.RawMessage
}

func decodeJSONManifest(data []byte) (manifest, error) {
	var m manifest
	if !json.Valid(data) {
		return m, errors.New("malformed JSON")
	}
	top, err := jsonObject(data)
	if err != nil {
		return m, err
	}
	if m.name, err = jsonScalar(jsonField(top, "name")); err != nil {
		return m, errors.New("name: " + err.Error())
	}
	if m.version, err = jsonScalar(jsonField(top, "version")); err != nil {
		return m, errors.New("version: " + err.Error())
	}

	section, ok := jsonLookup(top, "prereqs")
	if ok {
		section, err = jsonPath(section, "runtime", "requires")
	} else {
		section, _ = jsonLookup(top, "requires")
	}
	if err != nil {
		return m, err
	}
	m.requires, err = jsonRequirements(section)
	return m, err
}

// jsonObject decodes a JSON object into its members in document order.
func jsonObject(raw json.RawMessage) ([]jsonPair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}
	var pairs []jsonPair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		pairs = append(pairs, jsonPair{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// jsonField returns the value of the last member named key, or nil.
func jsonField(pairs []jsonPair, key string) json.RawMessage {
	v, _ := jsonLookup(pairs, key)
	return v
}

func jsonLookup(pairs []jsonPair, key string) (json.RawMessage, bool) {
	for i := len(pairs) - 1; i >= 0; i-- {
		if pairs[i].key == key {
			return pairs[i].value, true
		}
	}
	return nil, false
}

// jsonPath descends through nested objects. A missing or null member ends
// the walk with a nil value.
func jsonPath(raw json.RawMessage, keys ...string) (json.RawMessage, error) {
	for _, k := range keys {
		if jsonNull(raw) {
			return nil, nil
		}
		pairs, err := jsonObject(raw)
		if err != nil {
			return nil, errors.New(k + ": " + err.Error())
		}
		raw = jsonField(pairs, k)
	}
	return raw, nil
}

func jsonRequirements(raw json.RawMessage) ([]requirement, error) {
	if jsonNull(raw) {
		return nil, nil
	}
	pairs, err := jsonObject(raw)
	if err != nil {
		return nil, errors.New("requires: " + err.Error())
	}
	reqs := make([]requirement, 0, len(pairs))
	for _, p := range pairs {
		v, err := jsonScalar(p.value)
		if err != nil {
			return nil, errors.New("requires " + p.key + ": " + err.Error())
		}
		reqs = append(reqs, requirement{name: p.key, version: v})
	}
	return reqs, nil
}

// jsonScalar renders a string or number. Numbers keep their literal
// spelling so 1.10 stays "1.10".
func jsonScalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if jsonNull(raw) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", errors.New("expected a string or number")
	default:
		return string(raw), nil
	}
}

func jsonNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// =============================================================================
// YAML
// =============================================================================

type yamlPair struct {
	key   string
	value *yaml.Node
}

func decodeYAMLManifest(data []byte) (manifest, error) {
	var m manifest
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return m, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return m, errors.New("empty document")
	}
	top, err := yamlMapping(doc.Content[0])
	if err != nil {
		return m, err
	}
	if m.name, err = yamlScalar(yamlField(top, "name")); err != nil {
		return m, errors.New("name: " + err.Error())
	}
	if m.version, err = yamlScalar(yamlField(top, "version")); err != nil {
		return m, errors.New("version: " + err.Error())
	}

	var section *yaml.Node
	if prereqs, ok := yamlLookup(top, "prereqs"); ok {
		section, err = yamlPath(prereqs, "runtime", "requires")
		if err != nil {
			return m, err
		}
	} else {
		section = yamlField(top, "requires")
	}
	m.requires, err = yamlRequirements(section)
	return m, err
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func yamlNull(n *yaml.Node) bool {
	n = resolveAlias(n)
	return n == nil || n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

// yamlMapping returns the members of a mapping node in document order.
func yamlMapping(n *yaml.Node) ([]yamlPair, error) {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, errors.New("expected a mapping")
	}
	pairs := make([]yamlPair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, yamlPair{key: n.Content[i].Value, value: n.Content[i+1]})
	}
	return pairs, nil
}

func yamlField(pairs []yamlPair, key string) *yaml.Node {
	v, _ := yamlLookup(pairs, key)
	return v
}

func yamlLookup(pairs []yamlPair, key string) (*yaml.Node, bool) {
	for i := len(pairs) - 1; i >= 0; i-- {
		if pairs[i].key == key {
			return pairs[i].value, true
		}
	}
	return nil, false
}

func yamlPath(n *yaml.Node, keys ...string) (*yaml.Node, error) {
	for _, k := range keys {
		if yamlNull(n) {
			return nil, nil
		}
		pairs, err := yamlMapping(n)
		if err != nil {
			return nil, errors.New(k + ": " + err.Error())
		}
		n = yamlField(pairs, k)
	}
	return n, nil
}

func yamlRequirements(n *yaml.Node) ([]requirement, error) {
	if yamlNull(n) {
		return nil, nil
	}
	pairs, err := yamlMapping(n)
	if err != nil {
		return nil, errors.New("requires: " + err.Error())
	}
	reqs := make([]requirement, 0, len(pairs))
	for _, p := range pairs {
		v, err := yamlScalar(p.value)
		if err != nil {
			return nil, errors.New("requires " + p.key + ": " + err.Error())
		}
		reqs = append(reqs, requirement{name: p.key, version: v})
	}
	return reqs, nil
}

// yamlScalar returns the literal text of a scalar node.
func yamlScalar(n *yaml.Node) (string, error) {
	n = resolveAlias(n)
	if yamlNull(n) {
		return "", nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", errors.New("expected a scalar")
	}
	return n.Value, nil
}

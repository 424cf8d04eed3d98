package detector

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// manifestSections maps structured manifests to their runtime and development dependency sections
var manifestSections = map[string][2]string{
	"package.json":  {"dependencies", "devDependencies"},
	"composer.json": {"require", "require-dev"},
}

func isStructuredManifest(name string) bool {
	_, ok := manifestSections[path.Base(name)]
	return ok
}

// manifestDependencies parses a manifest and returns its runtime and development
// dependencies combined. Development entries win on duplicate keys.
func manifestDependencies(name, content string) (map[string]string, error) {
	sections, ok := manifestSections[path.Base(name)]
	if !ok {
		return nil, fmt.Errorf("%s is not a structured manifest", name)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	deps := map[string]string{}
	for _, section := range sections {
		raw, ok := doc[section]
		if !ok {
			continue
		}
		var entries map[string]string
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse %s %s: %w", name, section, err)
		}
		for k, v := range entries {
			deps[k] = v
		}
	}
	return deps, nil
}

// extractVersion looks up the first dependency key present in the manifest
// and strips leading range markers
func extractVersion(file RepositoryFile, keys []string) (string, error) {
	if len(keys) == 0 || !isStructuredManifest(file.Name) {
		return "", nil
	}

	deps, err := manifestDependencies(file.Name, file.Content)
	if err != nil {
		return "", err
	}

	for _, key := range keys {
		if v, ok := deps[key]; ok {
			return strings.TrimLeft(v, "^~"), nil
		}
	}
	return "", nil
}

package detector

import "strings"

// triggerMatches reports whether a file path or name satisfies a single trigger.
// Matching is case-sensitive.
func triggerMatches(trigger, filePath, name string) bool {
	if trigger == "" {
		return false
	}
	if strings.Contains(filePath, trigger) || name == trigger {
		return true
	}
	return strings.HasSuffix(trigger, "/") && strings.HasPrefix(filePath, trigger)
}

// Relevant reports whether the file is relevant to the pattern
func (p *DetectionPattern) Relevant(f RepositoryFile) bool {
	for _, t := range p.FileTriggers {
		if triggerMatches(t, f.Path, f.Name) {
			return true
		}
	}
	return false
}

// RelevantFiles returns the files relevant to the pattern, preserving input order.
// An empty result means the pattern does not apply to this repository.
func RelevantFiles(files []RepositoryFile, p *DetectionPattern) []RepositoryFile {
	var out []RepositoryFile
	for _, f := range files {
		if p.Relevant(f) {
			out = append(out, f)
		}
	}
	return out
}

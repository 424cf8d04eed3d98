package detector

// match evaluates a rule against its relevant files. Content patterns are tried
// in declaration order, each against every relevant file in input order; the
// first hit produces the only detection for the rule.
func (e *Engine) match(p *DetectionPattern, relevant []RepositoryFile) (RawDetection, bool) {
	if len(relevant) == 0 {
		return RawDetection{}, false
	}

	for _, re := range p.compiled {
		for _, f := range relevant {
			loc := re.FindStringIndex(f.Content)
			if loc == nil {
				continue
			}

			version, err := extractVersion(f, p.DependencyKeys)
			if err != nil {
				e.log.Debug().
					Err(err).
					Str("rule", p.Name).
					Str("file", f.Path).
					Msg("skipping version extraction")
				version = ""
			}

			d := NewDetectionBuilder(p).
				WithEvidence(f.Content[loc[0]:loc[1]], f).
				WithVersion(version).
				WithPaths(f.Path, relevant).
				Build()
			return d, true
		}
	}
	return RawDetection{}, false
}

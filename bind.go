package opcall

// boundArg pairs a parameter descriptor with the raw value supplied for it.
// present distinguishes an empty string from an absent parameter.
type boundArg struct {
	param   *paramDesc
	raw     string
	present bool
}

// bindIssue is one reason a candidate did not match the supplied maps.
type bindIssue struct {
	param     *paramDesc
	misplaced bool // declared header supplied in the non-header map
}

// bindOperation matches one candidate operation against the two parameter
// maps. Header parameters are looked up in headers and are always optional;
// all others are looked up in params and required unless declared optional.
// Entries in either map that no declared parameter claims are ignored.
//
// On a match it returns the ordered raw argument list; otherwise it returns
// every issue found, so the caller can tell a near-miss that only misplaced
// a header from one that lacked required parameters.
func bindOperation(op *operationDesc, params, headers map[string]string) ([]boundArg, []bindIssue) {
	args := make([]boundArg, 0, len(op.params))
	var issues []bindIssue

	for _, p := range op.params {
		if p.header {
			if raw, ok := headers[p.name]; ok {
				args = append(args, boundArg{param: p, raw: raw, present: true})
				continue
			}
			if _, ok := params[p.name]; ok {
				issues = append(issues, bindIssue{param: p, misplaced: true})
				continue
			}
			args = append(args, boundArg{param: p})
			continue
		}

		if raw, ok := params[p.name]; ok {
			args = append(args, boundArg{param: p, raw: raw, present: true})
			continue
		}
		if p.optional {
			args = append(args, boundArg{param: p})
			continue
		}
		issues = append(issues, bindIssue{param: p})
	}

	if len(issues) > 0 {
		return nil, issues
	}
	return args, nil
}

// selectOperation disambiguates among same-named candidates. Exactly one
// bindable candidate proceeds to conversion. Two or more is an ambiguity
// the caller cannot resolve; zero is not-found unless every candidate
// failed solely by receiving a declared header through the non-header map,
// which is a caller mistake rather than a missing operation.
func selectOperation(name string, candidates []*operationDesc, params, headers map[string]string) (*operationDesc, []boundArg, *Failure) {
	type match struct {
		op   *operationDesc
		args []boundArg
	}

	var (
		matches   []match
		misplaced *bindIssue
	)

	for _, op := range candidates {
		args, issues := bindOperation(op, params, headers)
		if issues == nil {
			matches = append(matches, match{op: op, args: args})
			continue
		}
		if misplaced == nil && allMisplaced(issues) {
			misplaced = &issues[0]
		}
	}

	switch len(matches) {
	case 1:
		return matches[0].op, matches[0].args, nil
	case 0:
		if misplaced != nil {
			return nil, nil, BadRequestf(
				"parameter %q of operation %q must be supplied as a header",
				misplaced.param.name, name,
			)
		}
		return nil, nil, NotFoundf("no operation %q matches the supplied parameters", name)
	default:
		return nil, nil, BadRequestf("unable to distinguish methods: %d operations named %q match the supplied parameters", len(matches), name)
	}
}

func allMisplaced(issues []bindIssue) bool {
	for _, is := range issues {
		if !is.misplaced {
			return false
		}
	}
	return true
}

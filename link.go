package shadertpl

import (
	"fmt"
	"strings"
)

// LinkProperties resolves every property reference against props.
//
// References are resolved by name over the whole list, so declaration order
// does not matter. Reference channels are normalized to upper case once the
// target is found. Unresolved targets, self references and duplicate names
// are reported as reference errors.
func LinkProperties(props []*Property) Diagnostics {
	var diags Diagnostics

	byName := make(map[string]*Property, len(props))
	names := make([]string, 0, len(props))
	for _, p := range props {
		if prev, dup := byName[p.Name]; dup {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Kind:     KindReference,
				Line:     p.Line,
				Message:  fmt.Sprintf("duplicate property '%s', first declared at line %d", p.Name, prev.Line),
			})
			continue
		}
		byName[p.Name] = p
		names = append(names, p.Name)
	}

	resolve := func(p *Property, target string) *Property {
		if target == p.Name {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Kind:     KindReference,
				Line:     p.Line,
				Message:  fmt.Sprintf("'%s' references itself", p.Name),
			})
			return nil
		}
		match := byName[target]
		if match == nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityError,
				Kind:     KindReference,
				Line:     p.Line,
				Message:  fmt.Sprintf("can't find referenced property: '%s' tried to reference '%s'%s", p.Name, target, didYouMean(target, names)),
			})
		}
		return match
	}

	for _, p := range props {
		for _, imp := range p.Implementations {
			switch imp := imp.(type) {
			case *ImpReference:
				if imp.Linked = resolve(p, imp.Reference); imp.Linked != nil && imp.Channels != "" {
					imp.Channels = strings.ToUpper(imp.Channels)
				}
			case *ImpTexture:
				if imp.UVSource != UVOtherProperty {
					continue
				}
				if imp.Linked = resolve(p, imp.UVReference); imp.Linked != nil && imp.UVChannels != "" {
					imp.UVChannels = strings.ToUpper(imp.UVChannels)
				}
			case *ImpConstant, *ImpMaterial, *ImpGeneric:
			}
		}
	}

	return diags
}

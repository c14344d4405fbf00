package shadertpl

import "strings"

// Metadata is what the metadata pass finds at the top of an expanded template.
type Metadata struct {
	// Valid is set when the #SG2 marker was found
	Valid bool

	ID       string
	Info     string
	Warning  string
	Type     string
	Keywords []string

	UIFeatures []UIFeature

	Properties []*Property
	Headers    map[int]Header
	// PropertiesLine is the index of the #PROPERTIES_NEW line in the expanded lines, -1 if none
	PropertiesLine int
}

// FeatureParser turns a #FEATURES block into UI feature descriptors.
type FeatureParser interface {
	// ParseFeatures parses the block opened at lines[start] and returns the index of its #END line
	ParseFeatures(lines []ParsedLine, start int) ([]UIFeature, int, error)
}

// ExtractMetadata runs the metadata pass over expanded lines.
//
// It reads the #KEY=value directives, hands the #FEATURES block to fp and parses
// and links the #PROPERTIES_NEW block. Scanning stops at the properties block or
// at the "Shader" line, whichever comes first; after a properties block the rest
// of the template is scanned for property usage markers to record in which
// passes each property appears.
func ExtractMetadata(lines []ParsedLine, fp FeatureParser) (*Metadata, Diagnostics) {
	var diags Diagnostics
	md := &Metadata{Headers: make(map[int]Header), PropertiesLine: -1}
	featuresFirst := false

scan:
	for i := 0; i < len(lines); i++ {
		pl := lines[i]
		line := pl.Line

		switch {
		case directiveIs(line, "#SG2"):
			md.Valid = true
		case strings.HasPrefix(line, "#INFO="):
			md.Info = metadataText(line, "#INFO=")
		case strings.HasPrefix(line, "#WARNING="):
			md.Warning = metadataText(line, "#WARNING=")
		case strings.HasPrefix(line, "#CONFIG="):
			md.Type = strings.ToLower(strings.TrimRight(line[len("#CONFIG="):], " \t\r"))
		case strings.HasPrefix(line, "#TEMPLATE_KEYWORDS="):
			md.Keywords = nil
			for _, kw := range strings.Split(strings.TrimRight(line[len("#TEMPLATE_KEYWORDS="):], " \t\r"), ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					md.Keywords = append(md.Keywords, kw)
				}
			}
		case strings.HasPrefix(line, "#ID="):
			md.ID = strings.TrimRight(line[len("#ID="):], " \t\r")

		case directiveIs(line, "#FEATURES"):
			featuresFirst = featuresFirst || !md.Valid
			if fp == nil {
				end := skipBlock(lines, i)
				if end == len(lines) {
					diags = append(diags, errorAt(KindStructural, pl, "missing #END for #FEATURES block"))
				}
				i = end
				continue
			}
			features, end, err := fp.ParseFeatures(lines, i)
			if err != nil {
				d := errorAt(KindSyntax, pl, "can't parse #FEATURES block: %v", err)
				d.Cause = err
				diags = append(diags, d)
				end = skipBlock(lines, i)
			}
			md.UIFeatures = features
			i = end

		case directiveIs(line, "#PROPERTIES_NEW"):
			md.PropertiesLine = i
			props, headers, next, d := ParsePropertiesBlock(lines, i)
			diags = append(diags, d...)
			diags = append(diags, LinkProperties(props)...)
			diags = append(diags, scanPropertyUsage(lines[next:], props)...)
			md.Properties, md.Headers = props, headers
			break scan

		case strings.HasPrefix(line, "Shader"):
			break scan
		}
	}

	switch {
	case !md.Valid:
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Kind: KindAdvisory, Message: "missing #SG2 marker, this doesn't look like a shader template"})
	case featuresFirst:
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Kind: KindAdvisory, Message: "the #SG2 marker should come before the #FEATURES block"})
	}
	if md.ID == "" {
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Kind: KindAdvisory, Message: "missing ID in template metadata"})
	}

	return md, diags
}

// metadataText reads an #INFO= or #WARNING= value, where a double space starts a new line
func metadataText(line, prefix string) string {
	return strings.ReplaceAll(strings.TrimRight(line[len(prefix):], " \t\r"), "  ", "\n")
}

// scanPropertyUsage records the passes each property is referenced in, regardless of conditions
func scanPropertyUsage(lines []ParsedLine, props []*Property) Diagnostics {
	var diags Diagnostics

	byName := make(map[string]*Property, len(props))
	names := make([]string, 0, len(props))
	for _, p := range props {
		if _, dup := byName[p.Name]; !dup {
			byName[p.Name] = p
			names = append(names, p.Name)
		}
	}

	pass := -1
	for _, pl := range lines {
		line := strings.TrimSpace(pl.Line)
		if isPassMarker(line) {
			pass++
			continue
		}
		eachPropertyMarker(line, func(name, tag string) {
			p := byName[name]
			if p == nil {
				diags = append(diags, errorAt(KindReference, pl, "no match for used property in code: '%s'%s", tag, didYouMean(name, names)))
				return
			}
			if pass >= 0 {
				p.addPass(pass)
			}
		})
	}
	return diags
}

var propertyMarkerPrefixes = []string{"VALUE:", "SAMPLE_VALUE_SHADER_PROPERTY:"}

// PropertyMarker is a property reference found in a line of code.
type PropertyMarker struct {
	Name string
	// Tag is the marker text between the brackets, eg "VALUE:Albedo(uv)"
	Tag string
	// Start and End are the byte offsets of the marker, brackets included
	Start, End int
}

// PropertyMarkers returns the [[VALUE:name]], [[VALUE:name(args)]] and
// [[SAMPLE_VALUE_SHADER_PROPERTY:name]] markers of line
func PropertyMarkers(line string) []PropertyMarker {
	var markers []PropertyMarker
	offset := 0
	for {
		start := strings.Index(line[offset:], "[[")
		if start < 0 {
			return markers
		}
		start += offset
		end := strings.Index(line[start+2:], "]]")
		if end < 0 {
			return markers
		}
		end += start + 4
		tag := line[start+2 : end-2]
		offset = end

		for _, prefix := range propertyMarkerPrefixes {
			if !strings.HasPrefix(tag, prefix) {
				continue
			}
			name := tag[len(prefix):]
			if open := strings.IndexByte(name, '('); open > 0 {
				name = name[:open]
			}
			markers = append(markers, PropertyMarker{Name: strings.TrimSpace(name), Tag: tag, Start: start, End: end})
			break
		}
	}
}

func eachPropertyMarker(line string, fn func(name, tag string)) {
	for _, m := range PropertyMarkers(line) {
		fn(m.Name, m.Tag)
	}
}

package shadertpl

// Document represents a parsed shader template, its metadata, the declared
// properties and the module-expanded line stream every compilation runs on.
//
// A Document is immutable once returned by the Parser: compilations only read
// from it, so the same Document can be compiled for any number of configs.
type Document struct {
	// Metadata about the source file
	Metadata MetaData

	// The lines as read from the source, with the #MODULES markup still present
	RawLines []string
	// The lines after module expansion, numbered with their original position
	Lines []ParsedLine

	// Valid is false when the #SG2 marker is missing
	Valid bool

	ID       string
	Info     string
	Warning  string
	Type     string
	Keywords []string

	UIFeatures []UIFeature

	Properties []*Property
	// Headers are keyed by the index of the property they precede
	Headers map[int]Header

	InjectionPoints []InjectionPoint

	byName map[string]*Property
}

type MetaData struct {
	// The source file path
	Source string
}

// ParsedLine is a line of template text with its 1-based line number in the
// original document, preserved through module expansion and filtering.
type ParsedLine struct {
	Line       string
	LineNumber int
}

func (pl ParsedLine) String() string {
	return pl.Line
}

// NumberLines pairs every line with its 1-based position
func NumberLines(lines []string) []ParsedLine {
	out := make([]ParsedLine, len(lines))
	for i, l := range lines {
		out[i] = ParsedLine{Line: l, LineNumber: i + 1}
	}
	return out
}

// Program is the sub-program a line belongs to inside a pass.
type Program int

const (
	ProgramUndefined Program = iota
	ProgramVertex
	ProgramFragment
	ProgramLighting
)

func (p Program) String() string {
	switch p {
	case ProgramVertex:
		return "vertex"
	case ProgramFragment:
		return "fragment"
	case ProgramLighting:
		return "lighting"
	default:
		return "undefined"
	}
}

// ParseProgram maps a program name to a Program, unknown names map to ProgramUndefined
func ParseProgram(s string) (Program, bool) {
	switch s {
	case "vertex":
		return ProgramVertex, true
	case "fragment":
		return ProgramFragment, true
	case "lighting":
		return ProgramLighting, true
	case "undefined", "":
		return ProgramUndefined, true
	default:
		return ProgramUndefined, false
	}
}

// InjectionPoint is a named [[INJECTION_POINT:name]] location, tagged with the program it is in.
type InjectionPoint struct {
	Name    string
	Program Program
	Line    int
}

type Header struct {
	Label   string
	Tooltip string
}

// UIFeature is a feature toggle declared in the #FEATURES block.
//
// Parsing and rendering live outside the engine, the engine only needs forced values applied.
type UIFeature interface {
	ForceValue(cfg *Config)
}

// Property returns the declared property with the given name, or nil
func (d *Document) Property(name string) *Property {
	if d.byName == nil {
		return nil
	}
	return d.byName[name]
}

// ApplyForcedValues lets every UI feature force its value into cfg
func (d *Document) ApplyForcedValues(cfg *Config) {
	for _, f := range d.UIFeatures {
		f.ForceValue(cfg)
	}
}

// ApplyKeywords replaces any TEMPLATE_ features in cfg by the keywords this template declares
func (d *Document) ApplyKeywords(cfg *Config) {
	cfg.ApplyTemplateKeywords(d.Keywords)
}

func (d *Document) index() {
	d.byName = make(map[string]*Property, len(d.Properties))
	for _, p := range d.Properties {
		d.byName[p.Name] = p
	}
}

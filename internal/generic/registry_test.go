package generic

import (
	"strings"
	"testing"

	"github.com/jwtly10/shadertpl"
	"github.com/stretchr/testify/require"
)

func property(t *testing.T, line string) *shadertpl.Property {
	t.Helper()
	p, err := shadertpl.ParseProperty(line)
	require.NoError(t, err)
	return p
}

func TestRegistry(t *testing.T) {
	albedo := property(t, "float4\tAlbedo\tfragment\timp(constant, value = 1)")
	tint := property(t, "color\tTint\tfragment\timp(constant, value = 1)")
	wind := property(t, "float\tWind\tvertex\timp(constant, value = 1)")

	r := NewRegistry()
	r.Begin()
	r.Enable(`#ENABLE_IMPL colorize types=color,float4`, 0, shadertpl.ProgramFragment)
	r.Enable(`#ENABLE_IMPL "wind sway" program=vertex`, 0, shadertpl.ProgramFragment)
	r.AddCompatible(0, shadertpl.ProgramFragment, albedo)
	r.AddCompatible(0, shadertpl.ProgramFragment, tint)
	r.AddCompatible(0, shadertpl.ProgramFragment, tint)
	r.AddCompatible(0, shadertpl.ProgramVertex, wind)
	r.Disable("#DISABLE_IMPL colorize", 0, shadertpl.ProgramFragment)
	r.AddCompatible(1, shadertpl.ProgramFragment, tint)
	r.Complete()

	require.NoError(t, r.Err())
	require.Equal(t, map[string][]*shadertpl.Property{
		"colorize":  {albedo, tint},
		"wind sway": {wind},
	}, r.Compatible(0))
	require.Nil(t, r.Compatible(1))
	require.Equal(t, []string{"colorize", "wind sway"}, r.Names())

	enabled := r.Enabled()
	require.Len(t, enabled, 1)
	require.Equal(t, Impl{Name: "wind sway", Program: shadertpl.ProgramVertex, Pass: 0}, enabled[0])

	r.DisableAll()
	require.Empty(t, r.Enabled())
}

func TestRegistry_BindsToCurrentProgram(t *testing.T) {
	wind := property(t, "float\tWind\tvertex\timp(constant, value = 1)")

	r := NewRegistry()
	r.Begin()
	r.Enable("#ENABLE_IMPL sway", 2, shadertpl.ProgramVertex)
	r.AddCompatible(2, shadertpl.ProgramFragment, wind)
	require.Nil(t, r.Compatible(2))

	r.AddCompatible(2, shadertpl.ProgramVertex, wind)
	require.Equal(t, []*shadertpl.Property{wind}, r.Compatible(2)["sway"])

	r.Begin()
	require.Nil(t, r.Compatible(2), "Begin starts a new run")
}

func TestRegistry_DirectiveErrors(t *testing.T) {
	tests := []struct {
		name      string
		directive string
		wantErr   string
	}{
		{name: "missing name", directive: "#ENABLE_IMPL", wantErr: "missing implementation name"},
		{name: "bad option", directive: "#ENABLE_IMPL x verbose", wantErr: "expected key=value"},
		{name: "unknown option", directive: "#ENABLE_IMPL x color=red", wantErr: "unknown option"},
		{name: "unknown program", directive: "#ENABLE_IMPL x program=geometry", wantErr: "unknown program"},
		{name: "unterminated quote", directive: `#ENABLE_IMPL "x`, wantErr: "parsing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Begin()
			r.Enable(tt.directive, 0, shadertpl.ProgramFragment)
			require.Empty(t, r.Enabled())
			require.Error(t, r.Err())
			require.True(t, strings.Contains(r.Err().Error(), tt.wantErr), r.Err().Error())
		})
	}
}

func TestRegistry_TrackUsage(t *testing.T) {
	doc, _, err := shadertpl.NewParser().Parse(strings.NewReader(strings.Join([]string{
		"#SG2",
		"#ID=generic",
		"#PROPERTIES_NEW",
		"color\tTint\tfragment\timp(constant, value = 1)",
		"float\tWind\tvertex\timp(constant, value = 1)",
		"#END",
		"#PASS",
		"#VERTEX",
		"#ENABLE_IMPL sway types=float",
		"v = [[VALUE:Wind]];",
		"#FRAGMENT",
		"c = [[VALUE:Tint]];",
	}, "\n")), shadertpl.MetaData{Source: "generic.sg2.txt"})
	require.NoError(t, err)

	r := NewRegistry()
	_, diags := shadertpl.TrackUsage(doc.Lines, doc, shadertpl.UsageOptions{Generic: r})
	require.Empty(t, diags)
	require.Equal(t, map[string][]*shadertpl.Property{"sway": {doc.Property("Wind")}}, r.Compatible(0))
}

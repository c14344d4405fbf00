package shadertpl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassIsSurfaceShader(t *testing.T) {
	lines := numbered(`#PASS
#VERTEX
float4 vert() {}
#PASS
CGPROGRAM
#pragma surface surf Standard
ENDCG`)

	tests := []struct {
		pass int
		want bool
	}{
		{pass: 0, want: false},
		{pass: 1, want: true},
		{pass: 2, want: false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, PassIsSurfaceShader(lines, tt.pass), "pass %d", tt.pass)
	}
}

func TestInputBlock(t *testing.T) {
	lines := numbered(`#PASS
#INPUT_VARIABLES
	float3 worldNormal;

#define SOMETHING
	float2 uv;
#END
#PASS
#INPUT_VARIABLES
float4 color;
#END`)

	tests := []struct {
		name string
		pass int
		want []string
	}{
		{name: "first pass", pass: 0, want: []string{"float3 worldNormal;", "float2 uv;"}},
		{name: "second pass", pass: 1, want: []string{"float4 color;"}},
		{name: "missing pass", pass: 2, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := InputBlock(lines, tt.pass)
			require.Empty(t, diags)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestInputBlock_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantVars []string
		wantMsg  string
	}{
		{
			name:     "unfiltered condition",
			src:      "#PASS\n#INPUT_VARIABLES\n///A\nfloat a;\n///\n#END",
			wantVars: []string{"float a;"},
			wantMsg:  "condition in #INPUT_VARIABLES, lines should be filtered first",
		},
		{
			name:     "missing end",
			src:      "#PASS\n#INPUT_VARIABLES\nfloat a;",
			wantVars: []string{"float a;"},
			wantMsg:  "missing #END for #INPUT_VARIABLES block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := InputBlock(numbered(tt.src), 0)
			require.Equal(t, tt.wantVars, got)
			require.NotEmpty(t, diags)
			require.Equal(t, KindStructural, diags[0].Kind)
			require.Equal(t, tt.wantMsg, diags[0].Message)
		})
	}
}

func TestVisibleProperties(t *testing.T) {
	doc := mustParse(t,
		"#SG2",
		"#ID=visible",
		"#PROPERTIES_NEW",
		"header\tMain",
		"float4\tAlbedo\tfragment\timp(constant, value = 1)",
		"///RIM",
		"header\tRim",
		"float\tRimPower\tfragment\timp(constant, value = 2)",
		"///",
		"header\tOther",
		"float\tLast\tfragment\timp(constant, value = 3)",
		"#END",
	)

	tests := []struct {
		name        string
		features    []string
		wantNames   []string
		wantHeaders map[int]Header
	}{
		{
			name:        "everything",
			features:    []string{"RIM"},
			wantNames:   []string{"Albedo", "RimPower", "Last"},
			wantHeaders: map[int]Header{0: {Label: "Main"}, 1: {Label: "Rim"}, 2: {Label: "Other"}},
		},
		{
			name:        "filtered block",
			wantNames:   []string{"Albedo", "Last"},
			wantHeaders: map[int]Header{0: {Label: "Main"}, 1: {Label: "Other"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, diags := NewLineFilter().Filter(FilterRequest{
				Lines:     doc.Lines,
				Features:  NewFeatureSet(tt.features...),
				Evaluator: featureEval,
			})
			require.Empty(t, diags)

			props, headers, diags := VisibleProperties(lines, doc)
			require.Empty(t, diags)
			require.Equal(t, tt.wantNames, propertyNames(props))
			require.Equal(t, tt.wantHeaders, headers)
		})
	}
}

func TestVisibleProperties_UnknownProperty(t *testing.T) {
	doc := albedoSmoothnessDoc(t)
	lines := numbered("#PROPERTIES_NEW\nfloat\tGhost\tfragment\timp(constant, value = 0)\n#END")

	props, _, diags := VisibleProperties(lines, doc)
	require.Empty(t, props)
	require.Len(t, diags, 1)
	require.Equal(t, "can't find property 'Ghost' in template", diags[0].Message)
}

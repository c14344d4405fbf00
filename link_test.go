package shadertpl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustProperties(t *testing.T, lines ...string) []*Property {
	t.Helper()
	var props []*Property
	for i, l := range lines {
		p, err := ParseProperty(l)
		require.NoError(t, err)
		p.Line = i + 1
		props = append(props, p)
	}
	return props
}

func TestLinkProperties_OrderIndependent(t *testing.T) {
	albedo := "float4\tAlbedo\tfragment\timp(constant, value = 1)"
	smoothness := "float\tSmoothness\tfragment\timp(shader_property_ref, reference = Albedo, channels = a)"

	tests := []struct {
		name  string
		lines []string
	}{
		{name: "target declared first", lines: []string{albedo, smoothness}},
		{name: "target declared last", lines: []string{smoothness, albedo}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := mustProperties(t, tt.lines...)
			require.Empty(t, LinkProperties(props))

			byName := map[string]*Property{}
			for _, p := range props {
				byName[p.Name] = p
			}

			ref := byName["Smoothness"].Implementations[0].(*ImpReference)
			require.Same(t, byName["Albedo"], ref.Linked)
			require.Equal(t, "A", ref.Channels)
			require.Equal(t, []*Property{byName["Albedo"]}, byName["Smoothness"].References())
		})
	}
}

func TestLinkProperties_TextureUVReference(t *testing.T) {
	props := mustProperties(t,
		"float4\tDetail\tfragment\timp(texture, variable = \"_Detail\", uv_source = other_property, uv_reference = DetailUV, uv_channels = xy)",
		"float2\tDetailUV\tfragment\timp(material_vector, variable = \"_DetailUV\")",
	)

	require.Empty(t, LinkProperties(props))

	tex := props[0].Implementations[0].(*ImpTexture)
	require.Same(t, props[1], tex.Linked)
	require.Equal(t, "XY", tex.UVChannels)
	require.Equal(t, []*Property{props[1]}, props[0].References())
}

func TestLinkProperties_TextureWithoutOtherPropertyIsNotLinked(t *testing.T) {
	props := mustProperties(t,
		"float4\tMain\tfragment\timp(texture, variable = \"_MainTex\", channels = rgb, uv_reference = Other)",
	)

	require.Empty(t, LinkProperties(props))
	tex := props[0].Implementations[0].(*ImpTexture)
	require.Nil(t, tex.Linked)
	require.Equal(t, "rgb", tex.Channels)
	require.Empty(t, props[0].References())
}

func TestLinkProperties_Errors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		wantMsg string
	}{
		{
			name: "unresolved reference with suggestion",
			lines: []string{
				"float4\tAlbedo\tfragment\timp(constant, value = 1)",
				"float\tSmoothness\tfragment\timp(shader_property_ref, reference = Albedoo)",
			},
			wantMsg: "'Smoothness' tried to reference 'Albedoo' (did you mean 'Albedo'?)",
		},
		{
			name: "unresolved uv reference",
			lines: []string{
				"float4\tDetail\tfragment\timp(texture, uv_source = other_property, uv_reference = Nowhere)",
			},
			wantMsg: "'Detail' tried to reference 'Nowhere'",
		},
		{
			name: "self reference",
			lines: []string{
				"float\tLoop\tfragment\timp(shader_property_ref, reference = Loop)",
			},
			wantMsg: "'Loop' references itself",
		},
		{
			name: "duplicate names",
			lines: []string{
				"float\tA\tfragment\timp(constant, value = 1)",
				"float\tA\tfragment\timp(constant, value = 2)",
			},
			wantMsg: "duplicate property 'A', first declared at line 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := LinkProperties(mustProperties(t, tt.lines...))
			require.Len(t, diags, 1)
			require.Equal(t, KindReference, diags[0].Kind)
			require.Equal(t, SeverityError, diags[0].Severity)
			require.Contains(t, diags[0].Message, tt.wantMsg)
			require.ErrorIs(t, diags.Err(), ErrReference)
		})
	}
}

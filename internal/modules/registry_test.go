package modules

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jwtly10/shadertpl"
	"github.com/stretchr/testify/require"
)

const furModule = `#FEATURES
sngl	lbl="Fur"	kw=FUR
#END

#VARIABLES
float _FurLength;
#END
`

func TestFSRegistry_Load(t *testing.T) {
	primary := fstest.MapFS{
		"Module_Fur.txt": {Data: []byte(furModule)},
	}
	fallback := fstest.MapFS{
		"Rim.txt":        {Data: []byte("#VARIABLES\nfloat _RimMin;\n#END\n")},
		"Module_Fur.txt": {Data: []byte("#VARIABLES\nshadowed\n#END\n")},
	}

	reg := NewFSRegistry(primary, fallback)

	tests := []struct {
		name      string
		module    string
		variables []string
	}{
		{name: "prefixed file", module: "Fur", variables: []string{"float _FurLength;"}},
		{name: "bare file in second dir", module: "Rim", variables: []string{"float _RimMin;"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := reg.Load(tt.module)
			require.NoError(t, err)
			require.Equal(t, tt.module, m.Name)
			require.Equal(t, tt.variables, m.Variables)
		})
	}
}

func TestFSRegistry_CachesModules(t *testing.T) {
	dir := fstest.MapFS{"Module_Fur.txt": {Data: []byte(furModule)}}
	reg := NewFSRegistry(dir)

	first, err := reg.Load("Fur")
	require.NoError(t, err)

	delete(dir, "Module_Fur.txt")
	second, err := reg.Load("Fur")
	require.NoError(t, err)
	require.Same(t, first, second)

	reg.Reset()
	_, err = reg.Load("Fur")
	require.ErrorIs(t, err, shadertpl.ErrModuleNotFound)
}

func TestFSRegistry_NotFoundSuggestsName(t *testing.T) {
	reg := NewFSRegistry(fstest.MapFS{
		"Module_Outline.txt": {Data: []byte("#VARIABLES\n#END\n")},
	})

	_, err := reg.Load("Outlin")
	require.Error(t, err)
	require.True(t, errors.Is(err, shadertpl.ErrModuleNotFound))
	require.Contains(t, err.Error(), "did you mean 'Outline'")
	require.Equal(t, []string{"Outline"}, reg.Available())
}

func TestFSRegistry_InvalidModule(t *testing.T) {
	reg := NewFSRegistry(fstest.MapFS{
		"Module_Broken.txt": {Data: []byte("#VARIABLES\nfloat x;\n")},
	})

	_, err := reg.Load("Broken")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing #END")
}

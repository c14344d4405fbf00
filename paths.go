package shadertpl

import (
	"path/filepath"
	"strings"
)

// TemplateExt is the extension of shader template files
const TemplateExt = ".sg2.txt"

// ShaderExt is the extension of generated shaders
const ShaderExt = ".shader"

// IsTemplatePath reports whether path names a shader template
func IsTemplatePath(path string) bool {
	return strings.HasSuffix(path, TemplateExt)
}

// ResolveOutputPath determines where the shader generated from templatePath is written.
// Without an output directory it goes next to the template.
func ResolveOutputPath(templatePath, outputDir string) string {
	base := filepath.Base(templatePath)
	if strings.HasSuffix(base, TemplateExt) {
		base = strings.TrimSuffix(base, TemplateExt)
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	dir := filepath.Dir(templatePath)
	if outputDir != "" {
		dir = outputDir
	}
	return filepath.Join(dir, base+ShaderExt)
}

func MustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}

package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapExtToFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{NormalizeExt(".MD"), TEXT},
		{NormalizeExt("txt"), TEXT},
		{NormalizeExt(".Pdf"), PDF},
		{NormalizeExt(".jpeg"), IMAGE},
		{NormalizeExt(".docx"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, MapExtToFormat(tt.ext))
		})
	}
}

func TestAllowedExtensionsHaveFormat(t *testing.T) {
	for ext := range AllowedExtensions {
		assert.NotEmpty(t, MapExtToFormat(ext), ext)
	}
}

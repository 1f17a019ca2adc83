package contenttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "javascript", path: "dist/app.abc123.js", want: "application/javascript"},
		{name: "css", path: "dist/styles.css", want: "text/css"},
		{name: "html", path: "index.html", want: "text/html"},
		{name: "source map", path: "app.js.map", want: "application/json"},
		{name: "uppercase extension", path: "LOGO.PNG", want: "image/png"},
		{name: "unknown extension", path: "artifact.bin", want: DefaultType},
		{name: "no extension", path: "LICENSE", want: DefaultType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForPath(tt.path))
		})
	}
}

func TestDetect(t *testing.T) {
	t.Run("extension table wins over sniffing", func(t *testing.T) {
		got := Detect("bundle.js", []byte("console.log('hi')"))
		assert.Equal(t, "application/javascript", got)
	})

	t.Run("sniffs unknown extensions", func(t *testing.T) {
		pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
		got := Detect("thumbnail.asset", pngHeader)
		assert.Equal(t, "image/png", got)
	})

	t.Run("empty body falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultType, Detect("artifact.bin", nil))
	})

	t.Run("charset parameter stripped", func(t *testing.T) {
		got := Detect("notes.unknownext", []byte("plain text content here"))
		assert.Equal(t, "text/plain", got)
	})
}

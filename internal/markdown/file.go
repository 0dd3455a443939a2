package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourorg/confluencectl/internal/textenc"
)

const filePermissions = 0o644

// OutputPath returns <dir>/<stem>.csf for a note path.
func OutputPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ".csf"
}

// ConvertFile converts the note at input and writes storage format to
// output, or to OutputPath(input) when output is empty. It returns the
// converted document and the path written.
func (c *Converter) ConvertFile(ctx context.Context, input, output string) (Document, string, error) {
	if output == "" {
		output = OutputPath(input)
	}
	source, _, err := textenc.ReadFile(input)
	if err != nil {
		return Document{}, "", fmt.Errorf("read %s: %w", input, err)
	}
	doc, err := c.Convert(ctx, []byte(source))
	if err != nil {
		return Document{}, "", err
	}
	if err := os.WriteFile(output, []byte(doc.Storage), filePermissions); err != nil { //nolint:gosec // storage files are not secret
		return Document{}, "", fmt.Errorf("write %s: %w", output, err)
	}
	return doc, output, nil
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourorg/confluencectl/internal/textenc"
)

const (
	filePermissions = 0o644
	dirPermissions  = 0o755
)

// EmbedReport summarizes ConvertEmbedsFile.
type EmbedReport struct {
	Input       string
	Output      string
	Embeds      []string
	ImageMacros int
}

// ConvertEmbedsFile applies ConvertObsidianEmbeds to input and writes the
// result to output, creating parent directories. An empty output rewrites
// input in place.
func ConvertEmbedsFile(input, output string) (EmbedReport, error) {
	if output == "" {
		output = input
	}
	content, _, err := textenc.ReadFile(input)
	if err != nil {
		return EmbedReport{}, fmt.Errorf("read %s: %w", input, err)
	}

	converted := ConvertObsidianEmbeds(content)
	if err := os.MkdirAll(filepath.Dir(output), dirPermissions); err != nil {
		return EmbedReport{}, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(output, []byte(converted), filePermissions); err != nil { //nolint:gosec // storage files are not secret
		return EmbedReport{}, fmt.Errorf("write %s: %w", output, err)
	}

	return EmbedReport{
		Input:       input,
		Output:      output,
		Embeds:      FindObsidianEmbeds(content),
		ImageMacros: CountImageMacros(converted),
	}, nil
}

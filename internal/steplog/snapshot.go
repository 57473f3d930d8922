package steplog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// WriteSettings stores the effective scenario settings and light profile
// next to the recorded data so a dataset documents how it was produced.
func (l *Logger) WriteSettings(settings, lights any) error {
	for name, v := range map[string]any{
		"sim_settings.yaml":   settings,
		"light_settings.yaml": lights,
	} {
		if v == nil {
			continue
		}
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(l.dir, name), data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// WriteIntrinsics stores a camera matrix as whitespace separated rows in
// intrinsics.txt.
func (l *Logger) WriteIntrinsics(k mat.Matrix) error {
	r, c := k.Dims()
	var b strings.Builder
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.18e", k.At(i, j))
		}
		b.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(l.dir, "intrinsics.txt"), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing intrinsics: %w", err)
	}
	return nil
}

package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig(t *testing.T) {
	// /tmp/
	//   project/ (glance.yaml)
	//     subdir/
	//       nested/
	//   toml/ (glance.toml)
	//   empty/

	baseDir := t.TempDir()
	projectDir := filepath.Join(baseDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	tomlDir := filepath.Join(baseDir, "toml")
	emptyDir := filepath.Join(baseDir, "empty")

	for _, dir := range []string{nestedDir, tomlDir, emptyDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(projectDir, "glance.yaml"), []byte("cache_dir: x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tomlDir, "glance.toml"), []byte("cache_dir = 'x'\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// A directory with a config name is not a config file.
	if err := os.Mkdir(filepath.Join(emptyDir, "glance.yaml"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		startPath string
		want      string
		wantErr   bool
	}{
		{
			name:      "Start at Project",
			startPath: projectDir,
			want:      filepath.Join(projectDir, "glance.yaml"),
		},
		{
			name:      "Start Nested Deeply",
			startPath: nestedDir,
			want:      filepath.Join(projectDir, "glance.yaml"),
		},
		{
			name:      "TOML",
			startPath: tomlDir,
			want:      filepath.Join(tomlDir, "glance.toml"),
		},
		{
			name:      "Directory Named Like Config",
			startPath: emptyDir,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindConfig(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("FindConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != "" && filepath.Clean(got) != filepath.Clean(tt.want) {
				t.Errorf("FindConfig() = %v, want %v", got, tt.want)
			}
		})
	}
}

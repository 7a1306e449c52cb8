package transcript

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func TestSanitizeModelName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "slashes and colons", input: "model/name:v1", want: "model_name_v1"},
		{name: "all invalid characters", input: `a<b>c:d"e/f\g|h?i*j`, want: "a_b_c_d_e_f_g_h_i_j"},
		{name: "surrounding whitespace", input: "  llama3.2:1b  ", want: "llama3.2_1b"},
		{name: "trailing dots", input: "model..", want: "model"},
		{name: "clean name untouched", input: "granite3.1-moe_1b", want: "granite3.1-moe_1b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeModelName(tt.input))
		})
	}
}

func TestDefaultName(t *testing.T) {
	got := DefaultName("llama3.2:1b", "mistral/7b", testTime)
	assert.Equal(t, "crosschat_llama3.2_1b__mistral_7b_20250314_150926.txt", got)
}

func TestUniquify(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/logs", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/out.txt", []byte("existing"), 0o644))

	auto := "crosschat_a__b_20250314_150926.txt"

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty path gets auto name", path: "", want: auto},
		{name: "existing directory", path: "/logs", want: "/logs/" + auto},
		{name: "trailing separator treated as directory", path: "/nonexistent/", want: "/nonexistent/" + auto},
		{name: "existing file gets timestamp before extension", path: "/out.txt", want: "/out_20250314_150926.txt"},
		{name: "fresh filename still stamped", path: "/fresh.log", want: "/fresh_20250314_150926.log"},
		{name: "no extension defaults to txt", path: "/out", want: "/out_20250314_150926.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Uniquify(fs, tt.path, "a", "b", testTime)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniquifyNeverReturnsExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "out.txt", nil, 0o644))

	got := Uniquify(fs, "out.txt", "a", "b", testTime)
	assert.NotEqual(t, "out.txt", got)
	assert.Equal(t, "out_20250314_150926.txt", got)
}

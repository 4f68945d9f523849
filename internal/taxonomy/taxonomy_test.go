package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tax, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"Java", "AI", "DevOps", "Other"}, tax.Names())
	assert.Equal(t, []string{"Docker", "Kubernetes", "Other"}, tax.Subcategories("DevOps"))
	assert.Nil(t, tax.Subcategories("Java"))
	assert.True(t, tax.ValidSubcategory("DevOps", "Docker"))
	assert.False(t, tax.ValidSubcategory("Java", "Docker"))
	assert.False(t, tax.ValidSubcategory("DevOps", ""))
	assert.False(t, tax.HasCategory("Cobol"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "valid",
			doc:  "categories:\n  - name: A\n    subcategories: [x, y]\n  - name: B\n",
		},
		{
			name:    "empty",
			doc:     "categories: []\n",
			wantErr: "no categories",
		},
		{
			name:    "duplicate category",
			doc:     "categories:\n  - name: A\n  - name: A\n",
			wantErr: "duplicate category",
		},
		{
			name:    "duplicate subcategory",
			doc:     "categories:\n  - name: A\n    subcategories: [x, x]\n",
			wantErr: "duplicate subcategory",
		},
		{
			name:    "path separator",
			doc:     "categories:\n  - name: a/b\n",
			wantErr: "single path segment",
		},
		{
			name:    "blank name",
			doc:     "categories:\n  - name: \" \"\n",
			wantErr: "empty name",
		},
		{
			name:    "not yaml",
			doc:     "categories: [",
			wantErr: "parse taxonomy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, err := Parse([]byte(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"A", "B"}, tax.Names())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: Go\n"), 0o644))

	tax, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, tax.Names())

	tax, err = Load("")
	require.NoError(t, err)
	assert.Len(t, tax.Names(), 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

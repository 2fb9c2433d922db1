package resort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ContainsKnownResorts(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 25, reg.Len())

	z, ok := reg.Lookup("Zermatt")
	require.True(t, ok)
	assert.Equal(t, 46.0207, z.Lat)
	assert.Equal(t, 7.7491, z.Lon)
	assert.NotEmpty(t, z.Image)

	_, ok = reg.Lookup("Atlantis")
	assert.False(t, ok)
}

func TestLookup_NormalizesIdentifier(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, id := range []string{"StAnton", "St Anton", "st-anton", " ST. ANTON "} {
		r, ok := reg.Lookup(id)
		require.True(t, ok, id)
		assert.Equal(t, "StAnton", r.ID)
	}

	r, ok := reg.Lookup("Val d'Isere")
	require.True(t, ok)
	assert.Equal(t, "ValdIsere", r.ID)
}

func TestAll_PreservesOrderAndCopies(t *testing.T) {
	reg, err := New([]Resort{
		{ID: "B", Lat: 1, Lon: 1},
		{ID: "A", Lat: 2, Lon: 2},
	})
	require.NoError(t, err)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].ID)
	assert.Equal(t, "A", all[1].ID)

	all[0].ID = "mutated"
	again := reg.All()
	assert.Equal(t, "B", again[0].ID)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		resorts []Resort
		errMsg  string
	}{
		{"empty", nil, "empty"},
		{"blank id", []Resort{{ID: " - "}}, "empty id"},
		{"bad latitude", []Resort{{ID: "X", Lat: 91}}, "out of range"},
		{"duplicate", []Resort{{ID: "StAnton"}, {ID: "St Anton"}}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.resorts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resorts.yaml")
	doc := []byte("resorts:\n  - id: Niseko\n    lat: 42.86\n    lon: 140.69\n")
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	r, ok := reg.Lookup("niseko")
	require.True(t, ok)
	assert.Equal(t, 140.69, r.Lon)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read resorts file")
}

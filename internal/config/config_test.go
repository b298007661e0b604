package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltin1830(t *testing.T) {
	v, err := Load("1830")
	require.NoError(t, err)

	assert.Equal(t, "1830", v.Name)
	assert.Equal(t, 2400, v.StartingCapital)
	assert.Equal(t, "ISR 1", v.InitialRound)
	assert.Equal(t, DefaultDepot, v.Depot)
	assert.Len(t, v.Companies, 8)
	assert.True(t, v.IsCompany("B&O"))
	assert.False(t, v.IsCompany("Baltimore & Ohio"))
	assert.Equal(t, 160, v.PrivateValues()["Camden & Amboy"])
	assert.Equal(t, 10, v.SharePercent())
	assert.Contains(t, Builtins(), "1830")
}

func TestLoadFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mini.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
name: mini
starting_capital: 1000
companies: [AAA, BBB]
trains: ["2", "3"]
`), 0644))

	v, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 10, v.TotalShares, "total shares should default to 10")
	assert.Equal(t, DefaultDepot, v.Depot)
	assert.Empty(t, v.PrivateValues())
}

func TestValidateRejectsBrokenVariants(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no companies", "name: x\nstarting_capital: 10\ntrains: ['2']\n"},
		{"no capital", "name: x\ncompanies: [A]\ntrains: ['2']\n"},
		{"duplicate company", "name: x\nstarting_capital: 10\ncompanies: [A, A]\ntrains: ['2']\n"},
		{"company named like private", "name: x\nstarting_capital: 10\ncompanies: [A]\nprivates: [{name: A, value: 5}]\ntrains: ['2']\n"},
		{"odd share count", "name: x\nstarting_capital: 10\ntotal_shares: 3\ncompanies: [A]\ntrains: ['2']\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadUnknownVariant(t *testing.T) {
	_, err := Load("no-such-variant")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1830")
}

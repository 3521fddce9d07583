package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpellCardinal(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "cero"},
		{1, "uno"},
		{15, "quince"},
		{16, "dieciséis"},
		{21, "veintiuno"},
		{22, "veintidós"},
		{30, "treinta"},
		{31, "treinta y uno"},
		{99, "noventa y nueve"},
		{100, "cien"},
		{101, "ciento uno"},
		{115, "ciento quince"},
		{500, "quinientos"},
		{999, "novecientos noventa y nueve"},
		{1000, "mil"},
		{1001, "mil uno"},
		{2023, "dos mil veintitrés"},
		{21000, "veintiún mil"},
		{31000, "treinta y un mil"},
		{100000, "cien mil"},
		{101000, "ciento un mil"},
		{1_000_000, "un millón"},
		{2_000_000, "dos millones"},
		{21_000_000, "veintiún millones"},
		{1_001_000, "un millón mil"},
		{1_000_000_000, "mil millones"},
		{1_000_000_000_000, "un billón"},
		{3_500_000_000_000, "tres billones quinientos mil millones"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SpellCardinal(tt.n), "n=%d", tt.n)
	}
}

func TestExpandNumbers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"standalone", "hay 3 autos", "hay tres autos"},
		{"repeated literal", "3 y 3", "tres y tres"},
		{"no double substitution", "1 10 100", "uno diez cien"},
		{"attached to word", "covid19 3er", "covid19 3er"},
		{"punctuation boundary", "1.500 soles", "uno.quinientos soles"},
		{"percent", "sube 5%", "sube cinco%"},
		{"leading zeros", "007", "siete"},
		{"accented neighbour", "año2023", "año2023"},
		{"very long", "1234567890123456789012", "uno dos tres cuatro cinco seis siete ocho nueve cero uno dos tres cuatro cinco seis siete ocho nueve cero uno dos"},
		{"no digits", "sin números", "sin números"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandNumbers(tt.in))
		})
	}
}

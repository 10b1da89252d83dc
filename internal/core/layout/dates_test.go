package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateParser_Locales(t *testing.T) {
	p := NewDateParser(nil)
	cases := []struct{ value, pattern, want string }{
		{"15/01/2024", "dd/MM/yyyy", "2024-01-15"},
		{"2024-01-15", "yyyy-MM-dd", "2024-01-15"},
		{"15 Jan 2024", "dd MMM yyyy", "2024-01-15"},
		{"15 ene 2024", "dd MMM yyyy", "2024-01-15"},
		{"15 fev. 2024", "dd MMM yyyy", "2024-02-15"},
		{"3 dicembre 2023", "d MMMM yyyy", "2023-12-03"},
		{"20240115", "yyyyMMdd", "2024-01-15"},
		{"15-Feb-2024", "dd-MMM-yyyy", "2024-02-15"},
		{"15-fev-2024", "dd-MMM-yyyy", "2024-02-15"},
		{"15-ene-2024", "dd-MMM-yyyy", "2024-01-15"},
		{"15-gen-2024", "dd-MMM-yyyy", "2024-01-15"},
		{"15-Dez.-2024", "dd-MMM-yyyy", "2024-12-15"},
	}
	for _, tc := range cases {
		d, err := p.Parse(tc.value, tc.pattern)
		require.NoError(t, err, tc.value)
		assert.Equal(t, tc.want, d.String(), tc.value)
		assert.NotEmpty(t, d.Canonical())
	}
}

func TestDateParser_InjectedLocalesOnly(t *testing.T) {
	p := NewDateParser([]Locale{English})
	_, err := p.Parse("15 janeiro 2024", "dd MMMM yyyy")
	assert.Error(t, err)

	p = NewDateParser(LocalesFor([]string{"pt-PT"}))
	d, err := p.Parse("15 janeiro 2024", "dd MMMM yyyy")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", d.String())
}

func TestGoLayout(t *testing.T) {
	l, err := GoLayout("dd/MM/yyyy")
	require.NoError(t, err)
	assert.Equal(t, "02/01/2006", l)

	l, err = GoLayout("d 'de' MMMM 'de' yyyy")
	require.NoError(t, err)
	assert.Equal(t, "2 de January de 2006", l)

	_, err = GoLayout("dd/MM/yyyy G")
	assert.Error(t, err)
	_, err = GoLayout("")
	assert.Error(t, err)
}

func TestLocale_ToEnglishKeepsHyphenatedDayNames(t *testing.T) {
	assert.Equal(t, "Monday, 15-Jan-2024", Portuguese.toEnglish("segunda-feira, 15-jan-2024"))
	assert.Equal(t, "15-Feb-2024", Spanish.toEnglish("15-feb-2024"))
	assert.Equal(t, "Jan-Feb", Portuguese.toEnglish("jan-fev"))
}

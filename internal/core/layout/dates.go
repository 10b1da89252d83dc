package layout

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// Locale carries the month and weekday names of one calendar locale.
// Names are matched case-insensitively and translated to English before parsing.
type Locale struct {
	Tag         string
	Months      [12]string
	ShortMonths [12]string
	Days        [7]string // Sunday first
	ShortDays   [7]string
}

var (
	English = Locale{
		Tag:         "en-GB",
		Months:      [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		ShortMonths: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		Days:        [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		ShortDays:   [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	}
	Spanish = Locale{
		Tag:         "es-ES",
		Months:      [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		ShortMonths: [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
		Days:        [7]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
		ShortDays:   [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"},
	}
	Portuguese = Locale{
		Tag:         "pt-PT",
		Months:      [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
		ShortMonths: [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
		Days:        [7]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"},
		ShortDays:   [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"},
	}
	Italian = Locale{
		Tag:         "it",
		Months:      [12]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno", "luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
		ShortMonths: [12]string{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"},
		Days:        [7]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"},
		ShortDays:   [7]string{"dom", "lun", "mar", "mer", "gio", "ven", "sab"},
	}
)

var knownLocales = map[string]Locale{
	"en": English, "en-gb": English, "en-uk": English,
	"es": Spanish, "es-es": Spanish,
	"pt": Portuguese, "pt-pt": Portuguese,
	"it": Italian, "it-it": Italian,
}

// DefaultLocales is the preference order used when none is configured.
func DefaultLocales() []Locale {
	return []Locale{English, Spanish, Portuguese, Italian}
}

// LocalesFor maps tags such as "pt-PT" to locales, skipping unknown tags.
// An empty result falls back to DefaultLocales.
func LocalesFor(tags []string) []Locale {
	var out []Locale
	for _, t := range tags {
		if l, ok := knownLocales[strings.ToLower(strings.TrimSpace(t))]; ok {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return DefaultLocales()
	}
	return out
}

// DateParser parses dates written with a Java-style pattern ("dd/MM/yyyy",
// "d 'de' MMMM 'de' yyyy"), trying each locale in order.
type DateParser struct {
	locales []Locale
}

func NewDateParser(locales []Locale) *DateParser {
	if len(locales) == 0 {
		locales = DefaultLocales()
	}
	return &DateParser{locales: locales}
}

// Parse returns the calendar date in value. The error names every locale tried.
func (p *DateParser) Parse(value, pattern string) (entity.Date, error) {
	layout, err := GoLayout(pattern)
	if err != nil {
		return entity.Date{}, err
	}
	value = strings.TrimSpace(value)
	var tried []string
	for _, loc := range p.locales {
		t, err := time.Parse(layout, loc.toEnglish(value))
		if err == nil {
			return entity.DateOf(t), nil
		}
		tried = append(tried, loc.Tag)
	}
	return entity.Date{}, fmt.Errorf("cannot parse date %q with format %q (locales %s)", value, pattern, strings.Join(tried, ", "))
}

// reWord matches letter runs. Hyphenated runs such as "segunda-feira" are
// kept together; digits and punctuation end a run.
var reWord = regexp.MustCompile(`\p{L}+(?:-\p{L}+)*\.?`)

// toEnglish replaces localized month and weekday names with their English forms.
func (l Locale) toEnglish(s string) string {
	if l.Tag == English.Tag {
		return s
	}
	return reWord.ReplaceAllStringFunc(s, func(w string) string {
		if en, ok := l.translate(w); ok {
			return en
		}
		if !strings.Contains(w, "-") {
			return w
		}
		parts := strings.Split(w, "-")
		for i, p := range parts {
			if en, ok := l.translate(p); ok {
				parts[i] = en
			}
		}
		return strings.Join(parts, "-")
	})
}

func (l Locale) translate(w string) (string, bool) {
	bare := strings.ToLower(strings.TrimSuffix(w, "."))
	for i := range l.Months {
		if bare == strings.ToLower(l.Months[i]) {
			return English.Months[i], true
		}
		if bare == strings.ToLower(l.ShortMonths[i]) {
			return English.ShortMonths[i], true
		}
	}
	for i := range l.Days {
		if bare == strings.ToLower(l.Days[i]) {
			return English.Days[i], true
		}
		if bare == strings.ToLower(l.ShortDays[i]) {
			return English.ShortDays[i], true
		}
	}
	return "", false
}

var patternTokens = []struct {
	java, goLayout string
}{
	{"yyyy", "2006"}, {"uuuu", "2006"}, {"yy", "06"}, {"uu", "06"},
	{"MMMM", "January"}, {"MMM", "Jan"}, {"MM", "01"}, {"M", "1"},
	{"LLLL", "January"}, {"LLL", "Jan"}, {"LL", "01"}, {"L", "1"},
	{"dd", "02"}, {"d", "2"},
	{"EEEE", "Monday"}, {"EEE", "Mon"}, {"E", "Mon"},
	{"HH", "15"}, {"mm", "04"}, {"ss", "05"},
}

// GoLayout converts a Java-style date pattern into a Go time layout.
// Text inside single quotes is literal; '' is a single quote.
func GoLayout(pattern string) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("empty date format")
	}
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated quote in date format %q", pattern)
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, tok := range patternTokens {
			if strings.HasPrefix(pattern[i:], tok.java) {
				b.WriteString(tok.goLayout)
				i += len(tok.java)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		c := pattern[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return "", fmt.Errorf("unsupported letter %q in date format %q", c, pattern)
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), nil
}

package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter, bibliographic where mkvmerge prefers it)
	alt3    string   // ISO 639-2 alternate (e.g. "ron" vs "rum")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"ro", "rum", "ron", "Romanian", []string{"romanian", "romana", "română"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "espanol", "español"}},
	{"fr", "fre", "fra", "French", []string{"french", "francais", "français"}},
	{"de", "ger", "deu", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "Italian", []string{"italian", "italiano"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "chi", "zho", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"uk", "ukr", "", "Ukrainian", []string{"ukrainian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "dut", "nld", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"cs", "cze", "ces", "Czech", []string{"czech"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian"}},
	{"el", "gre", "ell", "Greek", []string{"greek"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
	{"bg", "bul", "", "Bulgarian", []string{"bulgarian"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// parseTag accepts BCP 47 tags and ISO codes the table does not carry.
func parseTag(code string) (xlanguage.Tag, bool) {
	code = strings.TrimSpace(code)
	if code == "" || strings.ContainsAny(code, " \t") {
		return xlanguage.Und, false
	}
	tag, err := xlanguage.Parse(code)
	if err != nil || tag == xlanguage.Und {
		return xlanguage.Und, false
	}
	return tag, true
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, ok := parseTag(code)
	if !ok {
		return ""
	}
	base, _ := tag.Base()
	if s := base.String(); len(s) == 2 {
		return s
	}
	return ""
}

// ToISO3 converts any recognized language code or word to ISO 639-2 (3-letter).
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	tag, ok := parseTag(code)
	if !ok {
		return "und"
	}
	base, _ := tag.Base()
	if iso3 := base.ISO3(); iso3 != "" {
		return iso3
	}
	return "und"
}

// DisplayName returns a human-readable English language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if tag, ok := parseTag(trimmed); ok {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

// PromptLabel turns a configured language into the name used in the
// translation request. Codes and known words map to the English display
// name; free-form labels such as "brazilian portuguese" are title-cased and
// kept as written.
func PromptLabel(value string) string {
	trimmed := strings.Join(strings.Fields(value), " ")
	if trimmed == "" {
		return ""
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if len(trimmed) <= 3 {
		if tag, ok := parseTag(trimmed); ok {
			if name := display.English.Tags().Name(tag); name != "" {
				return name
			}
		}
	}
	return cases.Title(xlanguage.Und).String(trimmed)
}

// Same reports whether two configured languages name the same language.
func Same(a, b string) bool {
	if iso := ToISO3(a); iso != "und" && iso == ToISO3(b) {
		return true
	}
	return strings.EqualFold(PromptLabel(a), PromptLabel(b))
}

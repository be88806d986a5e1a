package storage

import (
	"regexp"
	"strings"
)

// translitMap converts Cyrillic to a fixed Latin mapping so that file
// names become storage-safe keys. The mapping is deterministic: the
// same input always yields the same output.
var translitMap = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g", 'д': "d", 'е': "e",
	'є': "ie", 'ж': "zh", 'з': "z", 'и': "y", 'і': "i", 'ї': "yi", 'й': "i",
	'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ь': "", 'ю': "iu", 'я': "ia",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "H", 'Ґ': "G", 'Д': "D", 'Е': "E",
	'Є': "Ie", 'Ж': "Zh", 'З': "Z", 'И': "Y", 'І': "I", 'Ї': "Yi", 'Й': "I",
	'К': "K", 'Л': "L", 'М': "M", 'Н': "N", 'О': "O", 'П': "P", 'Р': "R",
	'С': "S", 'Т': "T", 'У': "U", 'Ф': "F", 'Х': "Kh", 'Ц': "Ts", 'Ч': "Ch",
	'Ш': "Sh", 'Щ': "Shch", 'Ь': "", 'Ю': "Iu", 'Я': "Ia",
}

var (
	unsafeChars    = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	underscoreRuns = regexp.MustCompile(`_{2,}`)
)

// SanitizeFileName transliterates Cyrillic, replaces every character
// outside [A-Za-z0-9.-] with an underscore and collapses underscore
// runs. The result is safe to use as an object storage key segment.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if mapped, ok := translitMap[r]; ok {
			b.WriteString(mapped)
			continue
		}
		b.WriteRune(r)
	}
	cleaned := unsafeChars.ReplaceAllString(b.String(), "_")
	return underscoreRuns.ReplaceAllString(cleaned, "_")
}

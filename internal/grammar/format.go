package grammar

import (
	"regexp"
	"strings"

	"github.com/sctracker/killfeed/internal/util"
)

var (
	trailingNumericRe  = regexp.MustCompile(`(?:_\d+)+$`)
	manufacturerCodeRe = regexp.MustCompile(`^([A-Za-z]{3,4})_(.+)$`)
)

// containerRewrites normalise container zones before manufacturer expansion.
// They run in order, each on the output of the previous one.
var containerRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)^.*(?:bunker|(?:^|_)ugf(?:_|$)).*$`), "Bunker"},
	{regexp.MustCompile(`(?i)^.*hangar.*$`), "Hangar"},
	{regexp.MustCompile(`(?i)^(.+?)_(?:int|interior)$`), "${1}"},
}

// FormatZone turns a raw zone name into a display label.
// "AEGS_Avenger_12345" becomes "Aegis Avenger".
func FormatZone(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = trailingNumericRe.ReplaceAllString(s, "")

	for _, r := range containerRewrites {
		s = r.re.ReplaceAllString(s, r.repl)
	}

	if m := manufacturerCodeRe.FindStringSubmatch(s); m != nil {
		if name, ok := manufacturerNames[strings.ToUpper(m[1])]; ok {
			s = name + " " + m[2]
		}
	}

	return util.CollapseSpaces(strings.ReplaceAll(s, "_", " "))
}

// FormatWeapon turns a raw weapon class name into a display label.
// "behr_pistol_01_attachment" becomes "Pistol", "klwe_rifle_energy_01" becomes
// "Energy Rifle".
func FormatWeapon(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if m := manufacturerCodeRe.FindStringSubmatch(s); m != nil {
		if _, ok := manufacturerNames[strings.ToUpper(m[1])]; ok {
			s = m[2]
		}
	}

	s = trailingNumericRe.ReplaceAllString(s, "")
	s = util.SplitCamel(s)

	var tokens []string
	for _, tok := range strings.Split(s, "_") {
		if tok = replaceWeaponWords(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}

	if len(tokens) > 1 {
		for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
			tokens[i], tokens[j] = tokens[j], tokens[i]
		}
	}

	return util.TitleWords(strings.Join(tokens, " "))
}

// replaceWeaponWords applies weaponTokens to each word of a token and drops
// purely numeric qualifiers.
func replaceWeaponWords(tok string) string {
	words := strings.Fields(tok)
	out := words[:0]
	for _, w := range words {
		if util.IsDigits(w) {
			continue
		}
		if repl, ok := weaponTokens[strings.ToLower(w)]; ok {
			if repl == "" {
				continue
			}
			w = repl
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

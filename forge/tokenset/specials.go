package tokenset

import "strings"

// RoleToken binds a special-token role name to its literal token.
type RoleToken struct {
	Role  string
	Token string
}

// SpecialTokenMap is an ordered role -> token mapping. Order is the order
// the roles are written to special_tokens_map.json.
type SpecialTokenMap []RoleToken

var inlineRoles = SpecialTokenMap{
	{"unk_token", "<unk>"},
	{"bos_token", "<s>"},
	{"eos_token", "</s>"},
	{"pad_token", "<pad>"},
	{"mask_token", "<mask>"},
	{"sep_token", "<sep>"},
	{"cls_token", "<cls>"},
	{"user_token", "<user>"},
	{"assistant_token", "<assistant>"},
	{"action_token", "<action>"},
	{"content_token", "<content>"},
	{"summary_token", "<summary>"},
	{"url_token", "<url>"},
	{"web_token", "<web>"},
}

// SpecialTokens returns the fixed role map written for a variant. The map
// does not follow edits to the inline token list.
func SpecialTokens(variant Variant) SpecialTokenMap {
	n := len(inlineRoles)
	if variant != VariantInline {
		n = len(baseTokens)
	}
	out := make(SpecialTokenMap, n)
	copy(out, inlineRoles[:n])
	return out
}

// Roles lists the role names in order.
func (m SpecialTokenMap) Roles() []string {
	out := make([]string, len(m))
	for i, rt := range m {
		out[i] = rt.Role
	}
	return out
}

// Tokens lists the literal tokens in role order.
func (m SpecialTokenMap) Tokens() []string {
	out := make([]string, len(m))
	for i, rt := range m {
		out[i] = rt.Token
	}
	return out
}

// Get returns the token for role.
func (m SpecialTokenMap) Get(role string) (string, bool) {
	for _, rt := range m {
		if rt.Role == role {
			return rt.Token, true
		}
	}
	return "", false
}

// Missing returns the role tokens absent from ts.
func (m SpecialTokenMap) Missing(ts TokenSet) []string {
	have := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		have[t] = struct{}{}
	}
	var out []string
	for _, rt := range m {
		if _, ok := have[rt.Token]; !ok {
			out = append(out, rt.Token)
		}
	}
	return out
}

// defaultInlineSeeds is the extended seed list pre-filled in the inline
// form: role tokens, punctuation, Cyrillic and Latin letters, digits, math,
// currency and a few Latin diacritics.
var defaultInlineSeeds = []string{
	"<unk>", "<s>", "</s>", "<pad>", "<mask>",
	"<sep>", "<cls>", "<user>", "<assistant>",
	"<action>", "<content>", "<summary>",
	"<url>", "<web>",

	" ", ",", ".", "!", "—", "-", ";", ":", "(", ")", "\"", "?", "«", "»", "'", "[", "]", "…",
	"{", "}", "/", "\\", "|", "@", "#", "$", "%", "^", "&", "*", "_", "+", "=", "~", "`", "<", ">", "„",

	"а", "б", "в", "г", "д", "е", "ё", "ж", "з", "и", "й", "к", "л", "м", "н", "о", "п",
	"р", "с", "т", "у", "ф", "х", "ц", "ч", "ш", "щ", "ъ", "ы", "ь", "э", "ю", "я",

	"А", "Б", "В", "Г", "Д", "Е", "Ё", "Ж", "З", "И", "Й", "К", "Л", "М", "Н", "О", "П",
	"Р", "С", "Т", "У", "Ф", "Х", "Ц", "Ч", "Ш", "Щ", "Ъ", "Ы", "Ь", "Э", "Ю", "Я",

	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p",
	"q", "r", "s", "t", "u", "v", "w", "x", "y", "z",

	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O", "P",
	"Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",

	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",

	"≠", "≈", "±", "√", "∞", "∫", "∑", "∏", "∂", "∇", "→", "←", "⇔", "∀", "∃", "∧", "∨", "⊥", "⊂", "⊃", "Θ",

	"₽", "$", "€", "£", "¥", "₴", "₹", "₩", "฿", "₿", "¢", "৳",

	"°", "©", "®", "™", "§", "¶",

	"á", "é", "í", "ó", "ú", "ñ", "ü", "ä", "ö", "ß", "ç",
}

// DefaultInlineText is the comma joined seed list shown as the inline
// default. Resolving it drops the space and comma seeds, like the form did.
func DefaultInlineText() string {
	return strings.Join(defaultInlineSeeds, ", ")
}

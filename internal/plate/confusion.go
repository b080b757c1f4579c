package plate

// PlateLength is the number of characters of a Mercosul plate (ABC1D23).
const PlateLength = 7

// confusions maps a reference character to the characters an OCR engine
// tends to read in its place. Read-only after package init.
var confusions = buildConfusionTable(map[rune]string{
	'0': "OQ",
	'O': "0Q",
	'Q': "O0",
	'1': "IL",
	'I': "1L",
	'L': "I1",
	'2': "Z",
	'Z': "2",
	'5': "S",
	'S': "5",
	'8': "B",
	'B': "8",
	'6': "G",
	'G': "6",
	'4': "A",
	'A': "4",
})

func buildConfusionTable(src map[rune]string) map[rune]map[rune]struct{} {
	table := make(map[rune]map[rune]struct{}, len(src))
	for expected, swaps := range src {
		set := make(map[rune]struct{}, len(swaps))
		for _, r := range swaps {
			set[r] = struct{}{}
		}
		table[expected] = set
	}
	return table
}

// IsConfusion reports whether obtained is a known OCR misreading of expected.
func IsConfusion(expected, obtained rune) bool {
	set, ok := confusions[expected]
	if !ok {
		return false
	}
	_, ok = set[obtained]
	return ok
}

// Confusions returns the characters commonly misread for r, or nil.
// The returned slice is a copy.
func Confusions(r rune) []rune {
	set, ok := confusions[r]
	if !ok {
		return nil
	}
	out := make([]rune, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

package timeparse

// Chinese numeral conversion for clock values. Supports single digits
// (零–九, 兩), bare 十, and tens compounds (十一, 二十, 二十四) up to 24,
// which covers every value a clock expression can carry.

var chineseDigit = map[rune]int{
	'零': 0,
	'一': 1,
	'二': 2,
	'兩': 2,
	'两': 2,
	'三': 3,
	'四': 4,
	'五': 5,
	'六': 6,
	'七': 7,
	'八': 8,
	'九': 9,
}

// ChineseNumeral converts a Chinese numeral token to an integer.
// Returns false for empty input, unknown runes, or compounds it does not
// model (anything above 99; clock parsing rejects >24 separately anyway).
func ChineseNumeral(s string) (int, bool) {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, false
	}

	// Direct lookup covers the single-digit case.
	if len(runes) == 1 {
		if runes[0] == '十' {
			return 10, true
		}
		if v, ok := chineseDigit[runes[0]]; ok {
			return v, true
		}
		return 0, false
	}

	// Tens/units composition around 十.
	tenIdx := -1
	for i, r := range runes {
		if r == '十' {
			tenIdx = i
			break
		}
	}
	if tenIdx == -1 {
		return 0, false
	}

	tens := 1
	if tenIdx > 0 {
		if tenIdx != 1 {
			return 0, false
		}
		v, ok := chineseDigit[runes[0]]
		if !ok || v == 0 {
			return 0, false
		}
		tens = v
	}

	units := 0
	if tenIdx < len(runes)-1 {
		if tenIdx != len(runes)-2 {
			return 0, false
		}
		v, ok := chineseDigit[runes[len(runes)-1]]
		if !ok {
			return 0, false
		}
		units = v
	}

	return tens*10 + units, true
}

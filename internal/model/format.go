package model

import "strconv"

// FormatPoints renders a point total with "." thousands separators once the
// value reaches five digits, matching the site's display convention.
func FormatPoints(n int) string {
	if n < 10000 && n > -10000 {
		return strconv.Itoa(n)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.Itoa(n)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// Ordinal renders 1 -> "1st", 2 -> "2nd", 11 -> "11th", ...
func Ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
		// 11th, 12th, 13th
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

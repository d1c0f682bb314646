package student

import (
	"fmt"
	"strings"
	"unicode"
)

// BMICategory buckets a BMI value into the usual health categories.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

// FormatName title-cases each word of a name.
func FormatName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// FormatPhone renders a ten digit number starting with 0 as 0XXX-XXX-XXX and
// returns anything else unchanged.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) == 10 && d[0] == '0' {
		return d[:4] + "-" + d[4:7] + "-" + d[7:]
	}
	return phone
}

// FormatGPA prints a GPA with a fixed number of decimals.
func FormatGPA(gpa float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, gpa)
}

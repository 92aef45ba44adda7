package normalize

import "regexp"

// Salary shapes seen across the supported sites: rupee/dollar ranges and
// Indian LPA figures.
var salaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`₹\s*[\d,]+\s*-\s*₹\s*[\d,]+`),
	regexp.MustCompile(`(?i)Rs\.?\s*[\d,]+\s*-\s*Rs\.?\s*[\d,]+`),
	regexp.MustCompile(`(?i)[\d,.]+\s*-\s*[\d,.]+\s*LPA`),
	regexp.MustCompile(`(?i)[\d,.]+\s*LPA`),
	regexp.MustCompile(`\$\s*[\d,]+\s*-\s*\$\s*[\d,]+`),
}

// ExtractSalary pulls a recognizable salary figure out of free text.
// Returns "" when none is found; salary is an optional field.
func ExtractSalary(text string) string {
	s := CleanText(text)
	if s == "" {
		return ""
	}
	for _, re := range salaryPatterns {
		if m := re.FindString(s); m != "" {
			return CleanText(m)
		}
	}
	return ""
}

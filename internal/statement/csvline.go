// Package statement parses delimited bank statement exports into normalized
// treasury transactions. It classifies the export layout from the header
// row, tokenizes each line, and runs the field normalizers per column.
package statement

import "strings"

// ParseCSVLine tokenizes one statement row. The separator is chosen per
// line: semicolon when one appears outside quotes, comma otherwise. Belgian
// exports pair semicolon separators with decimal commas, so treating both
// as separators at once would split every amount in two. Double-quote
// enclosed fields are honored (with "" escaping a literal quote) and each
// field is trimmed of surrounding whitespace. A trailing separator's empty
// token is dropped; interior empty fields are preserved.
func ParseCSVLine(line string) []string {
	sep := lineSeparator(line)

	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == sep && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	last := strings.TrimSpace(current.String())
	if last != "" || len(fields) == 0 {
		fields = append(fields, last)
	}

	return fields
}

// lineSeparator picks the field separator for one row: semicolon when one
// occurs outside quotes, comma otherwise.
func lineSeparator(line string) byte {
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				return ';'
			}
		}
	}
	return ','
}

// splitLines breaks file content into non-blank lines, tolerating both LF
// and CRLF endings. Returned indexes are 1-based line numbers in the file.
func splitLines(content string) ([]string, []int) {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var lines []string
	var numbers []int
	for i, l := range raw {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
		numbers = append(numbers, i+1)
	}
	return lines, numbers
}

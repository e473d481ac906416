// Package mention извлекает упоминания студентов из текста уведомления.
//
// Упоминание - это маркер '@', за которым сразу следует полный email:
// "@student@example.com". Результат чувствителен к регистру, нормализацию
// выполняет вызывающий код.
package mention

import "regexp"

// marker предшествует упомянутому email
const marker = "@"

var mentionPattern = regexp.MustCompile(regexp.QuoteMeta(marker) + `([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

// Extract возвращает различные упомянутые email в порядке первого появления.
// Для пустого текста или текста без упоминаний возвращается пустой срез.
func Extract(text string) []string {
	if text == "" {
		return []string{}
	}

	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	emails := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, match := range matches {
		email := match[1]
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}

	return emails
}

package service

import "strings"

// NormalizeEmail приводит email к ключу хранилища: trim + lower case
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails нормализует и убирает дубликаты, сохраняя порядок первого появления
func NormalizeEmails(emails []string) []string {
	normalized := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = NormalizeEmail(email)
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		normalized = append(normalized, email)
	}
	return normalized
}

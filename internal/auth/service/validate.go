package service

import (
	"net/mail"
	"unicode/utf8"
)

const (
	maxEmailLength    = 254
	maxPasswordLength = 256
	maxNameLength     = 200
)

// checkEmail rejects anything net/mail would have to rewrite. Emails are
// otherwise kept exactly as written.
func checkEmail(fields map[string]string, key, email string) {
	switch {
	case email == "":
		fields[key] = "is required"
	case len(email) > maxEmailLength:
		fields[key] = "is too long"
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email || addr.Name != "" {
			fields[key] = "must be a valid email address"
		}
	}
}

func checkPassword(fields map[string]string, key, password string) {
	switch {
	case password == "":
		fields[key] = "is required"
	case utf8.RuneCountInString(password) > maxPasswordLength:
		fields[key] = "is too long"
	}
}

// checkName validates the name as it will be stored, after cleanText.
func checkName(fields map[string]string, key, name string) {
	name = cleanText(name)
	switch {
	case name == "":
		fields[key] = "is required"
	case utf8.RuneCountInString(name) > maxNameLength:
		fields[key] = "is too long"
	}
}

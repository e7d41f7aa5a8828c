package validator

import (
	"strings"
	"unicode/utf8"

	"webshare-api/internal/interface/api/rest/dto/auth"
	"webshare-api/internal/interface/api/rest/dto/share"
)

const (
	maxUsernameLen = 64
	maxTitleLen    = 256
	maxCommentsLen = 4096
)

// ValidateLogin checks presence only; the password is not trimmed.
func ValidateLogin(r auth.LoginRequest) map[string]string {
	errs := make(map[string]string)

	username := strings.TrimSpace(r.Username)

	if username == "" {
		errs["username"] = "username is required"
	} else if utf8.RuneCountInString(username) > maxUsernameLen {
		errs["username"] = "username is too long"
	}

	if r.Password == "" {
		errs["password"] = "password is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func ValidateShare(r share.Request) map[string]string {
	errs := make(map[string]string)

	title := strings.TrimSpace(r.Title)
	comments := strings.TrimSpace(r.Comments)

	if title == "" {
		errs["title"] = "title is required"
	} else if utf8.RuneCountInString(title) > maxTitleLen {
		errs["title"] = "title length must be at most 256 characters"
	}

	if comments == "" {
		errs["comments"] = "comments are required"
	} else if utf8.RuneCountInString(comments) > maxCommentsLen {
		errs["comments"] = "comments length must be at most 4096 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// First returns one message from errs, picking fields in a fixed order.
func First(errs map[string]string, order ...string) string {
	for _, k := range order {
		if msg, ok := errs[k]; ok {
			return msg
		}
	}
	for _, msg := range errs {
		return msg
	}
	return ""
}

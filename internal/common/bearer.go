package common

import "strings"

// ParseBearer extracts the token from an "Authorization: Bearer <token>"
// value. The scheme is matched case-insensitively.
func ParseBearer(value string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", ErrInvalidToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

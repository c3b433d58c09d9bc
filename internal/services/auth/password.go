// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"

	"codeberg.org/tourbook/tourbook/internal/models"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords map[string]struct{}

func init() {
	commonPasswords = make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		password := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if password != "" {
			commonPasswords[password] = struct{}{}
		}
	}
}

// PasswordValidator validates passwords against various criteria
type PasswordValidator struct {
	MinLength            int
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultPasswordValidator returns a validator with the application defaults
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:            8,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// Validate checks a new password and its confirmation. Failures are reported
// as a *models.ValidationError keyed by "password" and "passwordConfirm".
func (v *PasswordValidator) Validate(password, confirm string, userAttributes ...string) error {
	fields := map[string]string{}

	switch {
	case password == "":
		fields["password"] = "Please provide a password"
	case len(password) < v.MinLength:
		fields["password"] = fmt.Sprintf("Password must be at least %d characters long.", v.MinLength)
	case isEntirelyNumeric(password):
		fields["password"] = "Password cannot be entirely numeric."
	case v.CheckCommonPasswords && isCommonPassword(password):
		fields["password"] = "This password is too common. Please choose a more secure password."
	case v.CheckUserSimilarity && isSimilarToUserAttributes(password, userAttributes):
		fields["password"] = "Password is too similar to your personal information."
	}

	switch {
	case confirm == "":
		fields["passwordConfirm"] = "Please confirm your password"
	case confirm != password:
		fields["passwordConfirm"] = "Passwords are not the same!"
	}

	if len(fields) == 0 {
		return nil
	}
	return &models.ValidationError{Fields: fields}
}

// HelpTexts returns help texts for password requirements
func (v *PasswordValidator) HelpTexts() []string {
	texts := []string{
		fmt.Sprintf("At least %d characters", v.MinLength),
		"Cannot be entirely numeric",
	}
	if v.CheckCommonPasswords {
		texts = append(texts, "Not a commonly used password")
	}
	if v.CheckUserSimilarity {
		texts = append(texts, "Not too similar to your personal information")
	}
	return texts
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(password)]
	return exists
}

func isSimilarToUserAttributes(password string, attributes []string) bool {
	passwordLower := strings.ToLower(password)

	for _, attr := range attributes {
		attrLower := strings.ToLower(strings.TrimSpace(attr))
		if len(attrLower) < 3 {
			continue
		}

		if strings.Contains(passwordLower, attrLower) || strings.Contains(attrLower, passwordLower) {
			return true
		}

		if similarity(passwordLower, attrLower) > 0.7 {
			return true
		}
	}

	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	lcs := longestCommonSubsequence(a, b)
	return float64(lcs) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	return dp[m][n]
}

package common

import (
	"context"
	"strings"

	"github.com/teemow/inboxcontent/internal/google"
)

// GetAccountFromArgs returns the "account" argument of a tool call, or
// google.DefaultAccount when it is missing or not a string.
func GetAccountFromArgs(_ context.Context, args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok {
		if account := strings.TrimSpace(accountVal); account != "" {
			return account
		}
	}
	return google.DefaultAccount
}

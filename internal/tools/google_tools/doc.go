// Package google_tools provides the MCP tools for Google OAuth.
//
// An account without a token cannot fetch attachments. The flow is:
//  1. Call google_get_auth_url to get the consent URL for an account
//  2. The user opens the URL and approves read-only Gmail access
//  3. Call google_save_auth_code with the code the user received
//
// Tokens are stored per account under the user cache directory and are
// refreshed automatically. Saving a new code drops the cached Gmail client
// for that account.
package google_tools

// Package common provides helpers shared by the MCP tool packages: account
// selection from tool arguments and the instrumented handler wrapper.
package common

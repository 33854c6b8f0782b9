package instrumentation

import (
	"path/filepath"
	"strings"
)

// FileExtension reduces an attachment filename to its lowercased extension
// so it can be logged or used as a label without exposing the name. Names
// without an extension, or with one longer than eight characters, map to
// "none".
//
//	FileExtension("Q3 Forecast.XLSX")  // ".xlsx"
//	FileExtension("README")            // "none"
func FileExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 9 {
		return "none"
	}
	return ext
}

// Operation types for Google API and attachment pipeline metrics.
// Status and Service constants are defined in config.go.
const (
	OperationList    = "list"
	OperationGet     = "get"
	OperationSearch  = "search"
	OperationParse   = "parse"
	OperationPersist = "persist"
	OperationSweep   = "sweep"
)

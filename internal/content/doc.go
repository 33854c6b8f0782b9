// Package content holds the data model for attachment content resolution and
// the classifier that assigns each payload a Category.
//
// Classification is a single ordered rule list. Declared MIME types win over
// filename extensions, which win over sniffing the leading bytes:
//
//	cat := content.Classify("application/pdf", "contract.pdf", nil)
//	// cat == content.CategoryOfficeDocument
//
// Classify never fails; anything it cannot place is CategoryBinary.
//
// The ParsedResult variants (TextResult, SpreadsheetResult, DocumentResult,
// BinaryResult) all carry enough metadata (original size, truncation flag,
// applied ceiling) for a caller to know what was omitted.
package content

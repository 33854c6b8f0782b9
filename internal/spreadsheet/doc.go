// Package spreadsheet turns workbook bytes into a bounded tabular view.
//
// OOXML workbooks are read with excelize, legacy BIFF workbooks with
// extrame/xls and delimited text with encoding/csv. Parse never returns an
// error: failures are reported in SpreadsheetResult.Error so the caller can
// still hand back a well-formed response.
package spreadsheet

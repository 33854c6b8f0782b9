// Package document extracts plain text from paginated, word-processing and
// presentation formats.
//
// PDF is read with ledongthuc/pdf, falling back to the pdftotext binary when
// the pure Go reader yields nothing. DOCX goes through nguyenthenguyen/docx,
// PPTX and OpenDocument files are read straight from their zip containers
// and RTF is run through a control-word stripper.
//
// Every extractor is synchronous. Parser.Parse runs it on its own goroutine
// and waits on a channel, so a caller's context (and the optional extraction
// timeout) bounds how long a request waits for a pathological document.
// Failures never surface as errors: they are reported in
// DocumentResult.Error.
package document

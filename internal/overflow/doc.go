// Package overflow keeps responses under the transport limit by writing
// oversized payloads to a work directory and handing back a SpillRecord.
//
// Spill files are named
//
//	<prefix>_<sanitized base name>_<unix millis>_<8 random hex chars>[.ext]
//
// and are removed by Sweep once they are older than the retention period.
package overflow

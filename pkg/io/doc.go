// Package io provides JSON import and export of resolution reports.
//
// # JSON Format
//
// A report wraps the results of one or more resolved directories:
//
//	{
//	  "schema": 1,
//	  "generator": "cpanmeta v0.3.0",
//	  "results": [
//	    {
//	      "id": "6f1c...",
//	      "dir": "/src/My-Dist",
//	      "files": ["META.json", "cpanfile"],
//	      "sources": [
//	        {
//	          "name": "My-Dist",
//	          "version": "1.0",
//	          "path": "/src/My-Dist",
//	          "origin": "/src/My-Dist/META.json",
//	          "kind": "meta-json",
//	          "dependencies": [{"name": "Moo", "version": "2.0"}]
//	        }
//	      ]
//	    }
//	  ]
//	}
//
// # Import
//
// Use [ImportJSON] to read a report from a file path, or [ReadJSON] to read
// from any io.Reader. Both check the schema version and the record
// invariants (every dependency has a name), so a report written by a newer
// incompatible release is rejected instead of being misread.
//
// # Export
//
// Use [ExportJSON] to write a report to a file, or [WriteJSON] to write to
// any io.Writer. Output is indented for readability and round-trips through
// [ReadJSON] unchanged.
package io

// Package io provides JSON import and export for volume reports.
//
// # Overview
//
// This package defines the exchange format for the results of a volumetrics
// run: per-patient, per-visit cartilage volumes plus the decode settings that
// produced them. The format is designed for:
//
//   - Feeding reports into cohort comparison without re-decoding masks
//   - Integration with external tools that consume volumetric data
//   - Persisting runs in the report store and re-reading them identically
//   - Round-trip preservation: export, re-import, and compare byte-for-byte
//
// # JSON Format
//
// The format has a small header plus one entry per patient:
//
//	{
//	  "run_id": "7d0f0f5e-4a6f-4d17-9f0e-2a1b3c4d5e6f",
//	  "source": "iwfs",
//	  "created_at": "2026-08-22T10:15:00Z",
//	  "voxel": {"in_plane": [0.357, 0.511], "thickness": 3},
//	  "strict": false,
//	  "fill_holes": true,
//	  "patients": [
//	    {
//	      "id": "9001695",
//	      "visits": [
//	        {"name": "V01", "slices": 14, "volume_mm3": 1523.4}
//	      ]
//	    }
//	  ]
//	}
//
// # Patient Entries
//
// Each patient has a unique "id" and a list of visits. Each visit carries the
// visit name, the number of mask slices that contributed, and the measured
// volume in cubic millimetres. Writers emit patients and visits in sorted
// order; readers preserve whatever order the input uses.
//
// Runs that skipped unreadable documents record them under "failures" with
// the offending path and the reason, so a report is honest about what it
// does not cover.
//
// # Import
//
// Use [ImportJSON] to read a report from a file path, or [ReadJSON] to read
// from any io.Reader:
//
//	rep, err := io.ImportJSON("run.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Both functions validate the structure: duplicate patient IDs, duplicate
// visit names within a patient, and negative volumes are rejected. Errors
// are wrapped with context about which patient or visit caused the problem.
//
// # Export
//
// Use [ExportJSON] to write a report to a file, or [WriteJSON] to write to
// any io.Writer:
//
//	err := io.ExportJSON(rep, "run.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// All functions in this package are safe to call concurrently with other
// readers of the same report, but not with concurrent modifications. The
// [ReadJSON] and [ImportJSON] functions return independent report values
// that can be modified freely after import.
package io

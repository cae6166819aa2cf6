// Kindred - Donation Settlement and Receipt Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kindred

// Package query builds parameterized WHERE clauses for the database package.
//
//	wb := query.NewWhereBuilder().
//	    AddEquals("status", "PENDING").
//	    AddBefore("created_at", cutoff).
//	    AddIn("gateway", []string{"push", "redirect"})
//	where, args := wb.BuildWithPrefix()
//	// WHERE status = ? AND created_at < ? AND gateway IN (?, ?)
//
// Column names are interpolated into the SQL and must be constants chosen
// by the caller, never request input. Values always travel as arguments.
package query

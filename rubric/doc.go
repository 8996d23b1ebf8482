// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package rubric defines the fixed committee scoring rubric and the
weighted-total computation.

# Scoring

Each criterion is rated 0..3. The weighted total is

	total = Σ (rating / 3) × weight

with weights summing to 100, so totals run 0..100. The store
recomputes a score's total from its ratings on every save; totals
supplied by callers are never trusted.

# RAG Banding

Band applies red/amber/green coloring to a total: below 50 is red,
below the approval threshold (default 65) is amber, otherwise green.
The threshold is adjustable per report.
*/
package rubric

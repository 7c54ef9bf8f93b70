package grading

import (
	"context"
	"fmt"
	"time"
)

// BackfillReason tags reconciler-inserted ledger entries.
const BackfillReason = "balance backfill"

// ReconcileResult reports what the ledger reconciler found and did for
// one cadet.
type ReconcileResult struct {
	CadetID           string `json:"cadet_id"`
	MeritBackfilled   int    `json:"merit_backfilled"`
	DemeritBackfilled int    `json:"demerit_backfilled"`
	// Flags carries negative-drift conditions (ledger sum exceeding the
	// stored total). These are never auto-corrected; they need human review.
	Flags []string `json:"flags,omitempty"`
}

func (r ReconcileResult) Changed() bool {
	return r.MeritBackfilled > 0 || r.DemeritBackfilled > 0
}

// ReconcileLedger compares the grade record's merit/demerit totals against
// the ledger sums. A stored total exceeding its ledger sum gets a single
// backfill entry for the positive difference, attributed to issuedBy.
// Negative drift is flagged, not corrected. Idempotent: a consistent
// ledger yields no writes.
func (svc *Service) ReconcileLedger(ctx context.Context, cadetID, issuedBy string) (ReconcileResult, error) {
	res := ReconcileResult{CadetID: cadetID}

	rec, err := svc.repo.GetGradeRecord(ctx, cadetID)
	if err != nil {
		return res, err
	}

	for _, typ := range []EntryType{EntryMerit, EntryDemerit} {
		stored := rec.MeritPoints
		if typ == EntryDemerit {
			stored = rec.DemeritPoints
		}
		sum, err := svc.repo.SumLedgerPoints(ctx, cadetID, typ)
		if err != nil {
			return res, err
		}

		switch {
		case stored > sum:
			diff := stored - sum
			entry := LedgerEntry{
				CadetID:   cadetID,
				Type:      typ,
				Points:    diff,
				Reason:    BackfillReason,
				IssuedBy:  issuedBy,
				CreatedAt: time.Now().UTC(),
			}
			// The stored totals are already correct; only the audit trail is
			// missing. Insert without applying a point effect.
			if _, err = svc.repo.InsertLedgerEntry(ctx, entry); err != nil {
				return res, err
			}
			if typ == EntryMerit {
				res.MeritBackfilled = diff
			} else {
				res.DemeritBackfilled = diff
			}
		case stored < sum:
			res.Flags = append(res.Flags, fmt.Sprintf(
				"%s ledger sum (%d) exceeds stored total (%d); needs manual review", typ, sum, stored))
		}
	}
	return res, nil
}

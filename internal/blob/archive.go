package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"vendorq/internal/questionnaire"
)

// ContentTypeJSON is the content type stored with archived snapshots.
const ContentTypeJSON = "application/json"

const snapshotPrefix = "questionnaires"

// SubmissionArchive writes one JSON object per committed submission to a
// Store, keyed questionnaires/<vendor>/<questionnaire>/<timestamp>.json.
type SubmissionArchive struct {
	store Store
}

var _ questionnaire.Archiver = (*SubmissionArchive)(nil)

// NewSubmissionArchive wraps store.
func NewSubmissionArchive(store Store) *SubmissionArchive {
	return &SubmissionArchive{store: store}
}

// SnapshotKey returns the object key for a snapshot.
func SnapshotKey(s questionnaire.Snapshot) string {
	return path.Join(snapshotPrefix, s.VendorID, s.QuestionnaireID,
		s.CompletedAt.UTC().Format("20060102T150405.000000000Z")+".json")
}

// VendorPrefix returns the key prefix holding every snapshot for vendorID.
func VendorPrefix(vendorID string) string {
	return snapshotPrefix + "/" + vendorID + "/"
}

// Archive stores the snapshot.
func (a *SubmissionArchive) Archive(ctx context.Context, s questionnaire.Snapshot) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = a.store.Put(ctx, SnapshotKey(s), bytes.NewReader(body), PutOptions{
		ContentType: ContentTypeJSON,
		Metadata: map[string]string{
			"vendor_id":        s.VendorID,
			"questionnaire_id": s.QuestionnaireID,
		},
	})
	if err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}
	return nil
}

// History lists archived snapshots for vendorID in key order, which is
// chronological per questionnaire.
func (a *SubmissionArchive) History(ctx context.Context, vendorID string) ([]Info, error) {
	return a.store.List(ctx, VendorPrefix(vendorID))
}

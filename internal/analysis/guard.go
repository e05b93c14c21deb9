package analysis

import (
	"strings"

	"github.com/Himanshu0815/Youtube-Agent/pkg/domain"
)

// Verify checks that rec describes the requested video. When either id is
// missing no check is made.
func Verify(requestedID string, rec domain.AnalysisRecord) (domain.AnalysisRecord, error) {
	requestedID = strings.TrimSpace(requestedID)
	resolved := strings.TrimSpace(rec.VideoID)
	if requestedID == "" || resolved == "" {
		return rec, nil
	}
	if resolved == domain.NotFoundVideoID {
		return domain.AnalysisRecord{}, &NotFoundError{RequestedID: requestedID}
	}
	if resolved != requestedID {
		return domain.AnalysisRecord{}, &MismatchError{RequestedID: requestedID, ResolvedID: resolved}
	}
	return rec, nil
}

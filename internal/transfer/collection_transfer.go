package transfer

// CollectionResult is the terminal outcome for one (post, platform) pair
// within a run.
type CollectionResult struct {
	PostID int64  `json:"post_id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type CollectionSummary struct {
	RunID        string              `json:"run_id"`
	Platform     string              `json:"platform"`
	Processed    int                 `json:"processed"`
	SuccessCount int                 `json:"success_count"`
	Results      []*CollectionResult `json:"results"`
}

// Errors returns the failed results only, for the compact batch responses.
// The slice is never nil so the JSON field stays [] on clean runs.
func (s *CollectionSummary) Errors() []*CollectionResult {
	failed := []*CollectionResult{}
	for _, r := range s.Results {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}

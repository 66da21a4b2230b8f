package model

// Stats summarizes verification state over a set of items.
type Stats struct {
	Total    int
	Pending  int
	Verified int
	Rejected int
}

// ComputeStats counts items by verification status. Items with an unknown
// status count toward Total only.
func ComputeStats(items []Item) Stats {
	s := Stats{Total: len(items)}
	for _, it := range items {
		switch it.VerificationStatus {
		case VerificationPending:
			s.Pending++
		case VerificationVerified:
			s.Verified++
		case VerificationRejected:
			s.Rejected++
		}
	}
	return s
}

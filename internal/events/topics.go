package events

// Topic constants for domain events emitted by the portal.
const (
	TopicSubmissionPlaced   = "submission.placed"
	TopicSubmissionApproved = "submission.approved"
	TopicSubmissionRejected = "submission.rejected"
	TopicItemAdjusted       = "submission.item_adjusted"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicSubmissionPlaced,
		TopicSubmissionApproved,
		TopicSubmissionRejected,
		TopicItemAdjusted,
	}
}

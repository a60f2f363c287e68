package driven

// Poll attempt outcomes reported to OrchestrationMetrics.
const (
	PollOutcomeReady    = "ready"
	PollOutcomeNotReady = "not_ready"
	PollOutcomeError    = "error"
)

// OrchestrationMetrics records client activity.
type OrchestrationMetrics interface {
	// UploadFinished records one upload attempt; err is nil on success.
	UploadFinished(err error)

	// PollStarted and PollFinished bracket a polling task.
	PollStarted()
	PollFinished()

	// PollAttempt records one analysis fetch with its outcome.
	PollAttempt(outcome string)

	// DeleteFinished records one deletion; err is nil on success.
	DeleteFinished(err error)
}

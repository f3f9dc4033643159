package constants

// JobStatus is the lifecycle of a queued receipt file.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusParsed   JobStatus = "PARSED"   // receipt reconstructed and validated
	JobStatusRecorded JobStatus = "RECORDED" // prices written to history
	JobStatusFailed   JobStatus = "FAILED"
)

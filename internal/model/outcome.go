package model

// Status is the processing state of one work item.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further stage will change the status.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusSkipped
}

// Outcome records the result of processing one work item. Exactly one stage
// owns an Outcome at a time; ownership transfers through the merged result
// list at stage boundaries.
type Outcome struct {
	SourceID string
	Status   Status
	FilePath string
	Title    string
	Err      string
}

// SuccessOutcome returns a success record pointing at the materialized file.
func SuccessOutcome(sourceID, filePath, title string) Outcome {
	return Outcome{SourceID: sourceID, Status: StatusSuccess, FilePath: filePath, Title: title}
}

// SkippedOutcome returns a skip record pointing at the pre-existing file.
func SkippedOutcome(sourceID, filePath, title string) Outcome {
	return Outcome{SourceID: sourceID, Status: StatusSkipped, FilePath: filePath, Title: title}
}

// ErrorOutcome returns a failure record carrying the error text.
func ErrorOutcome(sourceID, title, errText string) Outcome {
	return Outcome{SourceID: sourceID, Status: StatusError, Title: title, Err: errText}
}

// DisplayName prefers the resolved title and falls back to the source ID.
func (o Outcome) DisplayName() string {
	if o.Title != "" {
		return o.Title
	}
	return o.SourceID
}

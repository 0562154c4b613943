package pipeline

import (
	"time"

	"github.com/google/uuid"
)

const (
	MsgNoData    = "No PDF data found."
	MsgNoText    = "No text found in the PDF."
	MsgProcessed = "PDF processed and embeddings inserted."
	MsgAllDone   = "All PDFs processed and embeddings inserted."
)

type State string

const (
	StateDone    State = "done"
	StateSkipped State = "skipped"
	StateFailed  State = "failed"
	StateNoData  State = "no_data"
)

// Outcome is the terminal state of one document run.
type Outcome struct {
	DocumentID    string `json:"document_id,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	State         State  `json:"state"`
	Chunks        int    `json:"chunks"`
	Inserted      int    `json:"inserted"`
	FailedInserts int    `json:"failed_inserts"`
	Err           error  `json:"-"`
}

func (o Outcome) Message() string {
	switch o.State {
	case StateDone:
		return MsgProcessed
	case StateSkipped:
		return MsgNoText
	case StateFailed:
		if o.Err == nil {
			return "Error processing PDF: unknown error"
		}
		return "Error processing PDF: " + o.Err.Error()
	default:
		return MsgNoData
	}
}

// BatchReport lists one outcome per document, in feed order.
type BatchReport struct {
	RunID    uuid.UUID
	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
	// Err is set when the feed itself could not be read.
	Err error
}

func (r *BatchReport) Message() string {
	if len(r.Outcomes) == 0 {
		return MsgNoData
	}
	return MsgAllDone
}

func (r *BatchReport) count(state State) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

func (r *BatchReport) Succeeded() int { return r.count(StateDone) }
func (r *BatchReport) Skipped() int   { return r.count(StateSkipped) }
func (r *BatchReport) Failed() int    { return r.count(StateFailed) }

func (r *BatchReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

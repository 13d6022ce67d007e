package rabbitmq

import "encoding/json"

// taskEnvelope is the Celery-compatible task message published to a task
// queue. Field order/names follow the Celery wire protocol exactly.
type taskEnvelope struct {
	ID        string         `json:"id"`
	Task      string         `json:"task"`
	Args      []any          `json:"args"`
	Kwargs    map[string]any `json:"kwargs"`
	Retries   int            `json:"retries"`
	Expires   *string        `json:"expires"`
	UTC       bool           `json:"utc"`
	Chord     *string        `json:"chord"`
	Callbacks *string        `json:"callbacks"`
	Errbacks  *string        `json:"errbacks"`
	Taskset   *string        `json:"taskset"`
	Timelimit [2]*int        `json:"timelimit"`
	ETA       *string        `json:"eta"`
}

// newTaskEnvelope builds the envelope for one job invocation.
func newTaskEnvelope(jobID, functionName string, args map[string]any, retries int) *taskEnvelope {
	return &taskEnvelope{
		ID:        jobID,
		Task:      functionName,
		Args:      []any{},
		Kwargs:    args,
		Retries:   retries,
		UTC:       true,
		Timelimit: [2]*int{nil, nil},
	}
}

// resultStatus is the status field of a result envelope.
type resultStatus string

const (
	statusSuccess resultStatus = "SUCCESS"
	statusFailure resultStatus = "FAILURE"
)

// resultEnvelope is the Celery-compatible result message published to a
// reply queue.
type resultEnvelope struct {
	Status    resultStatus `json:"status"`
	TaskID    string       `json:"task_id"`
	Result    any          `json:"result"`
	Traceback *string      `json:"traceback"`
	Children  []any        `json:"children"`
}

// failurePayload is the canned "result" field of a FAILURE envelope.
type failurePayload struct {
	ExcMessage string `json:"exc_message"`
	ExcType    string `json:"exc_type"`
}

func newSuccessEnvelope(jobID string, result any) *resultEnvelope {
	return &resultEnvelope{
		Status:   statusSuccess,
		TaskID:   jobID,
		Result:   result,
		Children: []any{},
	}
}

func newFailureEnvelope(jobID string, err error) *resultEnvelope {
	tb := "Job died: " + err.Error()
	return &resultEnvelope{
		Status:    statusFailure,
		TaskID:    jobID,
		Traceback: &tb,
		Result: failurePayload{
			ExcMessage: "Task has failed",
			ExcType:    "Exception",
		},
		Children: []any{},
	}
}

// decodeTaskEnvelope parses a task message body, requiring a JSON object.
func decodeTaskEnvelope(body []byte) (*taskEnvelope, error) {
	var env taskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// decodeResultEnvelope parses a result message body, requiring a JSON
// object.
func decodeResultEnvelope(body []byte) (*resultEnvelope, error) {
	var env resultEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

package jobs

const (
	TaskWarmRequest = "cache:warm_request"
	TaskWarmChannel = "cache:warm_channel"
)

// QueueWarm is the asynq queue both warm tasks run on.
const QueueWarm = "warm"

type WarmRequestPayload struct {
	BatchID  string              `json:"batch_id"`
	Endpoint string              `json:"endpoint"`
	Params   map[string][]string `json:"params,omitempty"`
	Handle   string              `json:"handle,omitempty"`
}

type WarmChannelPayload struct {
	BatchID string `json:"batch_id"`
	Handle  string `json:"handle"`
}

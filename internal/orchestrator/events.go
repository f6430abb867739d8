package orchestrator

// Phase labels the status events of one streamed turn.
type Phase string

const (
	PhaseThinking Phase = "thinking"
	PhaseTool     Phase = "tool"
	PhaseAnswer   Phase = "answer"
	PhaseDone     Phase = "done"
	PhaseError    Phase = "error"
)

// Event is one typed unit of the streamed answer. Clients concatenate delta
// payloads in emission order to reconstruct the answer; done or error always
// terminates the sequence.
type Event struct {
	Name string
	Data any
}

type StatusPayload struct {
	Phase     Phase  `json:"phase"`
	MessageID string `json:"message_id,omitempty"`
	FastPath  string `json:"fast_path,omitempty"`
	Message   string `json:"message,omitempty"`
}

type DeltaPayload struct {
	Text string `json:"text"`
}

type SourcesPayload struct {
	Items []Source `json:"items"`
}

// Source is one auditable evidence item shown to the caller.
type Source struct {
	Ref      int     `json:"ref"`
	DocID    string  `json:"docId"`
	Filename string  `json:"filename"`
	Snippet  string  `json:"snippet"`
	Page     int     `json:"page,omitempty"`
	Sheet    string  `json:"sheet,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// Artifact is an exported file offered for download.
type Artifact struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func statusEvent(phase Phase) Event {
	return Event{Name: "status", Data: StatusPayload{Phase: phase}}
}

func deltaEvent(text string) Event {
	return Event{Name: "delta", Data: DeltaPayload{Text: text}}
}

func sourcesEvent(items []Source) Event {
	return Event{Name: "sources", Data: SourcesPayload{Items: items}}
}

func artifactEvent(a Artifact) Event {
	return Event{Name: "artifact", Data: a}
}

package payme

type statusCode struct {
	Code string `json:"code"`
}

type statusMeta struct {
	Status statusCode `json:"status"`
}

// CompletionPayload tolerates the three shapes the widget is known to emit.
// StatusCode probes them most specific first and takes the first non-empty.
type CompletionPayload struct {
	Authorization struct {
		Meta statusMeta `json:"meta"`
	} `json:"authorization"`
	Meta   statusMeta `json:"meta"`
	Status statusCode `json:"status"`
}

func (p CompletionPayload) StatusCode() string {
	if code := p.Authorization.Meta.Status.Code; code != "" {
		return code
	}
	if code := p.Meta.Status.Code; code != "" {
		return code
	}
	return p.Status.Code
}

func approvedCode(code string) bool {
	return code == "00" || code == "000"
}

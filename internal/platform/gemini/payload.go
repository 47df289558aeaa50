package gemini

// PayloadKind tags what an extraction located.
type PayloadKind int

// Payload kinds.
const (
	PayloadNotFound PayloadKind = iota
	PayloadText
	PayloadImageBytes
	PayloadRemoteURL
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadImageBytes:
		return "image_bytes"
	case PayloadRemoteURL:
		return "remote_url"
	default:
		return "not_found"
	}
}

// ExtractedPayload is the result of running the extractor over a response document.
// Only the fields that belong to Kind are set.
type ExtractedPayload struct {
	Kind     PayloadKind
	Text     string
	Data     []byte
	MIMEType string
	URL      string
}

// Found reports whether extraction located a value the caller can act on.
func (p ExtractedPayload) Found() bool {
	return p.Kind != PayloadNotFound
}

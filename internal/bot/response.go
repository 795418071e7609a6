package bot

// ResponseType tags how a transport should deliver a response.
type ResponseType string

const (
	ResponseText     ResponseType = "text"
	ResponseMarkdown ResponseType = "markdown"
	ResponseJSON     ResponseType = "json"
	ResponseVideo    ResponseType = "video"
)

// Response is the command result envelope shared by all transports.
// Exactly one of Content, Payload or Video is set, per Type.
type Response struct {
	Type     ResponseType
	Content  string      // text and markdown responses
	Payload  interface{} // command-specific JSON (e.g. search results)
	Video    []byte      // rendered clip bytes
	Filename string      // suggested filename for video responses
}

func textResponse(content string) Response {
	return Response{Type: ResponseText, Content: content}
}

func markdownResponse(content string) Response {
	return Response{Type: ResponseMarkdown, Content: content}
}

func jsonResponse(payload interface{}) Response {
	return Response{Type: ResponseJSON, Payload: payload}
}

func videoResponse(video []byte, filename string) Response {
	return Response{Type: ResponseVideo, Video: video, Filename: filename}
}

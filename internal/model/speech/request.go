package speech

import "github.com/cloudwego/eino/schema"

// Recorder output is always wrapped in this container.
const (
	CaptureContentType = "audio/webm"
	CaptureFilename    = "audio.webm"
	CaptureFormField   = "file"
)

// ChatRequest 聊天补全请求体
type ChatRequest struct {
	Messages []*schema.Message `json:"messages"`
}

// SynthesizeRequest 语音合成请求体
type SynthesizeRequest struct {
	Text string `json:"text"`
}

// AudioPayload is a finalized recording ready for upload.
type AudioPayload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// NewCapturePayload concatenates recorded chunks in arrival order.
func NewCapturePayload(chunks [][]byte) AudioPayload {
	size := 0
	for _, chunk := range chunks {
		size += len(chunk)
	}

	data := make([]byte, 0, size)
	for _, chunk := range chunks {
		data = append(data, chunk...)
	}

	return AudioPayload{
		Data:        data,
		ContentType: CaptureContentType,
		Filename:    CaptureFilename,
	}
}

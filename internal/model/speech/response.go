package speech

// SynthesisContentType is the MPEG audio type the synthesis collaborator must answer with.
const SynthesisContentType = "audio/mpeg"

// ChatResponse 聊天补全响应
type ChatResponse struct {
	Content string `json:"content"`
}

// TranscribeResponse 语音识别响应
type TranscribeResponse struct {
	Text string `json:"text"`
}

// ErrorResponse 协作方返回的错误体
type ErrorResponse struct {
	Error string `json:"error"`
}

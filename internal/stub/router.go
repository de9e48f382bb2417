// Package stub serves canned chat, transcription and synthesis collaborators so the portal
// can be driven locally and in tests without the real backend.
package stub

import (
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
	"github.com/zhouzirui/z-tavern/portal/pkg/utils"
)

// SilentMP3 is a tiny MPEG frame header returned as synthesized audio.
var SilentMP3 = []byte{0x49, 0x44, 0x33, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0xfb, 0x90, 0x64}

// Upload records one received transcription upload.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Collaborators holds the canned behavior and records what it receives.
// Configure the exported fields before serving requests.
type Collaborators struct {
	// ChatReply is returned as the assistant content; empty echoes the last user message.
	ChatReply  string
	ChatStatus int

	Transcript       string
	TranscribeStatus int
	TranscribeError  string

	Audio            []byte
	AudioContentType string
	SpeechStatus     int
	SpeechError      string

	mu      sync.Mutex
	chats   []speech.ChatRequest
	uploads []Upload
	synth   []string
}

// New returns collaborators that answer every call successfully.
func New() *Collaborators {
	return &Collaborators{
		ChatStatus:       http.StatusOK,
		Transcript:       "ping",
		TranscribeStatus: http.StatusOK,
		Audio:            SilentMP3,
		AudioContentType: speech.SynthesisContentType,
		SpeechStatus:     http.StatusOK,
	}
}

// NewRouter wires the collaborator routes under /api.
func (c *Collaborators) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		c.RegisterRoutes(api)
	})

	return r
}

// RegisterRoutes 注册协作方路由。转写与合成共用 /speech，按请求体类型区分。
func (c *Collaborators) RegisterRoutes(r chi.Router) {
	r.Post("/chat", c.handleChat)
	r.Post("/speech", c.handleSpeech)
	r.Post("/transcribe", c.handleTranscribe)
	r.Post("/synthesize", c.handleSynthesize)
}

// ChatRequests returns every chat request received so far.
func (c *Collaborators) ChatRequests() []speech.ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]speech.ChatRequest(nil), c.chats...)
}

// Uploads returns every transcription upload received so far.
func (c *Collaborators) Uploads() []Upload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Upload(nil), c.uploads...)
}

// SynthesisTexts returns the texts submitted for synthesis so far.
func (c *Collaborators) SynthesisTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.synth...)
}

func (c *Collaborators) handleChat(w http.ResponseWriter, r *http.Request) {
	var req speech.ChatRequest
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c.mu.Lock()
	c.chats = append(c.chats, req)
	status, reply := c.ChatStatus, c.ChatReply
	c.mu.Unlock()

	if status != http.StatusOK {
		utils.RespondError(w, status, "chat unavailable")
		return
	}

	if reply == "" {
		reply = echoReply(req.Messages)
	}

	log.Printf("[stub] chat reply for %d messages", len(req.Messages))
	utils.RespondJSON(w, http.StatusOK, speech.ChatResponse{Content: reply})
}

func echoReply(messages []*schema.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i] != nil && messages[i].Role == schema.User {
			return "You said: " + messages[i].Content
		}
	}
	return "..."
}

func (c *Collaborators) handleSpeech(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		c.handleTranscribe(w, r)
		return
	}
	c.handleSynthesize(w, r)
}

func (c *Collaborators) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile(speech.CaptureFormField)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	c.mu.Lock()
	c.uploads = append(c.uploads, Upload{
		Field:       speech.CaptureFormField,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	status, text, message := c.TranscribeStatus, c.Transcript, c.TranscribeError
	c.mu.Unlock()

	if status != http.StatusOK {
		if message == "" {
			message = "speech recognition failed"
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, speech.TranscribeResponse{Text: text})
}

func (c *Collaborators) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req speech.SynthesizeRequest
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	c.mu.Lock()
	c.synth = append(c.synth, req.Text)
	status, message := c.SpeechStatus, c.SpeechError
	audio, contentType := c.Audio, c.AudioContentType
	c.mu.Unlock()

	if status != http.StatusOK {
		if message == "" {
			message = "speech synthesis failed"
		}
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondAudio(w, http.StatusOK, contentType, audio)
}

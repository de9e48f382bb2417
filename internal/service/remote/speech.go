package remote

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
)

const (
	transcribeFallback = "Failed to transcribe audio"
	notAudioFallback   = "Response was not audio format"
	emptyAudioMessage  = "Empty audio received from API"
)

// Transcribe uploads a recording as a multipart file and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, payload speech.AudioPayload) (string, error) {
	body, contentType, err := encodeUpload(payload)
	if err != nil {
		return "", &Error{Op: "transcribe", Message: err.Error(), Err: ErrRequest}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.transcribeURL, body)
	if err != nil {
		return "", &Error{Op: "transcribe", Message: err.Error(), Err: ErrRequest}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[remote] transcribe request error: %v", err)
		return "", &Error{Op: "transcribe", Message: err.Error(), Err: ErrRequest}
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return "", &Error{Op: "transcribe", Status: resp.StatusCode, Message: err.Error(), Err: ErrBadResponse}
	}

	if !isSuccess(resp.StatusCode) {
		message := decodeErrorMessage(raw)
		if message == "" {
			message = transcribeFallback
		}
		log.Printf("[remote] transcribe failed with status=%d: %s", resp.StatusCode, message)
		return "", &Error{Op: "transcribe", Status: resp.StatusCode, Message: message, Err: ErrRequest}
	}

	var result speech.TranscribeResponse
	if err := codec.Unmarshal(raw, &result); err != nil {
		return "", &Error{Op: "transcribe", Status: resp.StatusCode, Message: transcribeFallback, Err: ErrBadResponse}
	}

	return result.Text, nil
}

func encodeUpload(payload speech.AudioPayload) (*bytes.Buffer, string, error) {
	contentType := payload.ContentType
	if contentType == "" {
		contentType = speech.CaptureContentType
	}
	filename := payload.Filename
	if filename == "" {
		filename = speech.CaptureFilename
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, speech.CaptureFormField, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

// Synthesize turns text into MPEG audio. The reply must be a success status,
// declare an audio/mpeg content type and carry a non-empty body.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.postJSON(ctx, c.speechURL, speech.SynthesizeRequest{Text: text})
	if err != nil {
		log.Printf("[remote] synthesize request error: %v", err)
		return nil, &Error{Op: "synthesize", Message: err.Error(), Err: ErrRequest}
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return nil, &Error{Op: "synthesize", Status: resp.StatusCode, Message: err.Error(), Err: ErrBadResponse}
	}

	if !isSuccess(resp.StatusCode) {
		message := decodeErrorMessage(raw)
		if message == "" {
			message = fmt.Sprintf("Failed to generate speech: %d", resp.StatusCode)
		}
		return nil, &Error{Op: "synthesize", Status: resp.StatusCode, Message: message, Err: ErrRequest}
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), speech.SynthesisContentType) {
		message := decodeErrorMessage(raw)
		if message == "" {
			message = notAudioFallback
		}
		return nil, &Error{Op: "synthesize", Status: resp.StatusCode, Message: message, Err: ErrNotAudio}
	}

	if len(raw) == 0 {
		return nil, &Error{Op: "synthesize", Status: resp.StatusCode, Message: emptyAudioMessage, Err: ErrEmptyAudio}
	}

	return raw, nil
}

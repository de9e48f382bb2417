package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-tavern/portal/internal/config"
	"github.com/zhouzirui/z-tavern/portal/internal/model/chat"
	"github.com/zhouzirui/z-tavern/portal/internal/model/persona"
	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
	"github.com/zhouzirui/z-tavern/portal/internal/service/capture"
	"github.com/zhouzirui/z-tavern/portal/internal/service/remote"
	"github.com/zhouzirui/z-tavern/portal/internal/stub"
)

type fakeRemote struct {
	chatReply  string
	chatErr    error
	transcript string
	transErr   error
	audio      []byte
	synthErr   error

	onChat       func()
	onTranscribe func()

	mu       sync.Mutex
	history  [][]*schema.Message
	uploads  []speech.AudioPayload
	synthFor []string
}

func (f *fakeRemote) Chat(_ context.Context, messages []*schema.Message) (string, error) {
	f.mu.Lock()
	f.history = append(f.history, messages)
	f.mu.Unlock()
	if f.onChat != nil {
		f.onChat()
	}
	return f.chatReply, f.chatErr
}

func (f *fakeRemote) Transcribe(_ context.Context, payload speech.AudioPayload) (string, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, payload)
	f.mu.Unlock()
	if f.onTranscribe != nil {
		f.onTranscribe()
	}
	return f.transcript, f.transErr
}

func (f *fakeRemote) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	f.synthFor = append(f.synthFor, text)
	f.mu.Unlock()
	return f.audio, f.synthErr
}

type fakePlayer struct {
	mu     sync.Mutex
	played [][]byte
	err    error
}

func (p *fakePlayer) Play(audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, audio)
	return p.err
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type fakeTrack struct {
	stops  atomic.Int32
	stream *fakeStream
}

func (t *fakeTrack) Stop() error {
	if t.stops.Add(1) == 1 {
		close(t.stream.chunks)
	}
	return nil
}

type fakeStream struct {
	chunks chan []byte
	track  *fakeTrack
}

func (s *fakeStream) Chunks() <-chan []byte { return s.chunks }
func (s *fakeStream) Tracks() []capture.Track { return []capture.Track{s.track} }

type fakeCapturer struct {
	err     error
	streams []*fakeStream
}

func (c *fakeCapturer) Acquire(context.Context) (capture.Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	s := &fakeStream{chunks: make(chan []byte, 4)}
	s.chunks <- []byte("voice")
	s.track = &fakeTrack{stream: s}
	c.streams = append(c.streams, s)
	return s, nil
}

type harness struct {
	svc      *Service
	remote   *fakeRemote
	capturer *fakeCapturer
	player   *fakePlayer
	notifier *recordingNotifier
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		remote:   &fakeRemote{chatReply: "well met, mortal", transcript: "ping", audio: []byte("ID3")},
		capturer: &fakeCapturer{},
		player:   &fakePlayer{},
		notifier: &recordingNotifier{},
	}
	revenant := persona.Seed()[0]
	h.svc = NewService(revenant, h.remote, h.capturer, h.player, h.notifier, opts...)
	return h
}

func roles(messages []chat.Message) []schema.RoleType {
	out := make([]schema.RoleType, len(messages))
	for i, m := range messages {
		out[i] = m.Role
	}
	return out
}

func TestNewServiceStartsWithSystemMessage(t *testing.T) {
	h := newHarness()
	state := h.svc.Snapshot()

	require.Len(t, state.Messages, 1)
	assert.Equal(t, chat.SystemMessageID, state.Messages[0].ID)
	assert.Equal(t, "you are a sassy ancestral revenant", state.Messages[0].Content)
	assert.Equal(t, RequestIdle, state.Request)
	assert.False(t, state.Recording)
	assert.Empty(t, state.Visible())
}

func TestSubmitHelloAppendsUserAndAssistant(t *testing.T) {
	h := newHarness()
	h.svc.SetDraft("  hello  ")

	var during State
	h.remote.onChat = func() { during = h.svc.Snapshot() }

	require.True(t, h.svc.Submit(context.Background()))

	require.Len(t, during.Messages, 2, "user message must be appended before the call resolves")
	assert.Equal(t, RequestChatPending, during.Request)
	assert.Equal(t, "", during.Draft)

	state := h.svc.Snapshot()
	require.Equal(t, []schema.RoleType{schema.System, schema.User, schema.Assistant}, roles(state.Messages))
	assert.Equal(t, "hello", state.Messages[1].Content)
	assert.True(t, state.Messages[1].IsFloating)
	assert.NotNil(t, state.Messages[1].Timestamp)
	assert.Equal(t, "well met, mortal", state.Messages[2].Content)
	assert.Equal(t, "", state.Draft)
	assert.Equal(t, RequestIdle, state.Request)

	require.Len(t, h.remote.history, 1)
	sent := h.remote.history[0]
	require.Len(t, sent, 2)
	assert.Equal(t, schema.System, sent[0].Role)
	assert.Equal(t, "hello", sent[1].Content)
}

func TestSubmitChatFailureAppendsErrorMessage(t *testing.T) {
	h := newHarness()
	h.remote.chatErr = errors.New("boom")

	require.True(t, h.svc.SubmitText(context.Background(), "hello"))

	state := h.svc.Snapshot()
	require.Equal(t, []schema.RoleType{schema.System, schema.User, schema.Assistant}, roles(state.Messages))
	assert.Equal(t, ChatErrorMessage, state.Messages[2].Content)
	assert.Equal(t, RequestIdle, state.Request)
	assert.Empty(t, h.notifier.all(), "chat failures are shown in-line, not as notifications")
}

func TestSubmitRejectsBlankDraft(t *testing.T) {
	for _, draft := range []string{"", "   ", "\n\t"} {
		h := newHarness()
		h.svc.SetDraft(draft)
		before := h.svc.Snapshot()

		assert.False(t, h.svc.Submit(context.Background()))
		assert.Equal(t, before, h.svc.Snapshot())
		assert.Empty(t, h.remote.history)
	}
}

func TestSubmitRejectedWhileRequestInFlight(t *testing.T) {
	h := newHarness()

	var nested bool
	h.remote.onChat = func() {
		h.svc.SetDraft("again")
		nested = h.svc.Submit(context.Background())
	}

	require.True(t, h.svc.SubmitText(context.Background(), "hello"))
	assert.False(t, nested)
	assert.Len(t, h.remote.history, 1)
	assert.Len(t, h.svc.Snapshot().Messages, 3)
	assert.Equal(t, "again", h.svc.Snapshot().Draft)
}

func TestSubmitRejectedWhileTranscribing(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	var accepted bool
	h.remote.onTranscribe = func() {
		assert.Equal(t, RequestTranscribePending, h.svc.Snapshot().Request)
		accepted = h.svc.SubmitText(ctx, "typed meanwhile")
	}

	require.NoError(t, h.svc.ToggleRecording(ctx))
	require.NoError(t, h.svc.ToggleRecording(ctx))

	assert.False(t, accepted)
	assert.Len(t, h.svc.Snapshot().Messages, 1)
}

func TestMessagesAreAppendOnlyAcrossTurns(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.True(t, h.svc.SubmitText(ctx, "one"))
	first := h.svc.Snapshot().Messages

	h.remote.chatErr = errors.New("down")
	require.True(t, h.svc.SubmitText(ctx, "two"))
	second := h.svc.Snapshot().Messages

	require.Len(t, second, 5)
	assert.Equal(t, first, second[:3])

	ids := make(map[string]struct{})
	for _, m := range second {
		_, dup := ids[m.ID]
		assert.False(t, dup, "duplicate id %s", m.ID)
		ids[m.ID] = struct{}{}
	}

	require.Len(t, h.remote.history, 2)
	assert.Len(t, h.remote.history[1], 4, "second call carries system, prior turns and the new message")
}

func TestRecordStopTranscribesIntoDraft(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.svc.ToggleRecording(ctx))
	assert.True(t, h.svc.Snapshot().Recording)

	require.NoError(t, h.svc.ToggleRecording(ctx))

	state := h.svc.Snapshot()
	assert.Equal(t, "ping", state.Draft)
	assert.Len(t, state.Messages, 1, "transcription must not append messages")
	assert.False(t, state.Recording)
	assert.Equal(t, RequestIdle, state.Request)

	require.Len(t, h.remote.uploads, 1)
	assert.Equal(t, "voice", string(h.remote.uploads[0].Data))
	assert.Equal(t, "audio/webm", h.remote.uploads[0].ContentType)

	require.Len(t, h.capturer.streams, 1)
	assert.EqualValues(t, 1, h.capturer.streams[0].track.stops.Load())
}

func TestRecordingReleasedOnceWhenTranscriptionFails(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.remote.transErr = &remote.Error{Op: "transcribe", Status: 400, Message: "audio too short"}
	h.svc.SetDraft("keep me")

	var releasedBeforeCall bool
	h.remote.onTranscribe = func() {
		releasedBeforeCall = h.capturer.streams[0].track.stops.Load() == 1
	}

	require.NoError(t, h.svc.StartRecording(ctx))
	require.NoError(t, h.svc.StopRecording(ctx))

	assert.True(t, releasedBeforeCall)
	assert.EqualValues(t, 1, h.capturer.streams[0].track.stops.Load())
	assert.Equal(t, []string{"audio too short"}, h.notifier.all())

	state := h.svc.Snapshot()
	assert.Equal(t, "keep me", state.Draft)
	assert.Equal(t, RequestIdle, state.Request)
	assert.False(t, state.Recording)
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.svc.StopRecording(context.Background()))
	assert.Empty(t, h.remote.uploads)
	assert.Equal(t, RequestIdle, h.svc.Snapshot().Request)
}

func TestMicrophoneFailureIsSilent(t *testing.T) {
	h := newHarness()
	h.capturer.err = errors.New("permission denied")

	err := h.svc.ToggleRecording(context.Background())
	require.Error(t, err)

	assert.False(t, h.svc.Snapshot().Recording)
	assert.Empty(t, h.notifier.all())
}

func TestSpeakPlaysAudio(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.svc.Speak(context.Background(), "boo"))
	assert.Equal(t, []string{"boo"}, h.remote.synthFor)
	assert.Equal(t, 1, h.player.count())
	assert.Empty(t, h.notifier.all())
}

func TestSpeakIgnoresRequestState(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	h.remote.onChat = func() {
		assert.NoError(t, h.svc.Speak(ctx, "while waiting"))
	}
	require.True(t, h.svc.SubmitText(ctx, "hello"))
	assert.Equal(t, 1, h.player.count())
}

func TestSpeakPlaybackErrorIsOnlyLogged(t *testing.T) {
	h := newHarness()
	h.player.err = errors.New("no audio device")

	assert.NoError(t, h.svc.Speak(context.Background(), "boo"))
	assert.Empty(t, h.notifier.all())
}

func TestSpeakNonAudioResponseNotifiesAndNeverPlays(t *testing.T) {
	collab := stub.New()
	collab.AudioContentType = "text/plain"
	server := httptest.NewServer(collab.NewRouter())
	defer server.Close()

	client := remote.NewClient(config.RemoteConfig{
		BaseURL:    server.URL,
		ChatPath:   "/api/chat",
		SpeechPath: "/api/speech",
	})
	player := &fakePlayer{}
	notifier := &recordingNotifier{}
	svc := NewService(persona.Seed()[0], client, &fakeCapturer{}, player, notifier)

	err := svc.Speak(context.Background(), "boo")
	require.ErrorIs(t, err, remote.ErrNotAudio)
	assert.Equal(t, 0, player.count())
	assert.Equal(t, []string{"Response was not audio format"}, notifier.all())
}

func TestSpeakEmptyAudioNotifiesAndNeverPlays(t *testing.T) {
	collab := stub.New()
	collab.Audio = nil
	server := httptest.NewServer(collab.NewRouter())
	defer server.Close()

	client := remote.NewClient(config.RemoteConfig{BaseURL: server.URL, SpeechPath: "/api/speech"})
	player := &fakePlayer{}
	notifier := &recordingNotifier{}
	svc := NewService(persona.Seed()[0], client, &fakeCapturer{}, player, notifier)

	err := svc.Speak(context.Background(), "boo")
	require.ErrorIs(t, err, remote.ErrEmptyAudio)
	assert.Equal(t, 0, player.count())
	assert.Equal(t, []string{"Empty audio received from API"}, notifier.all())
}

func TestEndToEndAgainstStubCollaborators(t *testing.T) {
	collab := stub.New()
	collab.ChatStatus = http.StatusInternalServerError
	server := httptest.NewServer(collab.NewRouter())
	defer server.Close()

	client := remote.NewClient(config.RemoteConfig{
		BaseURL:        server.URL,
		ChatPath:       "/api/chat",
		TranscribePath: "/api/speech",
		SpeechPath:     "/api/speech",
	})
	svc := NewService(persona.Seed()[0], client, &fakeCapturer{}, &fakePlayer{}, &recordingNotifier{})
	ctx := context.Background()

	require.True(t, svc.SubmitText(ctx, "hello"))
	state := svc.Snapshot()
	require.Len(t, state.Messages, 3)
	assert.Equal(t, "hello", state.Messages[1].Content)
	assert.Equal(t, ChatErrorMessage, state.Messages[2].Content)

	require.NoError(t, svc.ToggleRecording(ctx))
	require.NoError(t, svc.ToggleRecording(ctx))
	assert.Equal(t, "ping", svc.Snapshot().Draft)
	assert.Len(t, svc.Snapshot().Messages, 3)
}

func TestAutoSpeakPlaysReplies(t *testing.T) {
	h := newHarness(WithAutoSpeak(true))

	require.True(t, h.svc.SubmitText(context.Background(), "hello"))
	assert.Equal(t, []string{"well met, mortal"}, h.remote.synthFor)

	h.remote.chatErr = errors.New("down")
	require.True(t, h.svc.SubmitText(context.Background(), "again"))
	assert.Len(t, h.remote.synthFor, 1, "error messages are not spoken")
}

func TestSpeakLastUsesLatestReply(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.svc.SpeakLast(ctx))
	assert.Empty(t, h.remote.synthFor)

	require.True(t, h.svc.SubmitText(ctx, "hello"))
	require.NoError(t, h.svc.SpeakLast(ctx))
	assert.Equal(t, []string{"well met, mortal"}, h.remote.synthFor)
}

func TestOnChangeSeesEveryTransition(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	h := newHarness(WithClock(func() time.Time { return fixed }))

	var requests []RequestState
	h.svc.OnChange(func(s State) { requests = append(requests, s.Request) })

	require.True(t, h.svc.SubmitText(context.Background(), "hello"))

	assert.Equal(t, []RequestState{RequestChatPending, RequestIdle}, requests)
	assert.True(t, h.svc.Snapshot().Messages[1].Timestamp.Equal(fixed))
}

func TestOnChangeNotifiesEveryListener(t *testing.T) {
	h := newHarness()

	var first, second []string
	h.svc.OnChange(func(s State) { first = append(first, s.Draft) })
	h.svc.OnChange(func(s State) { second = append(second, s.Draft) })

	h.svc.SetDraft("boo")
	h.svc.SetDraft("boo")
	h.svc.SetDraft("")

	assert.Equal(t, []string{"boo", ""}, first)
	assert.Equal(t, first, second)
}

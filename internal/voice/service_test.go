package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvani/webchat/internal/backend"
	"github.com/medvani/webchat/internal/lang"
	"github.com/medvani/webchat/internal/store"
)

type fakeRecognizer struct {
	startErr error
	stopErr  error
	stopped  bool
	aborted  bool
}

func (f *fakeRecognizer) Start() error { return f.startErr }
func (f *fakeRecognizer) Stop() error {
	f.stopped = true
	return f.stopErr
}
func (f *fakeRecognizer) Abort() { f.aborted = true }

type fakeFactory struct {
	rec      *fakeRecognizer
	err      error
	language string
	events   RecognitionEvents
}

func (f *fakeFactory) New(language string, events RecognitionEvents) (Recognizer, error) {
	f.language = language
	f.events = events
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type fakeRecording struct {
	audio   []byte
	err     error
	stopped bool
}

func (f *fakeRecording) Stop() ([]byte, error) {
	f.stopped = true
	return f.audio, f.err
}

type fakeMic struct {
	recording *fakeRecording
	err       error
	captures  int
}

func (f *fakeMic) Capture(_ context.Context) (Recording, error) {
	f.captures++
	if f.err != nil {
		return nil, f.err
	}
	return f.recording, nil
}

type fakeSpeech struct {
	gotAudio string
	out      backend.Transcription
	err      error
}

func (f *fakeSpeech) Transcribe(_ context.Context, audioBase64 string) (backend.Transcription, error) {
	f.gotAudio = audioBase64
	return f.out, f.err
}

func (f *fakeSpeech) Speak(_ context.Context, _, _ string) (string, error) { return "", nil }

func TestStartEntersLiveRecognition(t *testing.T) {
	st := store.New()
	factory := &fakeFactory{rec: &fakeRecognizer{}}
	svc := NewService(factory, &fakeMic{}, &fakeSpeech{}, st)

	svc.Start(context.Background())

	assert.Equal(t, StateLiveRecognition, svc.State())
	assert.Equal(t, lang.Default, factory.language, "auto maps to the default language hint")
}

func TestStartUsesSelectedLanguageHint(t *testing.T) {
	st := store.New()
	st.SetLanguage("hi-IN")
	factory := &fakeFactory{rec: &fakeRecognizer{}}
	svc := NewService(factory, &fakeMic{}, &fakeSpeech{}, st)

	svc.Start(context.Background())

	assert.Equal(t, "hi-IN", factory.language)
}

func TestStartFallsThroughToRawWhenLiveUnavailable(t *testing.T) {
	st := store.New()
	mic := &fakeMic{recording: &fakeRecording{}}
	svc := NewService(UnsupportedRecognizerFactory{}, mic, &fakeSpeech{}, st)

	svc.Start(context.Background())

	assert.Equal(t, StateRawRecording, svc.State())
	assert.Equal(t, 1, mic.captures)
}

func TestStartIsNoOpWhileCaptureInProgress(t *testing.T) {
	st := store.New()
	mic := &fakeMic{recording: &fakeRecording{}}
	svc := NewService(UnsupportedRecognizerFactory{}, mic, &fakeSpeech{}, st)

	svc.Start(context.Background())
	svc.Start(context.Background())

	assert.Equal(t, 1, mic.captures)
}

func TestMicFailureSurfacesNoticeAndReturnsToIdle(t *testing.T) {
	st := store.New()
	mic := &fakeMic{err: errors.New("permission denied")}
	svc := NewService(UnsupportedRecognizerFactory{}, mic, &fakeSpeech{}, st)

	svc.Start(context.Background())

	assert.Equal(t, StateIdle, svc.State())
	assert.Equal(t, micUnavailableNotice, st.Notice())
}

func TestLiveTranscriptAppendsToInput(t *testing.T) {
	st := store.New()
	st.SetInput("already typed")
	factory := &fakeFactory{rec: &fakeRecognizer{}}
	svc := NewService(factory, &fakeMic{}, &fakeSpeech{}, st)

	svc.Start(context.Background())
	factory.events.Transcript("spoken words")

	assert.Equal(t, "already typed spoken words", st.Input())
	assert.Equal(t, StateLiveRecognition, svc.State())
}

func TestLiveUnreachableFailsOverToRaw(t *testing.T) {
	st := store.New()
	rec := &fakeRecognizer{}
	factory := &fakeFactory{rec: rec}
	mic := &fakeMic{recording: &fakeRecording{}}
	svc := NewService(factory, mic, &fakeSpeech{}, st)

	svc.Start(context.Background())
	require.Equal(t, StateLiveRecognition, svc.State())

	factory.events.Error(ErrRecognizerUnreachable)

	assert.Equal(t, StateRawRecording, svc.State())
	assert.True(t, rec.aborted, "live session torn down")
	assert.Equal(t, 1, mic.captures, "microphone acquisition attempted")
	assert.Empty(t, st.Notice(), "transient failover is silent")
}

func TestLiveOtherErrorNotifiesWithoutFallback(t *testing.T) {
	st := store.New()
	factory := &fakeFactory{rec: &fakeRecognizer{}}
	mic := &fakeMic{recording: &fakeRecording{}}
	svc := NewService(factory, mic, &fakeSpeech{}, st)

	svc.Start(context.Background())
	factory.events.Error(errors.New("no-speech"))

	assert.Equal(t, StateLiveRecognition, svc.State())
	assert.Contains(t, st.Notice(), "no-speech")
	assert.Zero(t, mic.captures)
}

func TestLiveStopIsGracefulAndEndReturnsToIdle(t *testing.T) {
	st := store.New()
	rec := &fakeRecognizer{stopErr: errors.New("already stopping")}
	factory := &fakeFactory{rec: rec}
	svc := NewService(factory, &fakeMic{}, &fakeSpeech{}, st)

	svc.Start(context.Background())
	svc.Stop(context.Background())

	// ошибка мягкой остановки проглочена, Idle наступает по End
	assert.True(t, rec.stopped)
	assert.Equal(t, StateLiveRecognition, svc.State())

	factory.events.End()
	assert.Equal(t, StateIdle, svc.State())
}

func TestStopRawTranscribesAndAppends(t *testing.T) {
	st := store.New()
	st.SetInput("typed")
	audio := []byte("RIFF-wav-bytes")
	recording := &fakeRecording{audio: audio}
	mic := &fakeMic{recording: recording}
	speech := &fakeSpeech{out: backend.Transcription{Text: "spoken", DetectedLang: "hi"}}
	svc := NewService(UnsupportedRecognizerFactory{}, mic, speech, st)

	svc.Start(context.Background())
	svc.Stop(context.Background())

	assert.Equal(t, StateIdle, svc.State())
	assert.True(t, recording.stopped)
	assert.Equal(t, base64.StdEncoding.EncodeToString(audio), speech.gotAudio)
	assert.Equal(t, "typed spoken", st.Input())
	assert.Equal(t, "hi-IN", st.Language(), "auto updated from detected language")
}

func TestStopRawKeepsExplicitLanguage(t *testing.T) {
	st := store.New()
	st.SetLanguage("ta-IN")
	mic := &fakeMic{recording: &fakeRecording{audio: []byte("x")}}
	speech := &fakeSpeech{out: backend.Transcription{Text: "ok", DetectedLang: "hi"}}
	svc := NewService(UnsupportedRecognizerFactory{}, mic, speech, st)

	svc.Start(context.Background())
	svc.Stop(context.Background())

	assert.Equal(t, "ta-IN", st.Language())
}

func TestStopRawTranscriptionFailureSurfacesDetail(t *testing.T) {
	st := store.New()
	mic := &fakeMic{recording: &fakeRecording{audio: []byte("x")}}
	speech := &fakeSpeech{err: errors.New("backend 500: STT failed: upstream down")}
	svc := NewService(UnsupportedRecognizerFactory{}, mic, speech, st)

	svc.Start(context.Background())
	svc.Stop(context.Background())

	assert.Equal(t, StateIdle, svc.State())
	assert.Contains(t, st.Notice(), "STT failed: upstream down")
	assert.Equal(t, "", st.Input())
}

func TestStopWhileIdleIsNoOp(t *testing.T) {
	st := store.New()
	speech := &fakeSpeech{}
	svc := NewService(UnsupportedRecognizerFactory{}, &fakeMic{}, speech, st)

	svc.Stop(context.Background())

	assert.Equal(t, StateIdle, svc.State())
	assert.Empty(t, speech.gotAudio)
}

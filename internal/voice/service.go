package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/medvani/webchat/internal/backend"
	"github.com/medvani/webchat/internal/lang"
	"github.com/medvani/webchat/internal/store"
)

const micUnavailableNotice = "Microphone unavailable. Check your input device and permissions."

// Service владеет единственной голосовой сессией и исполняет побочные
// эффекты переходов машины. Любой терминальный исход возвращает машину
// в Idle; сбои превращаются в уведомления, наружу не пробрасываются.
type Service struct {
	factory RecognizerFactory
	mic     Microphone
	speech  backend.SpeechAPI
	store   *store.Store

	mu        sync.Mutex
	state     State
	rec       Recognizer
	recording Recording
}

func NewService(factory RecognizerFactory, mic Microphone, speech backend.SpeechAPI, st *store.Store) *Service {
	return &Service{
		factory: factory,
		mic:     mic,
		speech:  speech,
		store:   st,
	}
}

// State — текущее состояние машины (для тестов и отображения).
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start начинает голосовой ввод: сперва живое распознавание, при его
// недоступности — сырая запись. No-op, если захват уже идёт.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch(ctx, EventStart, nil, "")
}

// Stop завершает текущий захват: живой сессии — мягкая остановка,
// сырой записи — остановка, кодирование и отправка на транскрипцию.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch(ctx, EventStop, nil, "")
}

// dispatch прогоняет событие через машину и исполняет эффект.
// Вызывается только под s.mu.
func (s *Service) dispatch(ctx context.Context, ev Event, evErr error, transcript string) {
	next, action := Step(s.state, ev)
	s.state = next

	switch action {
	case ActionTryLive:
		s.tryLive(ctx)

	case ActionStartRaw:
		s.startRaw(ctx)

	case ActionFailover:
		log.Printf("[voice] recognition unreachable, falling back to raw recording")
		if s.rec != nil {
			s.rec.Abort()
			s.rec = nil
		}
		s.startRaw(ctx)

	case ActionAppendTranscript:
		s.store.AppendInput(transcript)

	case ActionNotifyError:
		s.store.SetNotice("Voice recognition error: " + evErr.Error())

	case ActionNotifyMicFailed:
		log.Printf("[voice] microphone capture failed: %v", evErr)
		s.store.SetNotice(micUnavailableNotice)

	case ActionStopLive:
		if s.rec != nil {
			// ошибки мягкой остановки глотаем, End вернёт машину в Idle
			if err := s.rec.Stop(); err != nil {
				log.Printf("[voice] live stop: %v", err)
			}
		}

	case ActionFinishRaw:
		s.finishRaw(ctx)
	}
}

func (s *Service) tryLive(ctx context.Context) {
	hint := s.store.Language()
	if hint == lang.Auto {
		hint = lang.Default
	}

	rec, err := s.factory.New(hint, &liveEvents{svc: s})
	if err != nil {
		if !errors.Is(err, ErrRecognizerUnavailable) {
			log.Printf("[voice] recognizer init failed: %v", err)
		}
		s.dispatch(ctx, EventLiveUnavailable, err, "")
		return
	}
	if err := rec.Start(); err != nil {
		log.Printf("[voice] recognizer start failed: %v", err)
		s.dispatch(ctx, EventLiveUnavailable, err, "")
		return
	}

	s.rec = rec
	s.dispatch(ctx, EventLiveReady, nil, "")
}

func (s *Service) startRaw(ctx context.Context) {
	recording, err := s.mic.Capture(ctx)
	if err != nil {
		s.dispatch(ctx, EventRawFailed, err, "")
		return
	}
	s.recording = recording
	s.dispatch(ctx, EventRawStarted, nil, "")
}

func (s *Service) finishRaw(ctx context.Context) {
	recording := s.recording
	s.recording = nil
	if recording == nil {
		return
	}

	audio, err := recording.Stop()
	if err != nil {
		log.Printf("[voice] recording stop failed: %v", err)
		s.store.SetNotice(micUnavailableNotice)
		return
	}

	encoded := base64.StdEncoding.EncodeToString(audio)
	out, err := s.speech.Transcribe(ctx, encoded)
	if err != nil {
		log.Printf("[voice] transcription failed: %v", err)
		s.store.SetNotice("Transcription failed: " + err.Error())
		return
	}

	s.store.AppendInput(out.Text)

	// в режиме auto подхватываем определённый сервером язык
	if s.store.Language() == lang.Auto {
		if detected := strings.TrimSpace(out.DetectedLang); detected != "" {
			s.store.SetLanguage(lang.Normalize(detected, lang.Default))
		}
	}
}

// liveEvents заводит колбэки распознавателя обратно в машину.
type liveEvents struct {
	svc *Service
}

func (e *liveEvents) Transcript(text string) {
	e.svc.onLiveEvent(EventLiveTranscript, nil, text)
}

func (e *liveEvents) Error(err error) {
	kind := EventLiveFailed
	if errors.Is(err, ErrRecognizerUnreachable) {
		kind = EventLiveUnreachable
	}
	e.svc.onLiveEvent(kind, err, "")
}

func (e *liveEvents) End() {
	e.svc.onLiveEvent(EventLiveEnded, nil, "")
}

func (s *Service) onLiveEvent(ev Event, err error, transcript string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLiveRecognition {
		return
	}
	if ev == EventLiveEnded {
		s.rec = nil
	}
	s.dispatch(context.Background(), ev, err, transcript)
}

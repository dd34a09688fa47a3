package voice

// Машина голосового ввода. Переходы чистые: Step не трогает ни
// устройства, ни сеть — побочные эффекты исполняет Service по
// возвращённому Action.

type State int

const (
	StateIdle State = iota
	StateLiveRecognition
	StateRawRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLiveRecognition:
		return "live"
	case StateRawRecording:
		return "raw"
	}
	return "unknown"
}

type Event int

const (
	// запрос пользователя
	EventStart Event = iota
	EventStop

	// исход попытки живой сессии
	EventLiveReady
	EventLiveUnavailable

	// сигналы живой сессии
	EventLiveTranscript
	EventLiveUnreachable
	EventLiveFailed
	EventLiveEnded

	// исход захвата микрофона
	EventRawStarted
	EventRawFailed
)

type Action int

const (
	ActionNone Action = iota
	ActionTryLive
	ActionStartRaw
	ActionFailover // снести живую сессию и немедленно начать запись
	ActionAppendTranscript
	ActionNotifyError
	ActionNotifyMicFailed
	ActionStopLive
	ActionFinishRaw
)

// Step — чистая функция переходов (state, event) → (state, action).
func Step(s State, ev Event) (State, Action) {
	switch s {
	case StateIdle:
		switch ev {
		case EventStart:
			return StateIdle, ActionTryLive
		case EventLiveReady:
			return StateLiveRecognition, ActionNone
		case EventLiveUnavailable:
			return StateIdle, ActionStartRaw
		case EventRawStarted:
			return StateRawRecording, ActionNone
		case EventRawFailed:
			return StateIdle, ActionNotifyMicFailed
		}

	case StateLiveRecognition:
		switch ev {
		case EventStart:
			// повторный старт при активном захвате — no-op
			return StateLiveRecognition, ActionNone
		case EventLiveTranscript:
			return StateLiveRecognition, ActionAppendTranscript
		case EventLiveUnreachable:
			// единственный спроектированный переход между активными
			// состояниями: через Idle сразу в запись
			return StateIdle, ActionFailover
		case EventLiveFailed:
			return StateLiveRecognition, ActionNotifyError
		case EventLiveEnded:
			return StateIdle, ActionNone
		case EventStop:
			return StateLiveRecognition, ActionStopLive
		}

	case StateRawRecording:
		switch ev {
		case EventStart:
			return StateRawRecording, ActionNone
		case EventStop:
			return StateIdle, ActionFinishRaw
		}
	}

	return s, ActionNone
}

package voice

import (
	"context"
	"errors"
)

// === Интерфейсы ===

// ErrRecognizerUnavailable — живое распознавание не поддерживается
// средой; машина сразу уходит в сырую запись.
var ErrRecognizerUnavailable = errors.New("live recognition unavailable")

// ErrRecognizerUnreachable — класс транзитных инфраструктурных сбоев
// распознавания; единственный, на котором срабатывает failover.
var ErrRecognizerUnreachable = errors.New("recognition service unreachable")

// RecognitionEvents получает колбэки живой сессии распознавания.
// События доставляются асинхронно, не изнутри Start.
type RecognitionEvents interface {
	Transcript(text string)
	Error(err error)
	End()
}

// Recognizer — одноразовая живая сессия речь→текст: только финальные
// результаты, без продолжения после первой фразы.
type Recognizer interface {
	Start() error
	Stop() error // мягкая остановка; End придёт колбэком
	Abort()      // немедленный teardown, событий больше не будет
}

type RecognizerFactory interface {
	New(language string, events RecognitionEvents) (Recognizer, error)
}

// Microphone открывает устройство ввода и начинает буферизацию.
type Microphone interface {
	Capture(ctx context.Context) (Recording, error)
}

// Recording — идущая сырая запись; Stop освобождает устройство и
// возвращает склеенные чанки.
type Recording interface {
	Stop() ([]byte, error)
}

// UnsupportedRecognizerFactory — среда без живого распознавания
// (headless-клиент): любой запрос сразу падает в сырую запись.
type UnsupportedRecognizerFactory struct{}

func (UnsupportedRecognizerFactory) New(string, RecognitionEvents) (Recognizer, error) {
	return nil, ErrRecognizerUnavailable
}

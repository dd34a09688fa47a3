package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// ArecordMicrophone захватывает звук через ALSA-утилиту arecord.
// Чанки stdout буферизуются до Stop.
type ArecordMicrophone struct {
	device string
}

func NewArecordMicrophone() *ArecordMicrophone {
	device := os.Getenv("AUDIO_DEVICE")
	if device == "" {
		device = "default"
	}
	return &ArecordMicrophone{device: device}
}

func (m *ArecordMicrophone) Capture(ctx context.Context) (Recording, error) {
	cmd := exec.CommandContext(
		ctx,
		"arecord",
		"-D", m.device,
		"-f", "S16_LE",
		"-r", "16000",
		"-c", "1",
		"-t", "wav",
		"-q",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("arecord: %w", err)
	}

	rec := &arecordRecording{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	// читаем чанки, пока процесс жив
	go func() {
		defer close(rec.done)
		buf := make([]byte, 4096)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				rec.mu.Lock()
				rec.chunks = append(rec.chunks, append([]byte(nil), buf[:n]...))
				rec.mu.Unlock()
			}
			if err != nil {
				if err != io.EOF {
					rec.mu.Lock()
					rec.readErr = err
					rec.mu.Unlock()
				}
				return
			}
		}
	}()

	return rec, nil
}

type arecordRecording struct {
	cmd     *exec.Cmd
	done    chan struct{}
	mu      sync.Mutex
	chunks  [][]byte
	readErr error
}

// Stop гасит arecord, дожидается читателя и склеивает чанки.
func (r *arecordRecording) Stop() ([]byte, error) {
	// SIGINT даёт arecord дописать WAV-заголовок
	if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = r.cmd.Process.Kill()
	}
	<-r.done
	_ = r.cmd.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return nil, fmt.Errorf("read audio stream: %w", r.readErr)
	}
	audio := bytes.Join(r.chunks, nil)
	r.chunks = nil
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio captured")
	}
	return audio, nil
}

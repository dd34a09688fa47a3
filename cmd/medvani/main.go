package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/medvani/webchat/internal/backend"
	"github.com/medvani/webchat/internal/chat"
	"github.com/medvani/webchat/internal/sessions"
	"github.com/medvani/webchat/internal/store"
	"github.com/medvani/webchat/internal/voice"
)

// Терминальный клиент поверх тех же сервисов, что использует веб-чат.
func main() {
	_ = godotenv.Load()

	userID := os.Getenv("MEDVANI_USER_ID")
	if userID == "" {
		userID = "cli-" + uuid.NewString()
	}

	st := store.New()
	api := backend.NewClient()

	sessionService := sessions.NewService(api, st)
	chatService := chat.NewService(api, st, sessionService)
	voiceService := voice.NewService(
		voice.UnsupportedRecognizerFactory{},
		voice.NewArecordMicrophone(),
		api,
		st,
	)

	ctx := context.Background()
	sessionService.LoadSessions(ctx, userID)

	fmt.Println("MedVani client. Type /help for commands, plain text to compose, /send to submit.")
	printSessions(st)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Printf("[%s]> ", st.Language())
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/help":
			printHelp()

		case line == "/quit" || line == "/exit":
			return

		case line == "/sessions":
			sessionService.LoadSessions(ctx, userID)
			printSessions(st)

		case line == "/new":
			sess := sessionService.CreateSession(ctx, userID)
			fmt.Printf("active session: %s (%s)\n", sess.Title, sess.ID)

		case strings.HasPrefix(line, "/open "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			sessionService.SwitchSession(ctx, id, userID)
			printMessages(st)

		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			sessionService.DeleteSession(ctx, id, userID)
			printSessions(st)

		case strings.HasPrefix(line, "/lang "):
			st.SetLanguage(strings.TrimSpace(strings.TrimPrefix(line, "/lang ")))

		case strings.HasPrefix(line, "/attach "):
			attachFile(st, strings.TrimSpace(strings.TrimPrefix(line, "/attach ")))

		case line == "/voice":
			voiceService.Start(ctx)
			fmt.Printf("voice: %s (use /voice-stop to finish)\n", voiceService.State())

		case line == "/voice-stop":
			voiceService.Stop(ctx)
			if notice := st.Notice(); notice != "" {
				fmt.Println(notice)
				st.SetNotice("")
			}
			fmt.Printf("composer: %q\n", st.Input())

		case line == "/send":
			chatService.Send(ctx, userID)
			printMessages(st)

		default:
			st.AppendInput(line)
			fmt.Printf("composer: %q\n", st.Input())
		}

		if notice := st.Notice(); notice != "" {
			fmt.Println(notice)
			st.SetNotice("")
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  /sessions          refresh and list sessions
  /new               create a session
  /open <id>         switch to a session
  /delete <id>       delete a session
  /lang <code>       lock reply language (e.g. hi-IN), "auto" to unlock
  /attach <path>     attach a file to the next message
  /voice             start voice capture
  /voice-stop        stop voice capture
  /send              send the composed message
  /quit              exit`)
}

func printSessions(st *store.Store) {
	active := st.ActiveSession()
	for _, s := range st.Sessions() {
		marker := "  "
		if s.ID == active {
			marker = "* "
		}
		fmt.Printf("%s%s  %s\n", marker, s.ID, s.Title)
	}
}

func printMessages(st *store.Store) {
	active := st.ActiveSession()
	if active == "" {
		return
	}
	for _, m := range st.Messages(active) {
		fmt.Printf("%s: %s\n", m.Role, m.Text)
	}
}

func attachFile(st *store.Store, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("attach failed: %v\n", err)
		return
	}

	kind := store.KindDocument
	switch strings.TrimPrefix(strings.ToLower(pathExt(path)), ".") {
	case "jpg", "jpeg", "png", "webp":
		kind = store.KindImage
	case "mp4", "webm", "mov":
		kind = store.KindVideo
	case "wav", "mp3", "ogg":
		kind = store.KindAudio
	}

	st.AddAttachment(store.Attachment{
		Kind:    kind,
		Content: base64.StdEncoding.EncodeToString(data),
		Name:    path,
	})
	fmt.Printf("attached %s (%d bytes)\n", path, len(data))
}

func pathExt(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}

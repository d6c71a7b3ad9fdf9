// Command-line client for StudyBuddy. It runs the same controllers as the
// server in-process, against the same users file and chats directory.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"studybuddy/studybuddy/config"
	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/services/llm"
	"studybuddy/studybuddy/services/persona"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/credentials"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/transcripts"
	"studybuddy/studybuddy/utils/color"
	"studybuddy/studybuddy/utils/logging"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	logging.InitLogger(cfg.LogDir)
	defer logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError(err.Error()))
		os.Exit(1)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError(err.Error()))
		os.Exit(1)
	}
	tr := transcripts.NewStore(cfg.ChatsDir)
	mgr, err := session.NewManager(credentials.NewStore(cfg.UsersFile), tr,
		sessions.NewMemoryStore(cfg.SessionTTL, time.Now), secret, cfg.SessionTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError(err.Error()))
		os.Exit(1)
	}

	c := &cli{
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		mgr:      mgr,
		password: terminalPassword,
		render:   newRenderer(),
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "register":
		err = c.register(ctx)
	case "chat", "companion":
		model, lerr := llm.NewClient(cfg)
		if lerr != nil {
			logging.ErrorLogger.Error("llm unavailable", zap.Error(lerr))
			fmt.Fprintln(os.Stderr, color.ColorError(lerr.Error()))
			os.Exit(1)
		}
		p, perr := persona.Load(cfg.PersonaFile)
		if perr != nil {
			fmt.Fprintln(os.Stderr, color.ColorError(perr.Error()))
			os.Exit(1)
		}
		c.chat = controllers.NewChatController(mgr, tr, model, nil, cfg.LLMTimeout)
		c.companion = controllers.NewCompanionController(mgr, model, p, cfg.LLMTimeout)
		if os.Args[1] == "chat" {
			err = c.runChat(ctx)
		} else {
			err = c.runCompanion(ctx)
		}
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError(err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("StudyBuddy CLI usage:")
	fmt.Println("  studybuddy register    # Create an account")
	fmt.Println("  studybuddy chat        # Log in and chat with the study assistant")
	fmt.Println("  studybuddy companion   # Log in and talk to Pebble")
}

func terminalPassword() (string, error) {
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	return string(pw), err
}

// newRenderer renders replies as markdown when stdout is a terminal and
// passes them through otherwise.
func newRenderer() func(string) string {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		color.Disable()
		return func(s string) string { return s + "\n" }
	}
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 20 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return func(s string) string { return s + "\n" }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s + "\n"
		}
		return out
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/sources/sessions"
	"studybuddy/studybuddy/sources/transcripts"
	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/color"
)

type cli struct {
	in        *bufio.Reader
	out       io.Writer
	mgr       *session.Manager
	chat      *controllers.ChatController
	companion *controllers.CompanionController
	password  func() (string, error)
	render    func(string) string
}

// readLine returns io.EOF only when nothing was typed before end of input.
func (c *cli) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, color.ColorPrompt(prompt))
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) readPassword() (string, error) {
	fmt.Fprint(c.out, color.ColorPrompt("password: "))
	pw, err := c.password()
	fmt.Fprintln(c.out)
	return pw, err
}

func (c *cli) register(ctx context.Context) error {
	user, err := c.readLine("username: ")
	if err != nil {
		return err
	}
	pw, err := c.readPassword()
	if err != nil {
		return err
	}
	mobile, err := c.readLine("mobile number: ")
	if err != nil {
		return err
	}
	if _, err := c.mgr.Register(ctx, user, pw, mobile); err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.ColorInfo("Registered "+user+". You can now log in."))
	return nil
}

func (c *cli) login(ctx context.Context) (*sessions.SessionData, error) {
	user, err := c.readLine("username: ")
	if err != nil {
		return nil, err
	}
	pw, err := c.readPassword()
	if err != nil {
		return nil, err
	}
	l, err := c.mgr.Login(ctx, user, pw)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(c.out, color.ColorInfo("Welcome back, "+user+"!"))
	return l.Session, nil
}

const chatHelp = `commands:
  /new            start a conversation
  /list           list your conversations
  /open <n|id>    continue a conversation
  /delete <n|id>  delete a conversation
  /theme <name>   pick a theme
  /logout         end the session
  /quit           leave without logging out`

func (c *cli) runChat(ctx context.Context) error {
	sess, err := c.login(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, chatHelp)
	list, err := c.listConversations(ctx, sess)
	if err != nil {
		return err
	}

	for {
		line, err := c.readLine("you> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/logout":
			if err := c.mgr.Logout(ctx, sess); err != nil {
				return err
			}
			fmt.Fprintln(c.out, color.ColorInfo("Logged out."))
			return nil
		case "/help":
			fmt.Fprintln(c.out, chatHelp)
		case "/new":
			id, err := c.chat.NewConversation(ctx, sess)
			if c.report(err) {
				continue
			}
			fmt.Fprintln(c.out, color.ColorInfo("Started "+transcripts.DisplayName(id)))
		case "/list":
			list, err = c.listConversations(ctx, sess)
			c.report(err)
		case "/open":
			msgs, err := c.chat.OpenConversation(ctx, sess, pick(list, arg))
			if c.report(err) {
				continue
			}
			for _, m := range msgs {
				c.printMessage(m, false)
			}
		case "/delete":
			if c.report(c.chat.DeleteConversation(ctx, sess, pick(list, arg))) {
				continue
			}
			fmt.Fprintln(c.out, color.ColorInfo("Deleted."))
			list, err = c.listConversations(ctx, sess)
			c.report(err)
		case "/theme":
			if c.report(c.mgr.SetTheme(ctx, sess, arg)) {
				continue
			}
			fmt.Fprintln(c.out, color.ColorInfo("Theme set to "+arg))
		default:
			reply, err := c.chat.SendTurn(ctx, sess, line)
			if errors.Is(err, types.ErrSessionExpired) {
				return err
			}
			if c.report(err) {
				continue
			}
			c.printMessage(types.Message{Role: types.RoleAssistant, Content: reply}, false)
		}
	}
}

func (c *cli) runCompanion(ctx context.Context) error {
	sess, err := c.login(ctx)
	if err != nil {
		return err
	}
	history, err := c.companion.Start(ctx, sess)
	if err != nil {
		return err
	}
	for _, m := range history {
		c.printMessage(m, true)
	}
	fmt.Fprintln(c.out, "(/reset to start over, /quit to leave)")

	for {
		line, err := c.readLine("you> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if c.report(c.companion.Reset(ctx, sess)) {
				continue
			}
			history, err := c.companion.Start(ctx, sess)
			if c.report(err) {
				continue
			}
			for _, m := range history {
				c.printMessage(m, true)
			}
		default:
			reply, err := c.companion.SendTurn(ctx, sess, line)
			if c.report(err) {
				continue
			}
			c.printMessage(types.Message{Role: types.RoleAssistant, Content: reply}, true)
		}
	}
}

func (c *cli) listConversations(ctx context.Context, sess *sessions.SessionData) ([]string, error) {
	list, err := c.mgr.ListConversations(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out, color.ColorInfo("No conversations yet. Type /new to start one."))
		return list, nil
	}
	for i, id := range list {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, transcripts.DisplayName(id))
	}
	return list, nil
}

func (c *cli) printMessage(m types.Message, companion bool) {
	if m.Role == types.RoleUser {
		fmt.Fprintln(c.out, color.ColorPrompt("you> ")+m.Content)
		return
	}
	name := "StudyBuddy"
	if companion {
		name = c.companion.Persona().Name
	}
	fmt.Fprint(c.out, color.ColorSpeaker(name+":", companion)+"\n"+c.render(m.Content))
}

// report prints err and says whether there was one.
func (c *cli) report(err error) bool {
	if err == nil {
		return false
	}
	fmt.Fprintln(c.out, color.ColorError(err.Error()))
	return true
}

// pick accepts a 1-based position in list or a conversation id.
func pick(list []string, arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(list) {
		return list[n-1]
	}
	return arg
}

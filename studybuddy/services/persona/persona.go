package persona

import (
	"errors"
	"fmt"
	"os"

	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"github.com/magiconair/properties"
	"go.uber.org/zap"
)

// Persona is the companion's character. The system prompt is sent to the
// model as a hidden first message and never shown.
type Persona struct {
	Name         string
	SystemPrompt string
	Welcome      string
	Disclaimer   string
}

const (
	keyName       = "persona.name"
	keyPrompt     = "persona.system_prompt"
	keyWelcome    = "persona.welcome"
	keyDisclaimer = "persona.disclaimer"
)

var defaults = map[string]string{
	keyName: "Pebble",
	keyPrompt: `You are a friendly, empathetic, and supportive AI companion for students. Your name is '${persona.name}'.
Your purpose is to be a safe space for students to talk about their study-related stress, anxieties, and mental health challenges.
- Listen carefully and validate their feelings.
- Offer gentle, constructive advice and coping strategies (like the Pomodoro Technique, mindfulness exercises, or breaking down large tasks).
- Always be encouraging and positive.
- NEVER claim to be a real therapist or a replacement for professional help.
- If the user's problem seems serious or they mention severe distress, you MUST include the following disclaimer in your response:
'${persona.disclaimer}'`,
	keyWelcome: "Hello! I'm ${persona.name}, your friendly study companion. What's on your mind today? I'm here to listen.",
	keyDisclaimer: "I'm here to listen, but I'm an AI. If you're feeling overwhelmed, please consider " +
		"talking to a trusted adult or a mental health professional. You are not alone.",
}

func Default() Persona {
	p, _ := fromProperties(properties.NewProperties())
	return p
}

// Load reads persona.* keys from a .properties file. Missing keys keep their
// defaults and a missing file yields Default(). Values may reference
// ${persona.name} and ${persona.disclaimer}.
func Load(path string) (Persona, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logging.AppLogger.Info("persona file not found, using defaults", zap.String("path", path))
		return Default(), nil
	}

	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Default(), fmt.Errorf("%w: persona file %s: %v", types.ErrConfiguration, path, err)
	}
	return fromProperties(props)
}

func fromProperties(props *properties.Properties) (Persona, error) {
	props.DisableExpansion = true
	for k, v := range defaults {
		if _, ok := props.Get(k); ok {
			continue
		}
		if _, _, err := props.Set(k, v); err != nil {
			return Persona{}, fmt.Errorf("%w: %v", types.ErrConfiguration, err)
		}
	}
	props.DisableExpansion = false

	p := Persona{
		Name:         props.GetString(keyName, ""),
		SystemPrompt: props.GetString(keyPrompt, ""),
		Welcome:      props.GetString(keyWelcome, ""),
		Disclaimer:   props.GetString(keyDisclaimer, ""),
	}
	if p.SystemPrompt == "" || p.Welcome == "" {
		return p, fmt.Errorf("%w: persona prompt and welcome must not be empty", types.ErrConfiguration)
	}
	return p, nil
}

// Seed is the opening companion history: the hidden instruction followed by
// the visible welcome.
func (p Persona) Seed() []types.Message {
	return []types.Message{
		{Role: types.RoleUser, Content: p.SystemPrompt, Hidden: true},
		{Role: types.RoleAssistant, Content: p.Welcome},
	}
}

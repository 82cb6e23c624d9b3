package models

import "strings"

// Answers holds the questionnaire payload collected during onboarding.
// Every key is optional; Profile substitutes defaults so twin creation can
// never fail on a sparse questionnaire.
type Answers map[string]string

type TwinProfile struct {
	Name       string
	Greeting   string
	Backstory  string
	VoiceStyle string
	Interests  string
}

var answerDefaults = TwinProfile{
	Name:       "My Twin",
	Greeting:   "Hi, it's good to see you again.",
	Backstory:  "",
	VoiceStyle: "warm",
	Interests:  "",
}

func (a Answers) get(key, fallback string) string {
	if v, ok := a[key]; ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fallback
}

// Profile maps raw answers onto the twin persona fields, filling defaults
// for anything the creator skipped.
func (a Answers) Profile() TwinProfile {
	return TwinProfile{
		Name:       a.get("twin_name", answerDefaults.Name),
		Greeting:   a.get("greeting", answerDefaults.Greeting),
		Backstory:  a.get("backstory", answerDefaults.Backstory),
		VoiceStyle: a.get("voice_style", answerDefaults.VoiceStyle),
		Interests:  a.get("interests", answerDefaults.Interests),
	}
}

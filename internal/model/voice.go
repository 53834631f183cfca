package model

import (
	"fmt"
	"strings"
)

// Voice describes one voice available from the voice service.
type Voice struct {
	VoiceID     string   `json:"voice_id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Gender      string   `json:"gender,omitempty"`
	Age         string   `json:"age,omitempty"`
	Accent      string   `json:"accent,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Languages   []string `json:"languages,omitempty"`
}

// Decorate fills DisplayName as "Name (gender, age)".
func (v *Voice) Decorate() {
	gender := v.Gender
	if gender == "" {
		gender = "unknown"
	}
	age := v.Age
	if age == "" {
		age = "unknown"
	}
	v.DisplayName = fmt.Sprintf("%s (%s, %s)", v.Name, gender, age)
}

// SpeaksLanguage reports whether the voice can be used for lang. Voices
// without language metadata are multilingual.
func (v *Voice) SpeaksLanguage(lang string) bool {
	if len(v.Languages) == 0 {
		return true
	}
	for _, l := range v.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// VoiceSelection is the voice resolved for one job.
type VoiceSelection struct {
	VoiceID  string `json:"voice_id"`
	IsCloned bool   `json:"is_cloned"`
	IsDemo   bool   `json:"is_demo"`
}

// IsDemoVoice reports whether id refers to a demo placeholder voice.
func IsDemoVoice(id string) bool {
	return strings.HasPrefix(id, DemoVoicePrefix)
}

// DemoVoices is returned when the voice service cannot be reached.
func DemoVoices() []Voice {
	voices := []Voice{
		{VoiceID: "demo_multilingual_1", Name: "Demo Multilingual Voice", Category: "demo", Description: "Demo voice for AI dubbing showcase"},
		{VoiceID: "demo_english_1", Name: "Demo English Voice", Category: "demo", Description: "Demo voice for English content", Languages: []string{"en"}},
	}
	for i := range voices {
		voices[i].Decorate()
	}
	return voices
}

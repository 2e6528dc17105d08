package utils

import (
	"testing"
)

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text untouched",
			input:    "The goblin snarls and lunges at you.",
			expected: "The goblin snarls and lunges at you.",
		},
		{
			name:     "markdown emphasis stripped",
			input:    "You feel a *sudden* chill as the **door** creaks open.",
			expected: "You feel a sudden chill as the door creaks open.",
		},
		{
			name:     "stage directions removed",
			input:    "The troll swings its club [roll a d20 for dodge] at your head!",
			expected: "The troll swings its club at your head!",
		},
		{
			name:     "headers and code fences",
			input:    "## The Tavern\n`whisper` of wind",
			expected: "The Tavern\nwhisper of wind",
		},
		{
			name:     "whitespace collapsed",
			input:    "Too   many    spaces",
			expected: "Too many spaces",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanForSpeech(tt.input)
			if result != tt.expected {
				t.Errorf("CleanForSpeech(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

// DefaultSystemPrompt seeds the system prompt row on first access.
const DefaultSystemPrompt = "You are an AI assistant helping to verify student understanding. " +
	"Given the assignment prompt and the student's submission text, generate one concise follow-up question " +
	"that probes their understanding or asks for clarification on a specific aspect. " +
	"The question should be answerable in 60-90 seconds."

// FallbackQuestion is returned whenever a follow-up question cannot be generated.
const FallbackQuestion = "Please elaborate on the main point of your submission."

// NoAssignmentPrompt stands in for the assignment text of unlinked submissions.
const NoAssignmentPrompt = "No specific assignment prompt provided."

const maxContentRunes = 10000

//go:embed templates/*.txt
var templateFS embed.FS

var (
	loadOnce     sync.Once
	loadErr      error
	userTemplate *template.Template
)

// FollowUpData holds template data for the follow-up user message.
type FollowUpData struct {
	AssignmentPrompt  string
	SubmissionContent string
}

// Load parses prompt templates from fsys. It runs once; later calls return
// the first result.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		const name = "templates/followup_user.txt"
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			loadErr = errors.New("failed to read prompt file " + name + ": " + err.Error())
			return
		}
		tmpl, err := template.New("followup").Parse(string(content))
		if err != nil {
			loadErr = errors.New("failed to parse prompt template " + name + ": " + err.Error())
			return
		}
		userTemplate = tmpl
	})
	return loadErr
}

// BuildFollowUpMessage renders the user message sent alongside the system
// prompt.
func BuildFollowUpMessage(assignmentPrompt, submission string) (string, error) {
	if err := Load(templateFS); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}

	assignmentPrompt = strings.TrimSpace(assignmentPrompt)
	if assignmentPrompt == "" {
		assignmentPrompt = NoAssignmentPrompt
	}
	data := FollowUpData{
		AssignmentPrompt:  sanitize(assignmentPrompt),
		SubmissionContent: sanitize(submission),
	}

	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitize keeps student text inside its code fence and bounds its length.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxContentRunes {
		runes := []rune(s)
		s = string(runes[:maxContentRunes]) + "\n\n[Text truncated due to length]"
	}
	return s
}

// Snippet returns at most n runes of s for log lines.
func Snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

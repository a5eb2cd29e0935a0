package parse

import (
	"path"
	"regexp"
	"strings"
)

var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\[Request interrupted`),
	regexp.MustCompile(`^<local-command-caveat>`),
	regexp.MustCompile(`^<local-command-stdout>`),
	regexp.MustCompile(`^<bash-input>`),
	regexp.MustCompile(`^<bash-stdout>`),
	regexp.MustCompile(`^<bash-stderr>`),
	regexp.MustCompile(`^<user-prompt-submit-hook>`),
	regexp.MustCompile(`^<system-reminder>`),
}

var (
	commandNameRe    = regexp.MustCompile(`<command-name>([^<]+)</command-name>`)
	commandMessageRe = regexp.MustCompile(`<command-message>([^<]+)</command-message>`)

	stripTagRes = []*regexp.Regexp{
		regexp.MustCompile(`<local-command-caveat>[^<]*</local-command-caveat>`),
		regexp.MustCompile(`<local-command-stdout>[^<]*</local-command-stdout>`),
		regexp.MustCompile(`<command-name>[^<]*</command-name>`),
		regexp.MustCompile(`<command-message>[^<]*</command-message>`),
		regexp.MustCompile(`<command-args>[^<]*</command-args>`),
		regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`),
	}
)

const skillMarker = "Base directory for this skill:"

func isNoise(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, re := range noisePatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// isRealUserInput reports whether a user record was typed by a person rather
// than being a tool result or harness noise.
func isRealUserInput(r *UserRecord) bool {
	if r.IsMeta {
		return false
	}
	if r.Content.IsString() {
		text := strings.TrimSpace(r.Content.Text)
		return text != "" && !isNoise(text)
	}
	for _, b := range r.Content.Blocks {
		switch b.Type {
		case "tool_result":
			return false
		case "text":
			if text := strings.TrimSpace(b.Text); text != "" && !isNoise(text) {
				return true
			}
		}
	}
	return false
}

func extractCommand(text string) string {
	if m := commandNameRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := commandMessageRe.FindStringSubmatch(text); m != nil {
		cmd := strings.TrimSpace(m[1])
		if !strings.HasPrefix(cmd, "/") {
			cmd = "/" + cmd
		}
		return cmd
	}
	return ""
}

// skillTrigger turns a skill loading banner into the /name that triggered it.
func skillTrigger(text string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if !strings.Contains(first, skillMarker) {
		return ""
	}
	dir := strings.TrimSpace(first[strings.LastIndex(first, ":")+1:])
	name := path.Base(strings.TrimSuffix(dir, "/"))
	if name == "" || name == "." || name == "/" {
		return ""
	}
	return "/" + name
}

func cleanUserInput(text string) string {
	cleaned := strings.TrimSpace(text)

	if strings.Contains(cleaned, "<command-name>") || strings.Contains(cleaned, "<command-message>") {
		if cmd := extractCommand(cleaned); cmd != "" {
			return cmd
		}
	}
	if strings.Contains(cleaned, skillMarker) {
		if trigger := skillTrigger(cleaned); trigger != "" {
			return trigger
		}
	}

	for _, re := range stripTagRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

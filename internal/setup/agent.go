package setup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gorewood/cadence/internal/output"
)

const (
	// MarkerBegin marks the start of cadence-managed content.
	MarkerBegin = "# BEGIN cadence"
	// MarkerEnd marks the end of cadence-managed content.
	MarkerEnd = "# END cadence"
)

// Agent hook events cadence installs scripts for.
const (
	EventStop        = "stop"
	EventPostToolUse = "post_tool_use"
)

// Events lists the managed hook events in install order.
var Events = []string{EventStop, EventPostToolUse}

// hookRunCommand maps an event to the cadence subcommand its script runs.
var hookRunCommand = map[string]string{
	EventStop:        "stop",
	EventPostToolUse: "post-tool-use",
}

// SectionContent returns the marked script section for an event. When the
// cadence binary is missing the script emits a bare continue directive so
// the agent is never blocked by a broken install.
func SectionContent(event string) string {
	run := hookRunCommand[event]
	return MarkerBegin + `
# Cadence TDD loop hook
if command -v cadence >/dev/null 2>&1; then
  cadence hook run ` + run + `
else
  echo '{"decision": "continue"}'
fi
` + MarkerEnd
}

// ResolveAgentHookPath determines the hook script path for an event.
// If project is true, returns a project-local path; otherwise the global path.
func ResolveAgentHookPath(event string, project bool) (string, string, error) {
	name := event + ".sh"
	if project {
		cwd, err := os.Getwd()
		if err != nil {
			return "", "", output.NewSystemErrorWithCause("failed to get working directory", err)
		}
		return filepath.Join(cwd, ".claude", "hooks", name), "project", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", output.NewSystemErrorWithCause("failed to get home directory", err)
	}
	return filepath.Join(home, ".claude", "hooks", name), "global", nil
}

// IsSectionInstalled checks if the cadence section exists in a hook file.
func IsSectionInstalled(hookPath string) bool {
	content, err := os.ReadFile(hookPath)
	if err != nil {
		return false
	}
	return strings.Contains(string(content), MarkerBegin)
}

// InstallSection adds or updates the cadence section in a hook file.
// Existing user content outside the markers is preserved.
func InstallSection(hookPath, event string) error {
	hookDir := filepath.Dir(hookPath)
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		return output.NewSystemErrorWithCause("failed to create hook directory", err)
	}

	var content string
	existingContent, err := os.ReadFile(hookPath)
	if err == nil {
		content = string(existingContent)
		content = RemoveSectionFromContent(content)
	} else if !os.IsNotExist(err) {
		return output.NewSystemErrorWithCause("failed to read hook file", err)
	}

	if !strings.HasPrefix(content, "#!") {
		content = "#!/bin/bash\n" + content
	}

	content = strings.TrimRight(content, "\n") + "\n\n" + SectionContent(event) + "\n"

	// #nosec G306 -- hook needs execute permission
	if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
		return output.NewSystemErrorWithCause("failed to write hook file", err)
	}

	return nil
}

// RemoveSectionFromHook removes the cadence section from a hook file.
func RemoveSectionFromHook(hookPath string) error {
	content, err := os.ReadFile(hookPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return output.NewSystemErrorWithCause("failed to read hook file", err)
	}

	newContent := RemoveSectionFromContent(string(content))

	cleaned := strings.TrimSpace(strings.TrimPrefix(newContent, "#!/bin/bash"))
	if cleaned == "" {
		newContent = "#!/bin/bash\n"
	}

	// #nosec G306 -- hook needs execute permission
	if err := os.WriteFile(hookPath, []byte(newContent), 0o755); err != nil {
		return output.NewSystemErrorWithCause("failed to write hook file", err)
	}

	return nil
}

// RemoveSectionFromContent removes the cadence section from a content string.
func RemoveSectionFromContent(content string) string {
	lines := strings.Split(content, "\n")
	var result []string
	inSection := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), MarkerBegin) {
			inSection = true
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), MarkerEnd) {
			inSection = false
			continue
		}
		if !inSection {
			result = append(result, line)
		}
	}

	finalContent := strings.Join(result, "\n")
	for strings.Contains(finalContent, "\n\n\n") {
		finalContent = strings.ReplaceAll(finalContent, "\n\n\n", "\n\n")
	}

	return strings.TrimRight(finalContent, "\n") + "\n"
}

// HookStatus describes one installed agent hook script.
type HookStatus struct {
	Event     string `json:"event"`
	Path      string `json:"path"`
	Scope     string `json:"scope"`
	Installed bool   `json:"installed"`
}

// CheckAgentHooks reports the install status of every managed event at the
// given scope.
func CheckAgentHooks(project bool) ([]HookStatus, error) {
	var statuses []HookStatus
	for _, event := range Events {
		path, scope, err := ResolveAgentHookPath(event, project)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, HookStatus{
			Event:     event,
			Path:      path,
			Scope:     scope,
			Installed: IsSectionInstalled(path),
		})
	}
	return statuses, nil
}

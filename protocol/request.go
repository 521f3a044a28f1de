package protocol

import "fmt"

// PermissionMode is the vendor-neutral permission level for a turn.
type PermissionMode string

const (
	PermissionDefault     PermissionMode = "default"
	PermissionTrust       PermissionMode = "trust"
	PermissionAcceptEdits PermissionMode = "acceptEdits"
	PermissionReadOnly    PermissionMode = "readOnly"
	PermissionPlan        PermissionMode = "plan"
)

// PermissionModes lists every accepted mode.
var PermissionModes = []PermissionMode{
	PermissionDefault,
	PermissionTrust,
	PermissionAcceptEdits,
	PermissionReadOnly,
	PermissionPlan,
}

// ParsePermissionMode validates s. The empty string means default.
func ParsePermissionMode(s string) (PermissionMode, error) {
	if s == "" {
		return PermissionDefault, nil
	}
	for _, m := range PermissionModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown permission mode %q", s)
}

// ChatRequest is the body of a chat turn request.
type ChatRequest struct {
	Message        string         `json:"message" jsonschema:"minLength=1"`
	SessionID      string         `json:"sessionId,omitempty"`
	CWD            string         `json:"cwd,omitempty"`
	PermissionMode PermissionMode `json:"permissionMode,omitempty" jsonschema:"enum=default,enum=trust,enum=acceptEdits,enum=readOnly,enum=plan"`
	AllowedTools   []string       `json:"allowedTools,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	Model          string         `json:"model,omitempty"`
}

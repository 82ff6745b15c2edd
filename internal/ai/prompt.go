package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nao1215/socaudit/internal/model"
)

// instructions precede the snapshot in every prompt.
const instructions = "You are a cybersecurity professional. Analyze the following live system audit data. " +
	"Identify vulnerabilities, suspicious behavior, misconfigurations, and provide CVE references where relevant. " +
	"Offer practical mitigations. Grade your findings (A=excellent security posture, F=critical). " +
	"Think step by step with analytic reasoning.\n\n"

// BuildPrompt returns the analyst instructions followed by the snapshot as
// 2-space indented JSON.
func BuildPrompt(snapshot *model.Snapshot) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(instructions)
	buf.WriteString("SNAPSHOT JSON:\n")

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.String(), nil
}

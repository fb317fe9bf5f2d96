package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/macdeacon99/jamf-rings/internal/rollout"
	"gopkg.in/yaml.v3"
)

// writePlan prints p to w in the requested format.
func writePlan(w io.Writer, p rollout.Plan, format outputFormat) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	case formatTOML:
		return toml.NewEncoder(w).Encode(p)
	case formatText, "":
		return writeText(w, p)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, p rollout.Plan) error {
	rings := make([]string, 0, len(p.ActiveRings))
	for _, r := range p.ActiveRings {
		rings = append(rings, fmt.Sprintf("%s (%d)", r.Name, r.ID))
	}

	target := p.TargetUpdate
	if p.CatchingUp {
		target += " (previous rollout still in progress)"
	}

	_, err := fmt.Fprintf(w, `Target:           %s
Version:          %s
Class:            %s
Released:         %s
Elapsed days:     %d
Active rings:     %s
Install deadline: %s
`,
		target,
		p.TargetVersion,
		p.Class,
		p.TargetReleaseDate.Format(time.DateOnly),
		p.ElapsedDays,
		strings.Join(rings, ", "),
		p.InstallDeadline.Format(time.RFC3339))
	return err
}

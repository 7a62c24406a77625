package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roster is the YAML seed file:
//
//	sessions:
//	  - id: village
//	    agents:
//	      - id: steve
//	        type: player
//	        name: Steve
//	        persona: A cautious builder.
type Roster struct {
	Sessions []RosterSession `yaml:"sessions"`
}

type RosterSession struct {
	ID     string    `yaml:"id"`
	Agents []Profile `yaml:"agents"`
}

func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return ParseRoster(data)
}

func ParseRoster(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	for i := range r.Sessions {
		s := &r.Sessions[i]
		if s.ID == "" {
			return nil, fmt.Errorf("roster session %d has no id", i)
		}
		for j := range s.Agents {
			if s.Agents[j].AgentID == "" {
				return nil, fmt.Errorf("roster session %s: agent %d has no id", s.ID, j)
			}
			s.Agents[j].SessionID = s.ID
		}
	}
	return &r, nil
}

// Profiles flattens the roster in file order.
func (r *Roster) Profiles() []Profile {
	var out []Profile
	for _, s := range r.Sessions {
		out = append(out, s.Agents...)
	}
	return out
}

// Package profile is the registration subsystem: it knows which agents exist
// in a session and what persona each of them carries.
package profile

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agenthands/anima/internal/apperr"
)

type Profile struct {
	SessionID  string `json:"session_id" yaml:"-"`
	AgentID    string `json:"agent_id" yaml:"id"`
	EntityType string `json:"entity_type" yaml:"type"`
	Name       string `json:"name,omitempty" yaml:"name"`
	Persona    string `json:"persona" yaml:"persona"`
}

type key struct {
	session string
	agent   string
}

// Registry holds profiles per (session, agent). It is safe for concurrent
// use and is reset explicitly, per session or as a whole.
type Registry struct {
	mu       sync.RWMutex
	profiles map[key]Profile
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[key]Profile)}
}

// Register adds the profile unless the agent is already known. Re-registering
// keeps the first profile and reports created=false.
func (r *Registry) Register(p Profile) (created bool, err error) {
	if strings.TrimSpace(p.SessionID) == "" || strings.TrimSpace(p.AgentID) == "" {
		return false, apperr.Validationf("profile.register", "session_id and agent_id are required")
	}
	if strings.TrimSpace(p.EntityType) == "" {
		p.EntityType = "agent"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{p.SessionID, p.AgentID}
	if _, ok := r.profiles[k]; ok {
		return false, nil
	}
	r.profiles[k] = p
	return true, nil
}

// Lookup returns the agent's profile. A missing profile is a configuration
// problem for that agent, never a silent default.
func (r *Registry) Lookup(sessionID, agentID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[key{sessionID, agentID}]
	if !ok {
		return Profile{}, apperr.Configuration("profile.lookup",
			fmt.Errorf("no profile for agent %s in session %s", agentID, sessionID))
	}
	return p, nil
}

// Agents lists the registered agent ids of a session in ascending order.
func (r *Registry) Agents(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := []string{}
	for k := range r.profiles {
		if k.session == sessionID {
			agents = append(agents, k.agent)
		}
	}
	sort.Strings(agents)
	return agents
}

func (r *Registry) Reset(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k := range r.profiles {
		if k.session == sessionID {
			delete(r.profiles, k)
		}
	}
}

func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = make(map[key]Profile)
}

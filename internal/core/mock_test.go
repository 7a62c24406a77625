package core

import (
	"context"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MockDriver answers each statement by the first registered query fragment it
// contains and records everything it was asked.
type MockDriver struct {
	mu       sync.Mutex
	Executed []string
	Params   []map[string]interface{}
	Results  map[string]neo4j.EagerResult
	Err      error
	Closed   bool
}

func (m *MockDriver) run(query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Executed = append(m.Executed, query)
	m.Params = append(m.Params, params)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	for fragment, res := range m.Results {
		if strings.Contains(query, fragment) {
			return res, nil
		}
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return m.run(query, params)
}

func (m *MockDriver) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return m.run(query, params)
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.Closed = true
	return nil
}

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Prompts       []string
}

func (m *MockLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

func record(keys []string, values ...any) neo4j.EagerResult {
	return neo4j.EagerResult{
		Keys:    keys,
		Records: []*neo4j.Record{{Keys: keys, Values: values}},
	}
}

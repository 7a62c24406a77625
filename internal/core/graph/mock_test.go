package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
	Read   bool
}

// MockDriver records every statement and replays scripted results in order.
type MockDriver struct {
	Executed []executedQuery
	Results  []neo4j.EagerResult
	Err      error
}

func (m *MockDriver) run(query string, params map[string]interface{}, read bool) (neo4j.EagerResult, error) {
	m.Executed = append(m.Executed, executedQuery{Query: query, Params: params, Read: read})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if len(m.Results) == 0 {
		return neo4j.EagerResult{}, nil
	}
	res := m.Results[0]
	m.Results = m.Results[1:]
	return res, nil
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return m.run(query, params, false)
}

func (m *MockDriver) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return m.run(query, params, true)
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return m.Err
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func (m *MockDriver) last() executedQuery {
	return m.Executed[len(m.Executed)-1]
}

func result(keys []string, rows ...[]any) neo4j.EagerResult {
	res := neo4j.EagerResult{Keys: keys}
	for _, values := range rows {
		res.Records = append(res.Records, &neo4j.Record{Keys: keys, Values: values})
	}
	return res
}

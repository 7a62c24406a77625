package model

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp_SortsChronologically(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	stamps := []string{
		FormatTimestamp(base.Add(120 * time.Millisecond)),
		FormatTimestamp(base.Add(100 * time.Millisecond)),
		FormatTimestamp(base.Add(time.Second)),
		FormatTimestamp(base),
	}
	sort.Strings(stamps)

	assert.Equal(t, []string{
		"2026-03-01T12:00:05.000000Z",
		"2026-03-01T12:00:05.100000Z",
		"2026-03-01T12:00:05.120000Z",
		"2026-03-01T12:00:06.000000Z",
	}, stamps)
}

func TestNormalizeTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := NormalizeTimestamp("", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05.000000Z", got)

	got, err = NormalizeTimestamp("2026-05-06T07:08:09+02:00", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-06T05:08:09.000000Z", got)

	got, err = NormalizeTimestamp("2026-05-06T07:08:09.5", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-06T07:08:09.500000Z", got)

	_, err = NormalizeTimestamp("yesterday", now)
	assert.Error(t, err)
}

func TestEventPayloadValidate(t *testing.T) {
	valid := EventPayload{
		SessionID: "s1",
		Subject:   &EntitySnapshot{EntityID: "steve"},
		Verb:      "ATTACKED",
	}
	assert.NoError(t, valid.Validate())

	missingSubject := valid
	missingSubject.Subject = nil
	assert.ErrorContains(t, missingSubject.Validate(), "subject")

	noVerb := valid
	noVerb.Verb = " "
	assert.Error(t, noVerb.Validate())

	badObject := valid
	badObject.Object = &EntitySnapshot{}
	assert.Error(t, badObject.Validate())

	negative := valid
	negative.WorldTime = -1
	assert.Error(t, negative.Validate())
}

func TestEventPayloadDescribe(t *testing.T) {
	p := EventPayload{
		Subject:   &EntitySnapshot{EntityID: "u-1", Name: "Steve"},
		Verb:      "ATTACKED",
		Object:    &EntitySnapshot{EntityID: "z-9"},
		WorldTime: 1200,
	}
	assert.Equal(t, "Steve ATTACKED z-9 (world_time=1200)", p.Describe())

	var empty *EventPayload
	assert.Equal(t, "", empty.Describe())
}

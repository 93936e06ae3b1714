package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecruitmentWindowContains(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
	r := Recruitment{RecruitStartAt: start, RecruitEndAt: end}

	require.True(t, r.WindowContains(start))
	require.True(t, r.WindowContains(end))
	require.True(t, r.WindowContains(start.AddDate(0, 0, 10)))
	require.False(t, r.WindowContains(start.Add(-time.Second)))
	require.False(t, r.WindowContains(end.Add(time.Second)))
}

func TestApplicationTerminalStates(t *testing.T) {
	require.True(t, (&Application{Status: ApplicationStatusRejected}).IsTerminal())
	require.True(t, (&Application{Status: ApplicationStatusCanceled}).IsTerminal())
	require.False(t, (&Application{Status: ApplicationStatusMatched}).IsTerminal())

	require.False(t, (&Application{Status: ApplicationStatusCanceled}).IsLive())
	require.True(t, (&Application{Status: ApplicationStatusRejected}).IsLive())
}

func TestMatchingReferences(t *testing.T) {
	m := Matching{MentorApplicationID: "a", MenteeApplicationID: "b"}
	require.True(t, m.References("a"))
	require.True(t, m.References("b"))
	require.False(t, m.References("c"))
}
